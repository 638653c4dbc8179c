package eventservice

import (
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Validate checks that ev carries a well-formed payload for its type.
func Validate(ev *eventdb.Event) error {
	if ev == nil {
		return apperrors.Validationf("event is required")
	}
	if !ev.Type.Valid() {
		return apperrors.Validationf("unknown event type %q", ev.Type)
	}
	if ev.Payload() == nil {
		return apperrors.Validationf("%s event has no payload", ev.Type)
	}

	switch ev.Type {
	case sharedtypes.EventExploitScript:
		return validateScript(ev.Type, &ev.ExploitScript.ScriptRun)
	case sharedtypes.EventSlaScript:
		return validateScript(ev.Type, &ev.SlaScript.ScriptRun)
	case sharedtypes.EventSetFlag:
		p := ev.SetFlag
		if err := requireIDs(ev.Type, int64(p.TeamID), int64(p.ServiceID), int64(p.FlagID)); err != nil {
			return err
		}
		return validOutcome(ev.Type, p.Result)
	case sharedtypes.EventFlagStolen:
		p := ev.FlagStolen
		return requireIDs(ev.Type, int64(p.ExploitTeamID), int64(p.VictimTeamID), int64(p.ServiceID), int64(p.FlagID))
	case sharedtypes.EventKohScoreFetch:
		p := ev.KohScoreFetch
		if err := requireIDs(ev.Type, int64(p.TeamID), int64(p.ServiceID)); err != nil {
			return err
		}
		if err := validOutcome(ev.Type, p.Result); err != nil {
			return err
		}
		if p.Result == sharedtypes.OutcomeSuccess && p.Score == nil {
			return apperrors.Validationf("%s with result SUCCESS requires a score", ev.Type)
		}
	case sharedtypes.EventKohRanking:
		p := ev.KohRanking
		if err := requireIDs(ev.Type, int64(p.ServiceID)); err != nil {
			return err
		}
		for i, row := range p.Results {
			if row.TeamID <= 0 {
				return apperrors.Validationf("%s ranking row %d has no team_id", ev.Type, i)
			}
		}
	case sharedtypes.EventPcapCreated:
		return validatePcap(ev.Type, &ev.PcapCreated.Pcap)
	case sharedtypes.EventPcapReleased:
		return validatePcap(ev.Type, &ev.PcapReleased.Pcap)
	case sharedtypes.EventStealth:
		p := ev.Stealth
		return requireIDs(ev.Type, int64(p.ServiceID), int64(p.SrcTeamID), int64(p.DstTeamID))
	}
	return nil
}

func validateScript(t sharedtypes.EventType, p *eventdb.ScriptRun) error {
	if err := requireIDs(t, int64(p.TeamID), int64(p.ServiceID)); err != nil {
		return err
	}
	if p.IP == "" || p.TheScript == "" {
		return apperrors.Validationf("%s requires ip and the_script", t)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return apperrors.Validationf("%s port %d out of range", t, p.Port)
	}
	return validOutcome(t, p.Result)
}

func validatePcap(t sharedtypes.EventType, p *eventdb.Pcap) error {
	if err := requireIDs(t, int64(p.TeamID), int64(p.ServiceID)); err != nil {
		return err
	}
	if p.PcapName == "" {
		return apperrors.Validationf("%s requires pcap_name", t)
	}
	return nil
}

func requireIDs(t sharedtypes.EventType, ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return apperrors.Validationf("%s is missing a required id", t)
		}
	}
	return nil
}

func validOutcome(t sharedtypes.EventType, o sharedtypes.Outcome) error {
	if !o.Valid() {
		return apperrors.Validationf("%s result must be SUCCESS or FAIL, got %q", t, o)
	}
	return nil
}
