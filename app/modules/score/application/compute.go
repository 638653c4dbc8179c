package scoreservice

import (
	"cmp"
	"slices"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

const (
	stolenPoints  = 1.0
	stealthPoints = 0.5
	kohSlots      = 5
)

// kohPoints maps a KOH position to its points.
var kohPoints = map[int]int{1: 10, 2: 6, 3: 3, 4: 2, 5: 1}

// TickInput is everything the scoring of one tick reads. Rankings are in
// recording order and the last one per service counts.
type TickInput struct {
	TickID       sharedtypes.TickID
	Teams        []rosterdb.Team
	ActiveNormal map[sharedtypes.ServiceID]bool
	ActiveKoh    map[sharedtypes.ServiceID]bool
	Steals       []eventdb.FlagStolen
	Stealth      []eventdb.Stealth
	Rankings     []eventdb.KohRanking
}

type stealthKey struct {
	src, dst sharedtypes.TeamID
	service  sharedtypes.ServiceID
}

// Compute scores a tick. Test teams get no entry and are ignored as attacker,
// victim and ranked participant.
func Compute(in TickInput) *scoredb.TickScores {
	out := &scoredb.TickScores{TickID: in.TickID, Teams: map[sharedtypes.TeamID]scoredb.TeamScore{}}
	testTeams := map[sharedtypes.TeamID]bool{}
	for _, team := range in.Teams {
		if team.IsTestTeam {
			testTeams[team.ID] = true
			continue
		}
		out.Teams[team.ID] = scoredb.TeamScore{
			ID:                 team.ID,
			ServiceAttack:      map[sharedtypes.ServiceID][]float64{},
			KohPointsByService: map[sharedtypes.ServiceID]int{},
		}
	}

	scoreAttack(out, in, testTeams)
	scoreKoh(out, in, testTeams)
	return out
}

func scoreAttack(out *scoredb.TickScores, in TickInput, testTeams map[sharedtypes.TeamID]bool) {
	stealthy := map[stealthKey]bool{}
	for _, s := range in.Stealth {
		stealthy[stealthKey{src: s.SrcTeamID, dst: s.DstTeamID, service: s.ServiceID}] = true
	}

	exploited := map[sharedtypes.ServiceID]map[sharedtypes.TeamID]bool{}
	for _, ev := range in.Steals {
		if testTeams[ev.ExploitTeamID] || testTeams[ev.VictimTeamID] || !in.ActiveNormal[ev.ServiceID] {
			continue
		}
		attacker, ok := out.Teams[ev.ExploitTeamID]
		if !ok {
			continue
		}
		if exploited[ev.ServiceID] == nil {
			exploited[ev.ServiceID] = map[sharedtypes.TeamID]bool{}
		}
		exploited[ev.ServiceID][ev.VictimTeamID] = true

		points := stolenPoints
		if stealthy[stealthKey{src: ev.ExploitTeamID, dst: ev.VictimTeamID, service: ev.ServiceID}] {
			points = stealthPoints
		}
		attacker.Attack += points
		attacker.ServiceAttack[ev.ServiceID] = append(attacker.ServiceAttack[ev.ServiceID], points)
		out.Teams[ev.ExploitTeamID] = attacker
	}

	// Defense is only awarded on services somebody exploited this tick.
	services := make([]sharedtypes.ServiceID, 0, len(exploited))
	for id := range exploited {
		services = append(services, id)
	}
	slices.Sort(services)
	for _, service := range services {
		for id, team := range out.Teams {
			if exploited[service][id] {
				continue
			}
			team.Defense++
			team.ServiceDefense = append(team.ServiceDefense, service)
			out.Teams[id] = team
		}
	}
}

func scoreKoh(out *scoredb.TickScores, in TickInput, testTeams map[sharedtypes.TeamID]bool) {
	latest := map[sharedtypes.ServiceID]eventdb.KohRanking{}
	var order []sharedtypes.ServiceID
	for _, r := range in.Rankings {
		if _, seen := latest[r.ServiceID]; !seen {
			order = append(order, r.ServiceID)
		}
		latest[r.ServiceID] = r
	}

	for _, service := range order {
		if !in.ActiveKoh[service] {
			continue
		}
		for teamID, points := range KohWalk(latest[service].Results, testTeams) {
			team, ok := out.Teams[teamID]
			if !ok {
				continue
			}
			team.KingOfTheHill += points
			team.KohPointsByService[service] = points
			out.Teams[teamID] = team
		}
	}
}

// KohWalk awards positions for one ranking. Rows are re-sorted by score
// descending, keeping stored order among equals. A non-positive score ends
// the walk; test-team rows are skipped without using a slot. A score equal to
// the previous scored row shares its position and still uses a slot.
func KohWalk(rows []eventdb.KohRankResult, testTeams map[sharedtypes.TeamID]bool) map[sharedtypes.TeamID]int {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b eventdb.KohRankResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	awarded := map[sharedtypes.TeamID]int{}
	slots, position := 0, 0
	var previous *float64
	for _, row := range sorted {
		if row.Score <= 0 {
			break
		}
		if testTeams[row.TeamID] {
			continue
		}
		if previous != nil && row.Score == *previous {
			awarded[row.TeamID] = kohPoints[position]
			slots++
			continue
		}
		if slots >= kohSlots {
			break
		}
		position = slots + 1
		awarded[row.TeamID] = kohPoints[position]
		slots++
		score := row.Score
		previous = &score
	}
	return awarded
}

// Aggregate sums every tick into standings, highest first with ties broken by
// ascending team id. Every non-test team appears, even with zero points.
func Aggregate(ticks []*scoredb.TickScores, teams []rosterdb.Team) []scoredb.Standing {
	totals := map[sharedtypes.TeamID]float64{}
	names := map[sharedtypes.TeamID]string{}
	for _, team := range teams {
		if team.IsTestTeam {
			continue
		}
		totals[team.ID] = 0
		names[team.ID] = team.Name
	}
	for _, tick := range ticks {
		for id, score := range tick.Teams {
			if _, ok := totals[id]; ok {
				totals[id] += score.Total()
			}
		}
	}

	standings := make([]scoredb.Standing, 0, len(totals))
	for id, total := range totals {
		standings = append(standings, scoredb.Standing{TeamID: id, Team: names[id], Score: total})
	}
	slices.SortFunc(standings, func(a, b scoredb.Standing) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.TeamID, b.TeamID)
	})
	for i := range standings {
		standings[i].Pos = i + 1
	}
	return standings
}

type bestScore struct {
	score float64
	data  *string
}

// RebuildRankings makes every team's KOH score monotonically non-decreasing
// across the given rankings, which must be ordered by tick then id. A score
// below the team's best earlier score is replaced by that score and its
// data, then each ranking is re-sorted and re-numbered. It returns the rows
// that changed and the ticks they belong to.
func RebuildRankings(events []eventdb.Event) ([]eventdb.KohRankResult, []sharedtypes.TickID) {
	best := map[sharedtypes.TeamID]bestScore{}
	var changed []eventdb.KohRankResult
	var ticks []sharedtypes.TickID

	for _, ev := range events {
		if ev.KohRanking == nil {
			continue
		}
		fixed := make([]eventdb.KohRankResult, len(ev.KohRanking.Results))
		for i, row := range ev.KohRanking.Results {
			prior := best[row.TeamID]
			switch {
			case prior.score > row.Score:
				row.Score = prior.score
				row.Data = prior.data
			case row.Score > prior.score:
				best[row.TeamID] = bestScore{score: row.Score, data: row.Data}
			}
			fixed[i] = row
		}
		slices.SortStableFunc(fixed, func(a, b eventdb.KohRankResult) int {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			return cmp.Compare(a.TeamID, b.TeamID)
		})

		original := map[int64]eventdb.KohRankResult{}
		for _, row := range ev.KohRanking.Results {
			original[row.ID] = row
		}
		tickChanged := false
		for i := range fixed {
			fixed[i].Rank = i + 1
			if !sameRow(original[fixed[i].ID], fixed[i]) {
				changed = append(changed, fixed[i])
				tickChanged = true
			}
		}
		if tickChanged && !slices.Contains(ticks, ev.TickID) {
			ticks = append(ticks, ev.TickID)
		}
	}
	return changed, ticks
}

func sameRow(a, b eventdb.KohRankResult) bool {
	if a.Rank != b.Rank || a.Score != b.Score {
		return false
	}
	if a.Data == nil || b.Data == nil {
		return a.Data == b.Data
	}
	return *a.Data == *b.Data
}
