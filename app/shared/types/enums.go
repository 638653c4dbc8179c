package sharedtypes

// GameState is the coarse lifecycle of the competition.
type GameState string

const (
	GameStateInit    GameState = "INIT"
	GameStateRunning GameState = "RUNNING"
	GameStatePaused  GameState = "PAUSED"
	GameStateStopped GameState = "STOPPED"
)

// Valid reports whether s is one of the known lifecycle values.
func (s GameState) Valid() bool {
	switch s {
	case GameStateInit, GameStateRunning, GameStatePaused, GameStateStopped:
		return true
	}
	return false
}

// ServiceType distinguishes flaggable services from ranked ones.
type ServiceType string

const (
	ServiceTypeNormal        ServiceType = "NORMAL"
	ServiceTypeKingOfTheHill ServiceType = "KING_OF_THE_HILL"
)

func (t ServiceType) Valid() bool {
	return t == ServiceTypeNormal || t == ServiceTypeKingOfTheHill
}

// IsolationType describes how a service is deployed across teams.
type IsolationType string

const (
	IsolationShared  IsolationType = "SHARED"
	IsolationPrivate IsolationType = "PRIVATE"
)

func (t IsolationType) Valid() bool {
	return t == IsolationShared || t == IsolationPrivate
}

// ServiceStatus is the operator-facing health indicator of a service.
type ServiceStatus string

const (
	ServiceStatusGood ServiceStatus = "GOOD"
	ServiceStatusOK   ServiceStatus = "OK"
	ServiceStatusLow  ServiceStatus = "LOW"
	ServiceStatusBad  ServiceStatus = "BAD"
)

func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceStatusGood, ServiceStatusOK, ServiceStatusLow, ServiceStatusBad:
		return true
	}
	return false
}

// EventType tags the payload carried by an event log entry.
type EventType string

const (
	EventExploitScript EventType = "EXPLOIT_SCRIPT"
	EventSlaScript     EventType = "SLA_SCRIPT"
	EventFlagStolen    EventType = "FLAG_STOLEN"
	EventSetFlag       EventType = "SET_FLAG"
	EventKohScoreFetch EventType = "KOH_SCORE_FETCH"
	EventKohRanking    EventType = "KOH_RANKING"
	EventPcapCreated   EventType = "PCAP_CREATED"
	EventPcapReleased  EventType = "PCAP_RELEASED"
	EventStealth       EventType = "STEALTH"
)

// AllEventTypes lists the event types in their canonical order.
var AllEventTypes = []EventType{
	EventExploitScript,
	EventSlaScript,
	EventFlagStolen,
	EventSetFlag,
	EventKohScoreFetch,
	EventKohRanking,
	EventPcapCreated,
	EventPcapReleased,
	EventStealth,
}

func (t EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TimestampEligible reports whether events of this type may be attributed to
// a tick by observation time instead of ingestion time.
func (t EventType) TimestampEligible() bool {
	return t == EventStealth
}

// Outcome is the SUCCESS/FAIL result carried by script, set-flag and
// score-fetch events.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFail
}

// SubmissionResult is the frozen classification of a flag submission.
type SubmissionResult string

const (
	SubmissionCorrect          SubmissionResult = "CORRECT"
	SubmissionIncorrect        SubmissionResult = "INCORRECT"
	SubmissionOwnFlag          SubmissionResult = "OWN_FLAG"
	SubmissionAlreadySubmitted SubmissionResult = "ALREADY_SUBMITTED"
	SubmissionTooOld           SubmissionResult = "TOO_OLD"
	SubmissionServiceInactive  SubmissionResult = "SERVICE_INACTIVE"
	SubmissionTestTeamFlag     SubmissionResult = "TEST_TEAM_FLAG"
)
