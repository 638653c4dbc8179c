package sharedtypes

import "strconv"

// TickID identifies a round. Tick ids are dense and start at 1.
type TickID int64

// TeamID identifies a team.
type TeamID int64

// ServiceID identifies a competition service.
type ServiceID int64

// FlagID identifies an issued flag.
type FlagID int64

// EventID identifies an event log entry.
type EventID int64

func (t TickID) String() string    { return strconv.FormatInt(int64(t), 10) }
func (t TeamID) String() string    { return strconv.FormatInt(int64(t), 10) }
func (s ServiceID) String() string { return strconv.FormatInt(int64(s), 10) }
func (f FlagID) String() string    { return strconv.FormatInt(int64(f), 10) }
func (e EventID) String() string   { return strconv.FormatInt(int64(e), 10) }

// Settled reports whether tick is far enough behind current that nothing
// submitted or ingested later can change its outcome. A flag from tick T is
// still CORRECT-submittable at T+window, so T settles at T+window+1.
func Settled(current, tick TickID, window int) bool {
	return int64(current)-int64(tick) > int64(window)
}

// LastSettled is the newest tick that became settled when current opened.
// It is below 1 while no tick has settled yet.
func LastSettled(current TickID, window int) TickID {
	return current - TickID(window) - 1
}
