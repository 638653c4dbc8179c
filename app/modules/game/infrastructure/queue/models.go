package gamequeue

import sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"

const (
	// QueueClock runs the periodic clock check on a single worker.
	QueueClock = "game_clock"
	// QueueScoring runs score settlement jobs.
	QueueScoring = "scoring"
)

// ClockCheckJob asks the game clock whether the current tick has elapsed.
type ClockCheckJob struct{}

// Kind returns the job type identifier for River
func (ClockCheckJob) Kind() string { return "game_clock_check" }

// ScoreSettleJob warms the score cache for a tick that has just settled.
type ScoreSettleJob struct {
	TickID sharedtypes.TickID `json:"tick_id"`
}

// Kind returns the job type identifier for River
func (ScoreSettleJob) Kind() string { return "score_settle" }
