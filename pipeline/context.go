package pipeline

import (
	"time"

	"github.com/google/uuid"

	"rental-insights/models"
	"rental-insights/utils"
)

// State is a pipeline stage. A run moves through the states in order.
type State int

const (
	StateIdle State = iota
	StateFetched
	StateParsed
	StateAggregated
	StateEnriched
	StateOutput
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateFetched:
		return "FETCHED"
	case StateParsed:
		return "PARSED"
	case StateAggregated:
		return "AGGREGATED"
	case StateEnriched:
		return "ENRICHED"
	case StateOutput:
		return "OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// RunContext carries everything scoped to a single pipeline run. A fresh one
// is built for every run and handed to each stage.
type RunContext struct {
	ID      string
	Started time.Time
	RunDate models.Date
	Logger  *utils.Logger

	state State
	clock func() time.Time
}

func newRunContext(clock func() time.Time, logger *utils.Logger) *RunContext {
	id := uuid.NewString()
	now := clock()
	return &RunContext{
		ID:      id,
		Started: now,
		RunDate: models.NewDate(now),
		Logger:  logger.With("run_id", id),
		clock:   clock,
	}
}

// State returns the last state the run reached.
func (rc *RunContext) State() State {
	return rc.state
}

// advance records the transition into s along with the number of items the
// stage produced.
func (rc *RunContext) advance(s State, items int) {
	rc.state = s
	rc.Logger.Info("[pipeline] %s: %d items (%s elapsed)", s, items, rc.Elapsed().Round(time.Millisecond))
}

// Elapsed is the time since the run started, measured on the run's clock.
func (rc *RunContext) Elapsed() time.Duration {
	return rc.clock().Sub(rc.Started)
}
