package domain

import "context"

// Stage names a point in a run where a politeness pause may be taken.
type Stage string

const (
	StageSearch Stage = "search"
	StageLLM    Stage = "llm"
	StageMatch  Stage = "match"
)

// Pacer throttles outbound calls. Pause blocks until the stage may proceed
// or ctx is done.
type Pacer interface {
	Pause(ctx context.Context, stage Stage) error
}
