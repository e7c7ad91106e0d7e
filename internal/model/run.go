package model

import "time"

// RunStage names the design step a ledger run records.
type RunStage string

const (
	RunStagePrep     RunStage = "prep"
	RunStageStratify RunStage = "stratify"
	RunStageSample   RunStage = "sample"
)

// RunStatus represents the current state of a design run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of a design stage, as persisted in the ledger.
type Run struct {
	ID        string         `json:"id"`
	Stage     RunStage       `json:"stage"`
	Status    RunStatus      `json:"status"`
	Seed      uint64         `json:"seed"`
	Params    map[string]any `json:"params,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
