// Package state records weave history in SQLite: one row per weave run and
// the property mapping of every type the run wove.
package state

import "time"

// Outcome values stored for a run. They match weave.Outcome strings plus
// OutcomeRunning for runs that have not completed.
const (
	OutcomeRunning      = "running"
	OutcomeWoven        = "woven"
	OutcomeAlreadyWoven = "already_woven"
	OutcomeFailed       = "failed"
)

// Run is one weave invocation.
type Run struct {
	ID          string
	InputDir    string
	OutputDir   string
	Outcome     string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// WovenProperty is the recorded mapping of one property of a woven type.
type WovenProperty struct {
	RunID     string
	Type      string
	Table     string
	Property  string
	Column    string
	Kind      string
	ValueKind string
	GoType    string
}

// Store is the weave history store.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(inputDir, outputDir string) (*Run, error)
	CompleteRun(id, outcome, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordProperties(runID string, props []WovenProperty) error
	ListProperties(runID string) ([]WovenProperty, error)
}
