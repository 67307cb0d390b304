package weave

import "log/slog"

// Phase is a state of one weave invocation.
type Phase uint8

// Phases in the order a successful weave passes through them. Already woven
// modules go straight from PhaseUnwoven to PhaseWoven.
const (
	PhaseUnwoven Phase = iota
	PhaseScanning
	PhaseAnalyzing
	PhaseRewriting
	PhaseFinalizing
	PhaseWoven
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseUnwoven:    "unwoven",
	PhaseScanning:   "scanning",
	PhaseAnalyzing:  "analyzing",
	PhaseRewriting:  "rewriting",
	PhaseFinalizing: "finalizing",
	PhaseWoven:      "woven",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool { return p == PhaseWoven || p == PhaseFailed }

// Outcome is the final result of a weave invocation.
type Outcome uint8

// Outcomes.
const (
	OutcomeWoven Outcome = iota
	OutcomeAlreadyWoven
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWoven:
		return "woven"
	case OutcomeAlreadyWoven:
		return "already_woven"
	default:
		return "failed"
	}
}

func (r *Result) transition(logger *slog.Logger, p Phase) {
	from := PhaseUnwoven
	if n := len(r.Phases); n > 0 {
		from = r.Phases[n-1]
	}
	r.Phases = append(r.Phases, p)
	logger.Debug("weave phase", slog.String("from", from.String()), slog.String("to", p.String()))
}

// Phase returns the current phase.
func (r *Result) Phase() Phase {
	if len(r.Phases) == 0 {
		return PhaseUnwoven
	}
	return r.Phases[len(r.Phases)-1]
}
