package output

// PropertyReport describes one woven property.
type PropertyReport struct {
	Name      string `json:"name" yaml:"name"`
	Column    string `json:"column,omitempty" yaml:"column,omitempty"`
	Kind      string `json:"kind" yaml:"kind"`
	ValueKind string `json:"value_kind,omitempty" yaml:"value_kind,omitempty"`
	GoType    string `json:"go_type" yaml:"go_type"`
}

// TypeReport describes one model type.
type TypeReport struct {
	Name       string           `json:"name" yaml:"name"`
	Table      string           `json:"table" yaml:"table"`
	File       string           `json:"file" yaml:"file"`
	Woven      bool             `json:"woven" yaml:"woven"`
	Properties []PropertyReport `json:"properties" yaml:"properties"`
}

// WeaveReport is the result of the weave command.
type WeaveReport struct {
	Input    string       `json:"input" yaml:"input"`
	Output   string       `json:"output,omitempty" yaml:"output,omitempty"`
	Outcome  string       `json:"outcome" yaml:"outcome"`
	Phases   []string     `json:"phases" yaml:"phases"`
	Types    []TypeReport `json:"types" yaml:"types"`
	Files    []string     `json:"files,omitempty" yaml:"files,omitempty"`
	RunID    string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Duration string       `json:"duration" yaml:"duration"`
	Errors   []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// InspectReport is the result of the inspect command.
type InspectReport struct {
	Dir     string       `json:"dir" yaml:"dir"`
	Package string       `json:"package" yaml:"package"`
	Woven   bool         `json:"woven" yaml:"woven"`
	Types   []TypeReport `json:"types" yaml:"types"`
	Errors  []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// VerifierResult is the result of one verifier.
type VerifierResult struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// VerifyReport is the result of the verify command.
type VerifyReport struct {
	Original    string           `json:"original" yaml:"original"`
	Transformed string           `json:"transformed" yaml:"transformed"`
	Passed      bool             `json:"passed" yaml:"passed"`
	Results     []VerifierResult `json:"results" yaml:"results"`
}

// RunReport is one recorded weave run.
type RunReport struct {
	ID        string `json:"id" yaml:"id"`
	Input     string `json:"input" yaml:"input"`
	Output    string `json:"output" yaml:"output"`
	Outcome   string `json:"outcome" yaml:"outcome"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Duration  string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// HistoryReport is the result of the history command. Properties is set
// when a single run is shown.
type HistoryReport struct {
	Runs       []RunReport      `json:"runs" yaml:"runs"`
	Properties []PropertyReport `json:"properties,omitempty" yaml:"properties,omitempty"`
}
