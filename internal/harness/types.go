package harness

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Pass bool   `json:"pass"`

	// Observed is what the case produced, in plain form (see Plain).
	Observed map[string]any `json:"observed,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true when every case passed.
	Pass bool `json:"pass"`

	Cases []CaseResult `json:"cases"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{Scenario: scenario, Pass: true, Cases: []CaseResult{}}
}

// Add appends a case result and updates Pass.
func (r *Result) Add(c CaseResult) {
	if len(c.Errors) > 0 {
		c.Pass = false
	}
	if !c.Pass {
		r.Pass = false
	}
	r.Cases = append(r.Cases, c)
}

// Errors returns every failed expectation prefixed by its case name.
func (r *Result) Errors() []string {
	var out []string
	for _, c := range r.Cases {
		for _, e := range c.Errors {
			out = append(out, c.Name+": "+e)
		}
	}
	return out
}

func newCaseResult(c *Case) *CaseResult {
	return &CaseResult{Name: c.Name, Kind: c.Kind, Pass: true, Observed: map[string]any{}}
}

// fail records a failed expectation.
func (c *CaseResult) fail(msg string) {
	c.Errors = append(c.Errors, msg)
	c.Pass = false
}
