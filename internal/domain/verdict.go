package domain

type ProblemEntry struct {
	Name       string   `json:"name"`
	Severity   Severity `json:"severity"`
	Text       string   `json:"text,omitempty"`
	Suppressed bool     `json:"suppressed,omitempty"`
}

type Verdict struct {
	UnitID      int64          `json:"unit_id"`
	DisplayName string         `json:"display_name"`
	Worst       Severity       `json:"worst_severity"`
	IsBad       bool           `json:"is_bad"`
	Fingerprint string         `json:"fingerprint"`
	Problems    []ProblemEntry `json:"problems,omitempty"`
}
