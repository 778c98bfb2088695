package tally

import (
	"fmt"
	"sort"
	"strings"

	"tally-backend/internal/model"
)

// ValidationError lists what is wrong with a center's counts. Fields maps a
// candidate ID to its message; Total is set when the sum is over the ceiling.
type ValidationError struct {
	Fields map[string]string `json:"fields,omitempty"`
	Total  string            `json:"total,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields)+1)
	if e.Total != "" {
		parts = append(parts, e.Total)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid vote counts: " + strings.Join(parts, "; ")
}

// Empty reports whether no problem was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || (len(e.Fields) == 0 && e.Total == "")
}

// SetField records a message for one candidate.
func (e *ValidationError) SetField(candidateID, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[candidateID] = msg
}

// CountError returns the message for a single count above the ceiling, or "".
func CountError(count, registered int) string {
	switch {
	case count < 0:
		return "Votes cannot be negative"
	case count > registered:
		return fmt.Sprintf("Votes cannot exceed registered voters (%d)", registered)
	}
	return ""
}

// TotalError returns the message for a total above the ceiling, or "".
func TotalError(total, registered int) string {
	if total > registered {
		return fmt.Sprintf("Total votes (%d) cannot exceed registered voters (%d)", total, registered)
	}
	return ""
}

// ValidateCounts checks counts against the center's registered-voter ceiling
// and the known candidates. It returns a *ValidationError or nil.
func ValidateCounts(center model.Center, candidates []model.Candidate, counts map[string]int) error {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	verr := &ValidationError{}
	total := 0
	for candidateID, n := range counts {
		if !known[candidateID] {
			verr.SetField(candidateID, "Unknown candidate")
			continue
		}
		if msg := CountError(n, center.RegisteredVoters); msg != "" {
			verr.SetField(candidateID, msg)
		}
		total += n
	}
	verr.Total = TotalError(total, center.RegisteredVoters)

	if verr.Empty() {
		return nil
	}
	return verr
}
