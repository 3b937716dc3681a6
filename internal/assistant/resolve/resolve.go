// Package resolve maps free-text references ("opción 2", "la primera",
// "el daily") onto previously surfaced candidate items.
package resolve

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no resolution rule matches. Callers must
// ask the user to disambiguate rather than guess.
var ErrNotFound = errors.New("reference does not match any candidate")

// Candidate is one item previously shown to the user.
type Candidate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
	Space  string `json:"space,omitempty"`
	URL    string `json:"url,omitempty"`
}

// CandidateSet is the most recent list of items shown to the user,
// optionally partitioned into relevant and filtered subsets. Indices are
// 1-based: user-visible numbering covers the relevant subset first, then
// continues across the filtered subset.
type CandidateSet struct {
	Relevant []Candidate
	Filtered []Candidate
}

// Len returns the total number of candidates.
func (s CandidateSet) Len() int {
	return len(s.Relevant) + len(s.Filtered)
}

// IsEmpty reports whether the set holds no candidates at all.
func (s CandidateSet) IsEmpty() bool {
	return s.Len() == 0
}

// at returns the candidate at the 1-based combined index.
func (s CandidateSet) at(index int) (Candidate, bool, bool) {
	if index < 1 || index > s.Len() {
		return Candidate{}, false, false
	}
	if index <= len(s.Relevant) {
		return s.Relevant[index-1], false, true
	}
	return s.Filtered[index-1-len(s.Relevant)], true, true
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	Candidate Candidate

	// Index is the 1-based position within the combined list.
	Index int

	// WasFiltered reports whether the item came from the filtered subset.
	WasFiltered bool
}

var (
	optionPattern = regexp.MustCompile(`(?i)(?:opci[oó]n|n[uú]mero|#|[ií]tem)\s*(\d+)`)
	bareNumber    = regexp.MustCompile(`^\d+$`)
)

// Spanish ordinal stems, first through tenth. Stems match the gendered
// variants (primero/primera) without listing each one.
var ordinalStems = []string{
	"primer", "segund", "tercer", "cuart", "quint",
	"sext", "séptim", "octav", "noven", "décim",
}

// otherPhrases signal an explicit request for a filtered-out item.
var otherPhrases = []string{
	"la otra", "el otro", "las otras", "los otros",
	"no relevante", "irrelevante", "filtrad", "descartad",
}

// Resolve determines which candidate the user means. Rules are tried in
// order and the first match wins:
//
//  1. explicit request for a filtered item (by full title or "the other one" phrase)
//  2. numeric option ("opción 2", "#2", bare "2"), relevant subset first
//  3. ordinal word ("la primera", "el segundo")
//  4. "last" ("el último")
//  5. case-insensitive bidirectional substring match against titles
//
// Resolve is a pure function; persisting the result as the new current
// item is the caller's responsibility.
func Resolve(referenceText string, candidates CandidateSet) (*Resolved, error) {
	if candidates.IsEmpty() {
		return nil, ErrNotFound
	}
	text := strings.ToLower(strings.TrimSpace(referenceText))
	if text == "" {
		return nil, ErrNotFound
	}

	if resolved := matchFilteredRequest(text, candidates); resolved != nil {
		return resolved, nil
	}

	if index, ok := extractNumber(text); ok {
		return resolveIndex(index, candidates)
	}

	for i, stem := range ordinalStems {
		if strings.Contains(text, stem) {
			return resolveIndex(i+1, candidates)
		}
	}

	if strings.Contains(text, "últim") || strings.Contains(text, "ultim") {
		return resolveIndex(candidates.Len(), candidates)
	}

	return matchSubstring(text, candidates)
}

// matchFilteredRequest handles rule 1: the user explicitly asks for an
// item that was filtered out of the numbered listing.
func matchFilteredRequest(text string, candidates CandidateSet) *Resolved {
	if len(candidates.Filtered) == 0 {
		return nil
	}

	for _, phrase := range otherPhrases {
		if strings.Contains(text, phrase) {
			return &Resolved{
				Candidate:   candidates.Filtered[0],
				Index:       len(candidates.Relevant) + 1,
				WasFiltered: true,
			}
		}
	}

	// Naming a filtered item requires the whole title in the reference;
	// a shared word is not enough. Partial titles fall through to the
	// substring rule, which tries the relevant subset first.
	for i, c := range candidates.Filtered {
		title := strings.ToLower(strings.TrimSpace(c.Title))
		if title != "" && strings.Contains(text, title) {
			return &Resolved{
				Candidate:   c,
				Index:       len(candidates.Relevant) + i + 1,
				WasFiltered: true,
			}
		}
	}
	return nil
}

// extractNumber handles the numeric option pattern and bare integers.
func extractNumber(text string) (int, bool) {
	if m := optionPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if bareNumber.MatchString(text) {
		n, err := strconv.Atoi(text)
		return n, err == nil
	}
	return 0, false
}

// resolveIndex treats index as 1-based into the relevant subset first,
// falling back to the combined list when out of range.
func resolveIndex(index int, candidates CandidateSet) (*Resolved, error) {
	if index >= 1 && index <= len(candidates.Relevant) {
		return &Resolved{Candidate: candidates.Relevant[index-1], Index: index}, nil
	}
	if c, wasFiltered, ok := candidates.at(index); ok {
		return &Resolved{Candidate: c, Index: index, WasFiltered: wasFiltered}, nil
	}
	return nil, ErrNotFound
}

// matchSubstring handles rule 5 over both subsets, relevant first.
func matchSubstring(text string, candidates CandidateSet) (*Resolved, error) {
	for i, c := range candidates.Relevant {
		if substringMatch(text, c.Title) {
			return &Resolved{Candidate: c, Index: i + 1}, nil
		}
	}
	for i, c := range candidates.Filtered {
		if substringMatch(text, c.Title) {
			return &Resolved{
				Candidate:   c,
				Index:       len(candidates.Relevant) + i + 1,
				WasFiltered: true,
			}, nil
		}
	}
	return nil, ErrNotFound
}

// substringMatch is case-insensitive and bidirectional: the reference may
// contain the title or the title may contain the reference.
func substringMatch(text, title string) bool {
	loweredTitle := strings.ToLower(strings.TrimSpace(title))
	if loweredTitle == "" {
		return false
	}
	return strings.Contains(text, loweredTitle) || strings.Contains(loweredTitle, text)
}
