// Package keywords implements the bounded keyword picker used when tagging
// records and when filtering browse views by keyword.
package keywords

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/pders01/folio/internal/debounce"
	"github.com/pders01/folio/internal/query"
)

// DefaultMax is the keyword limit for a single record.
const DefaultMax = 5

var wordPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Lookup finds known keywords similar to a fragment, best match first.
type Lookup interface {
	SimilarKeywords(ctx context.Context, fragment string) ([]string, error)
}

// ValidWord reports whether w is a well-formed keyword: lowercase ASCII
// letters, digits and hyphens.
func ValidWord(w string) bool {
	return wordPattern.MatchString(w)
}

// Normalize turns free text into keyword form: whitespace runs become
// hyphens, anything outside [a-z0-9-] is dropped.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Join(strings.Fields(text), "-")
	var b strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Split parses the comma-joined form produced by Set.Joined.
func Split(joined string) []string {
	var out []string
	for _, w := range strings.Split(joined, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Set is a bounded, duplicate-free keyword selection with suggestion state.
// It is not safe for concurrent use; the owning event loop serializes calls.
type Set struct {
	max        int
	selected   []string
	minted     map[string]bool
	candidates []string
	input      debounce.Value
	hasInput   bool
	fetching   bool
	lastErr    error
}

// NewSet returns a set limited to max entries, seeded with initial. Seeds
// beyond the limit or duplicated are dropped.
func NewSet(max int, initial ...string) *Set {
	if max < 1 {
		max = DefaultMax
	}
	s := &Set{max: max, minted: map[string]bool{}}
	for _, w := range initial {
		s.Select(w)
	}
	return s
}

// Max is the cardinality limit.
func (s *Set) Max() int { return s.max }

// Selected returns a copy of the selection in insertion order.
func (s *Set) Selected() []string {
	return append([]string(nil), s.selected...)
}

// Candidates returns the current suggestions, never including selected
// entries.
func (s *Set) Candidates() []string {
	return append([]string(nil), s.candidates...)
}

// Minted lists selected entries that were created rather than picked from
// known keywords, in selection order.
func (s *Set) Minted() []string {
	var out []string
	for _, w := range s.selected {
		if s.minted[w] {
			out = append(out, w)
		}
	}
	return out
}

// IsMinted reports whether entry was created with CreateNew.
func (s *Set) IsMinted(entry string) bool { return s.minted[entry] }

// Joined is the comma-separated selection.
func (s *Set) Joined() string { return strings.Join(s.selected, ",") }

// Full reports whether the limit has been reached. Lookups are disabled
// while full.
func (s *Set) Full() bool { return len(s.selected) >= s.max }

// Input is the pending, not yet committed, input text.
func (s *Set) Input() (string, bool) { return s.input.Raw(), s.hasInput }

// Fetching reports whether a lookup is scheduled or in flight.
func (s *Set) Fetching() bool { return s.fetching }

// Err is the last lookup failure, cleared by the next successful lookup.
func (s *Set) Err() error { return s.lastErr }

// Valid reports whether the pending input is empty or a well-formed word.
func (s *Set) Valid() bool {
	raw, ok := s.Input()
	return !ok || raw == "" || ValidWord(raw)
}

// Contains reports whether entry is selected.
func (s *Set) Contains(entry string) bool {
	for _, w := range s.selected {
		if w == entry {
			return true
		}
	}
	return false
}

// OnInputChange records new input text. When it returns schedule=true the
// caller must run a lookup for text after the debounce period and hand the
// token back to ApplyCandidates. Empty input clears suggestions at once.
func (s *Set) OnInputChange(text string) (token debounce.Token, schedule bool) {
	s.hasInput = true
	if text == "" {
		s.input.Reset("")
		s.candidates = nil
		s.fetching = false
		return 0, false
	}
	token = s.input.Input(text)
	if s.Full() {
		s.input.Cancel()
		s.fetching = false
		return 0, false
	}
	s.fetching = true
	return token, true
}

// Settle is called when the debounce timer for token fires. It returns the
// text to look up, or false when the token was superseded.
func (s *Set) Settle(token debounce.Token) (string, bool) {
	if !s.input.Settle(token) {
		return "", false
	}
	return s.input.Committed(), true
}

// ApplyCandidates installs lookup results for the committed text. Results
// for a superseded token are discarded and reported as false.
func (s *Set) ApplyCandidates(token debounce.Token, found []string, err error) bool {
	if token == 0 || !s.input.Current(token) {
		return false
	}
	s.fetching = false
	if err != nil {
		s.lastErr = err
		return true
	}
	s.lastErr = nil
	s.candidates = s.candidates[:0]
	seen := map[string]bool{}
	for _, w := range found {
		if w == "" || seen[w] || s.Contains(w) {
			continue
		}
		seen[w] = true
		s.candidates = append(s.candidates, w)
	}
	return true
}

// Select appends entry if it is absent and the set is not full. It reports
// whether the selection changed.
func (s *Set) Select(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" || s.Contains(entry) || s.Full() {
		return false
	}
	s.selected = append(s.selected, entry)
	s.dropCandidate(entry)
	if s.Full() {
		s.input.Cancel()
		s.fetching = false
	}
	return true
}

// CreateNew selects an entry that is not yet known to exist and marks it as
// minted. The caller decides whether and when to persist it.
func (s *Set) CreateNew(entry string) error {
	entry = strings.TrimSpace(entry)
	switch {
	case !s.Valid():
		raw, _ := s.Input()
		return &query.ValidationError{Field: "keyword", Value: raw, Reason: "only lowercase letters, digits and hyphens"}
	case entry == "":
		return &query.ValidationError{Field: "keyword", Reason: "must not be empty"}
	case !ValidWord(entry):
		return &query.ValidationError{Field: "keyword", Value: entry, Reason: "only lowercase letters, digits and hyphens"}
	case s.Contains(entry):
		return &query.ValidationError{Field: "keyword", Value: entry, Reason: "already selected"}
	case s.Full():
		return &query.ValidationError{Field: "keywords", Value: entry, Reason: "limit of " + strconv.Itoa(s.max) + " reached"}
	}
	s.Select(entry)
	s.minted[entry] = true
	return nil
}

// Deselect removes entry if present and reports whether it was.
func (s *Set) Deselect(entry string) bool {
	for i, w := range s.selected {
		if w == entry {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			delete(s.minted, entry)
			return true
		}
	}
	return false
}

func (s *Set) dropCandidate(entry string) {
	for i, w := range s.candidates {
		if w == entry {
			s.candidates = append(s.candidates[:i], s.candidates[i+1:]...)
			return
		}
	}
}
