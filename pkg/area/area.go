// Package area decides which product areas a set of changed files belongs to.
//
// Evidence is collected per file from package markers in the file content, or, when the
// content carries no known marker, from the directories on the file's path. The evidence of
// all files is then tallied into a Result.
package area

import (
	"encoding/json"
	"fmt"
	"slices"

	f "github.com/multimediallc/pr-import-bot/pkg/functional"
)

// ChangedFile is one file touched by a pull request
type ChangedFile struct {
	// Path is the repository relative path of the file
	Path string
	// ContentRef is handed to a Fetcher to load the file content (a raw URL, a local path, ...)
	ContentRef string
}

type InvalidResultError struct {
	Candidate string
	All       []string
}

func (e InvalidResultError) Error() string {
	return fmt.Sprintf("most likely candidate %q must be in the list of areas %v", e.Candidate, e.All)
}

// Result is the outcome of a classification: every observed area in first-seen order and the
// single area most representative of the change
type Result struct {
	all                 []string
	mostLikelyCandidate string
}

// NewResult builds a Result, rejecting a candidate which is not part of all
func NewResult(all []string, mostLikelyCandidate string) (Result, error) {
	unique := f.RemoveDuplicates(slices.Clone(all))
	if !slices.Contains(unique, mostLikelyCandidate) {
		return Result{}, &InvalidResultError{Candidate: mostLikelyCandidate, All: unique}
	}
	return Result{all: unique, mostLikelyCandidate: mostLikelyCandidate}, nil
}

// MustResult is NewResult for callers which hold the invariant by construction
func MustResult(all []string, mostLikelyCandidate string) Result {
	r, err := NewResult(all, mostLikelyCandidate)
	if err != nil {
		panic(err)
	}
	return r
}

// SingleResult is the result of exactly one area
func SingleResult(area string) Result {
	return Result{all: []string{area}, mostLikelyCandidate: area}
}

func (r Result) All() []string {
	return slices.Clone(r.all)
}

func (r Result) MostLikelyCandidate() string {
	return r.mostLikelyCandidate
}

func (r Result) String() string {
	return fmt.Sprintf("%s %v", r.mostLikelyCandidate, r.all)
}

type resultJSON struct {
	All                 []string `json:"all"`
	MostLikelyCandidate string   `json:"most_likely_candidate"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{All: r.all, MostLikelyCandidate: r.mostLikelyCandidate})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res, err := NewResult(raw.All, raw.MostLikelyCandidate)
	if err != nil {
		return err
	}
	*r = res
	return nil
}
