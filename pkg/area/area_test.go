package area

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func TestNewResult(t *testing.T) {
	tt := []struct {
		name        string
		all         []string
		candidate   string
		expected    []string
		expectedErr bool
	}{
		{"candidate in list", []string{"core", "storefront"}, "storefront", []string{"core", "storefront"}, false},
		{"duplicates are removed keeping first order", []string{"core", "storefront", "core"}, "core", []string{"core", "storefront"}, false},
		{"candidate missing", []string{"core"}, "storefront", nil, true},
		{"empty list", []string{}, "core", nil, true},
		{"empty candidate", []string{"core"}, "", nil, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewResult(tc.all, tc.candidate)
			if tc.expectedErr {
				var invalid *InvalidResultError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected InvalidResultError, got %v", err)
				}
				if invalid.Candidate != tc.candidate {
					t.Errorf("expected candidate %q in error, got %q", tc.candidate, invalid.Candidate)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(result.All(), tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, result.All())
			}
			if result.MostLikelyCandidate() != tc.candidate {
				t.Errorf("expected %q, got %q", tc.candidate, result.MostLikelyCandidate())
			}
		})
	}
}

func TestNewResultDoesNotAliasInput(t *testing.T) {
	input := []string{"core", "storefront"}
	result, err := NewResult(input, "core")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input[0] = "changed"
	all := result.All()
	all[1] = "changed"
	if !slices.Equal(result.All(), []string{"core", "storefront"}) {
		t.Errorf("result was mutated through a shared slice: %v", result.All())
	}
}

func TestMustResultPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustResult to panic")
		}
	}()
	MustResult([]string{"core"}, "storefront")
}

func TestResultJSON(t *testing.T) {
	result := MustResult([]string{"Area: Core", "Area: Storefront"}, "Area: Storefront")
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"all":["Area: Core","Area: Storefront"],"most_likely_candidate":"Area: Storefront"}`
	if string(data) != expected {
		t.Errorf("expected %s, got %s", expected, data)
	}

	var decoded Result
	if err := json.Unmarshal([]byte(`{"all":["a"],"most_likely_candidate":"b"}`), &decoded); err == nil {
		t.Error("expected invalid result to be rejected while decoding")
	}
}
