package main

import (
	"bytes"
	"testing"

	"github.com/multimediallc/pr-import-bot/pkg/area"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{
			name:    "valid default format",
			input:   "default",
			want:    FormatDefault,
			wantErr: false,
		},
		{
			name:    "valid one-line format",
			input:   "one-line",
			want:    FormatOneLine,
			wantErr: false,
		},
		{
			name:    "valid json format",
			input:   "json",
			want:    FormatJSON,
			wantErr: false,
		},
		{
			name:    "invalid format",
			input:   "invalid",
			want:    "",
			wantErr: true,
		},
		{
			name:    "empty format",
			input:   "",
			want:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("validateFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	result := area.MustResult([]string{"Area: Storefront", "Area: Core"}, "Area: Core")
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{
			name:   "default",
			format: FormatDefault,
			want:   "Area: Storefront\nArea: Core (most likely)\n",
		},
		{
			name:   "one-line",
			format: FormatOneLine,
			want:   "Area: Storefront, Area: Core\n",
		},
		{
			name:   "json",
			format: FormatJSON,
			want:   `{"all":["Area: Storefront","Area: Core"],"most_likely_candidate":"Area: Core"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			if err := printResult(out, result, tt.format); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("printResult() = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestPrintEvidence(t *testing.T) {
	evidence := []fileEvidence{
		{Path: "src/Core/Kernel.php", Areas: []string{"Area: Core"}},
		{Path: "src/Storefront/app.js", Areas: []string{"Area: Storefront"}, FromPath: true},
		{Path: "lib/util.php"},
	}
	out := &bytes.Buffer{}
	if err := printEvidence(out, evidence, FormatDefault); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "src/Core/Kernel.php: Area: Core (marker)\nsrc/Storefront/app.js: Area: Storefront (directory)\nlib/util.php:  (none)\n"
	if out.String() != want {
		t.Errorf("printEvidence() = %q, want %q", out.String(), want)
	}
}
