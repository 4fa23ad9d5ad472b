package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/multimediallc/pr-import-bot/pkg/area"
)

type OutputFormat string

const (
	FormatDefault OutputFormat = "default"
	FormatOneLine OutputFormat = "one-line"
	FormatJSON    OutputFormat = "json"
)

var allowedFormats = []string{string(FormatDefault), string(FormatOneLine), string(FormatJSON)}

func validateFormat(format string) (OutputFormat, error) {
	if !slices.Contains(allowedFormats, format) {
		return "", fmt.Errorf("invalid format %s. Must be one of %s", format, strings.Join(allowedFormats, ", "))
	}
	return OutputFormat(format), nil
}

func printResult(out io.Writer, result area.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		jsonString, err := json.Marshal(result)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(jsonString))
	case FormatOneLine:
		_, _ = fmt.Fprintln(out, strings.Join(result.All(), ", "))
	default:
		for _, label := range result.All() {
			if label == result.MostLikelyCandidate() {
				_, _ = fmt.Fprintf(out, "%s (most likely)\n", label)
				continue
			}
			_, _ = fmt.Fprintln(out, label)
		}
	}
	return nil
}

type fileEvidence struct {
	Path     string   `json:"path"`
	Areas    []string `json:"areas"`
	Unknown  []string `json:"unknown_packages,omitempty"`
	FromPath bool     `json:"from_path"`
}

func printEvidence(out io.Writer, evidence []fileEvidence, format OutputFormat) error {
	if format == FormatJSON {
		jsonString, err := json.Marshal(evidence)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(jsonString))
		return nil
	}
	for _, e := range evidence {
		source := "marker"
		if e.FromPath {
			source = "directory"
		}
		if len(e.Areas) == 0 {
			source = "none"
		}
		_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", e.Path, strings.Join(e.Areas, ", "), source)
	}
	return nil
}
