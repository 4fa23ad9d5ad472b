package area

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 8

// Evidence is what a single file says about its area
type Evidence struct {
	// Areas found for the file, in marker order or the single directory match
	Areas []string
	// UnknownPackages are marker tokens without an area mapping
	UnknownPackages []string
	// FromPath is set when Areas came from the directory fallback
	FromPath bool
}

type Classifier struct {
	mappings      Mappings
	fetcher       Fetcher
	workers       int
	warningWriter io.Writer
}

type Option func(*Classifier)

// WithWorkers bounds the number of concurrent fetches
func WithWorkers(workers int) Option {
	return func(c *Classifier) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithWarningWriter receives warnings about unmapped package tokens
func WithWarningWriter(w io.Writer) Option {
	return func(c *Classifier) {
		c.warningWriter = w
	}
}

func NewClassifier(mappings Mappings, fetcher Fetcher, opts ...Option) *Classifier {
	c := &Classifier{
		mappings:      mappings,
		fetcher:       fetcher,
		workers:       DefaultWorkers,
		warningWriter: io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Mappings() Mappings {
	return c.mappings
}

// Evidence inspects the content of a single file. Marker evidence wins, the directory
// fallback only applies when no marker produced a mapped area.
func (c *Classifier) Evidence(filePath string, content string) Evidence {
	areas, unknown := c.mappings.markerAreas(content)
	if len(areas) > 0 {
		return Evidence{Areas: areas, UnknownPackages: unknown}
	}
	if area, ok := c.mappings.directoryArea(filePath); ok {
		return Evidence{Areas: []string{area}, UnknownPackages: unknown, FromPath: true}
	}
	return Evidence{UnknownPackages: unknown}
}

// Decide classifies the files of a change. Content is fetched concurrently, but evidence is
// always tallied in the order of files. A single failed fetch fails the whole decision.
func (c *Classifier) Decide(ctx context.Context, files []ChangedFile) (Result, error) {
	evidence := make([]Evidence, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, file := range files {
		if !c.mappings.Eligible(file.Path) {
			continue
		}
		g.Go(func() error {
			content, err := c.fetcher.Fetch(gCtx, file.ContentRef)
			if err != nil {
				return &FetchError{Path: file.Path, Err: err}
			}
			evidence[i] = c.Evidence(file.Path, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for i, e := range evidence {
		for _, token := range e.UnknownPackages {
			_, _ = fmt.Fprintf(c.warningWriter, "WARNING: Unknown package %q in %s\n", token, files[i].Path)
		}
	}
	return tally(evidence, c.mappings.DefaultArea), nil
}

// tally folds the per file evidence into a Result. Ties on the highest count go to the area
// seen first.
func tally(evidence []Evidence, defaultArea string) Result {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, e := range evidence {
		for _, area := range e.Areas {
			if _, seen := counts[area]; !seen {
				order = append(order, area)
			}
			counts[area]++
		}
	}
	if len(order) == 0 {
		return SingleResult(defaultArea)
	}

	best := order[0]
	for _, area := range order[1:] {
		if counts[area] > counts[best] {
			best = area
		}
	}
	return MustResult(order, best)
}
