package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/multimediallc/pr-import-bot/pkg/area"
	f "github.com/multimediallc/pr-import-bot/pkg/functional"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "bot.toml"

type Config struct {
	Action           string   `toml:"action" yaml:"action"`
	TriggerLabel     string   `toml:"trigger_label" yaml:"trigger_label"`
	GithubOrg        string   `toml:"github_org" yaml:"github_org"`
	AreaLabelPrefix  string   `toml:"area_label_prefix" yaml:"area_label_prefix"`
	TicketPrefix     string   `toml:"ticket_prefix" yaml:"ticket_prefix"`
	ChangelogGlob    string   `toml:"changelog_glob" yaml:"changelog_glob"`
	ChangelogMessage string   `toml:"changelog_message" yaml:"changelog_message"`
	FetchWorkers     int      `toml:"fetch_workers" yaml:"fetch_workers"`
	FetchRateLimit   float64  `toml:"fetch_rate_limit" yaml:"fetch_rate_limit"`
	Areas            *Areas   `toml:"areas" yaml:"areas"`
	Tracker          *Tracker `toml:"tracker" yaml:"tracker"`
	Mirror           *Mirror  `toml:"mirror" yaml:"mirror"`
}

type Areas struct {
	Default     string            `toml:"default" yaml:"default"`
	Extensions  []string          `toml:"extensions" yaml:"extensions"`
	Markers     []string          `toml:"markers" yaml:"markers"`
	Packages    map[string]string `toml:"packages" yaml:"packages"`
	Directories map[string]string `toml:"directories" yaml:"directories"`
}

// Tracker describes the tickets created for pull requests without one
type Tracker struct {
	Project          string            `toml:"project" yaml:"project"`
	IssueType        string            `toml:"issue_type" yaml:"issue_type"`
	Labels           []string          `toml:"labels" yaml:"labels"`
	SummaryPrefix    string            `toml:"summary_prefix" yaml:"summary_prefix"`
	ProductAreaField string            `toml:"product_area_field" yaml:"product_area_field"`
	TeamField        string            `toml:"team_field" yaml:"team_field"`
	LinkField        string            `toml:"link_field" yaml:"link_field"`
	AuthorField      string            `toml:"author_field" yaml:"author_field"`
	PublicField      string            `toml:"public_field" yaml:"public_field"`
	PublicValueID    string            `toml:"public_value_id" yaml:"public_value_id"`
	ProductAreas     map[string]string `toml:"product_areas" yaml:"product_areas"`
	Teams            map[string]string `toml:"teams" yaml:"teams"`
}

// Mirror describes where pull requests are mirrored to
type Mirror struct {
	RepoURL      string   `toml:"repo_url" yaml:"repo_url"`
	ProjectID    string   `toml:"project_id" yaml:"project_id"`
	BranchFormat string   `toml:"branch_format" yaml:"branch_format"`
	Labels       []string `toml:"labels" yaml:"labels"`
	AuthorName   string   `toml:"author_name" yaml:"author_name"`
	AuthorEmail  string   `toml:"author_email" yaml:"author_email"`
	TempDir      string   `toml:"temp_dir" yaml:"temp_dir"`
}

// FileReader abstracts how the configuration file is read
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	PathExists(path string) bool
}

type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osFileReader) PathExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func Default() *Config {
	mappings := area.DefaultMappings()
	return &Config{
		Action:           "unlabeled",
		TriggerLabel:     "github-import",
		GithubOrg:        "shopware",
		AreaLabelPrefix:  "Area:",
		TicketPrefix:     "NEXT",
		ChangelogGlob:    "changelog/_unreleased/[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]-*.md",
		ChangelogMessage: "Update changelog",
		FetchWorkers:     area.DefaultWorkers,
		FetchRateLimit:   0,
		Areas: &Areas{
			Default:    mappings.DefaultArea,
			Extensions: slices.Clone(mappings.Extensions),
			Markers: []string{
				`#\[Package\('([a-zA-Z-]+)'\)\]`,
				`@package\s+([a-zA-Z-]+)`,
			},
			Packages:    mappings.PackageToArea,
			Directories: mappings.DirectoryToArea,
		},
		Tracker: &Tracker{
			Project:          "NEXT",
			IssueType:        "Story",
			Labels:           []string{"Github"},
			SummaryPrefix:    "[Github]",
			ProductAreaField: "customfield_14101",
			TeamField:        "customfield_12000",
			LinkField:        "customfield_12100",
			AuthorField:      "customfield_12101",
			PublicField:      "customfield_10202",
			PublicValueID:    "10110",
			ProductAreas: map[string]string{
				"Area: Core":                  "Platform | Core",
				"Area: Buyers Experience":     "Features | Buyers Experience",
				"Area: Administration":        "Platform | Admin",
				"Area: Storefront":            "Platform | Storefront",
				"Area: Checkout & Fulfilment": "Features | Checkout & Fulfilment",
				"Area: Inventory Managment":   "Features | Inventory Management",
				"Area: Services & Settings":   "Features | Services & Settings",
			},
			Teams: map[string]string{
				"Area: Core":                  "CT Core",
				"Area: Buyers Experience":     "ST Byte Club",
				"Area: Administration":        "CT Admin",
				"Area: Storefront":            "CT Storefront",
				"Area: Checkout & Fulfilment": "ST Codebusters",
				"Area: Inventory Managment":   "ST Barware",
				"Area: Services & Settings":   "ST Runtime Terror",
			},
		},
		Mirror: &Mirror{
			BranchFormat: "%s/auto-imported-from-github",
			Labels:       []string{"github"},
			AuthorName:   "shopwareBot",
			AuthorEmail:  "bot@shopware.com",
		},
	}
}

// ReadConfig reads the configuration at path on top of the defaults.
// A missing file yields the defaults. A nil fileReader reads from disk.
// Package and directory tables extend the default tables, lists replace them.
func ReadConfig(path string, fileReader FileReader) (*Config, error) {
	if fileReader == nil {
		fileReader = osFileReader{}
	}
	defaultConfig := Default()

	if !fileReader.PathExists(path) {
		return defaultConfig, nil
	}
	file, err := fileReader.ReadFile(path)
	if err != nil {
		return defaultConfig, err
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, config)
	default:
		err = toml.Unmarshal(file, config)
	}
	if err != nil {
		return defaultConfig, fmt.Errorf("parsing %s: %w", path, err)
	}
	if config.Areas == nil {
		config.Areas = defaultConfig.Areas
	}
	if config.Tracker == nil {
		config.Tracker = defaultConfig.Tracker
	}
	if config.Mirror == nil {
		config.Mirror = defaultConfig.Mirror
	}
	return config, nil
}

// AreaMappings compiles the [areas] section into classifier mappings
func (c *Config) AreaMappings() (area.Mappings, error) {
	markers := make([]*regexp.Regexp, 0, len(c.Areas.Markers))
	var errs []error
	for _, pattern := range c.Areas.Markers {
		marker, err := regexp.Compile(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("marker %q: %w", pattern, err))
			continue
		}
		markers = append(markers, marker)
	}
	if len(errs) > 0 {
		return area.Mappings{}, errors.Join(errs...)
	}

	packages := make(map[string]string, len(c.Areas.Packages))
	for token, label := range c.Areas.Packages {
		packages[strings.ToLower(token)] = label
	}
	mappings := area.Mappings{
		PackageToArea:   packages,
		DirectoryToArea: maps.Clone(c.Areas.Directories),
		DefaultArea:     c.Areas.Default,
		Extensions:      c.Areas.Extensions,
		Markers:         markers,
	}
	if err := mappings.Validate(); err != nil {
		return area.Mappings{}, err
	}
	return mappings, nil
}

// Warnings lists suspicious but valid settings
func (c *Config) Warnings() []string {
	warnings := make([]string, 0)
	known := f.NewSet(c.Areas.Default)
	for _, label := range c.Areas.Packages {
		known.Add(label)
	}
	for _, label := range c.Areas.Directories {
		known.Add(label)
	}

	if c.AreaLabelPrefix != "" {
		for _, label := range known.Items() {
			if !strings.HasPrefix(label, c.AreaLabelPrefix) {
				warnings = append(warnings, fmt.Sprintf("area %q does not start with the area label prefix %q", label, c.AreaLabelPrefix))
			}
		}
	}
	if _, ok := c.Tracker.ProductAreas[c.Areas.Default]; !ok {
		warnings = append(warnings, fmt.Sprintf("default area %q has no product area mapping", c.Areas.Default))
	}
	if _, ok := c.Tracker.Teams[c.Areas.Default]; !ok {
		warnings = append(warnings, fmt.Sprintf("default area %q has no team mapping", c.Areas.Default))
	}
	if c.Mirror.RepoURL == "" {
		warnings = append(warnings, "mirror repo_url is empty, pull requests cannot be mirrored")
	}
	if len(c.Areas.Extensions) == 0 {
		warnings = append(warnings, "no extensions configured, every change resolves to the default area")
	}
	slices.Sort(warnings)
	return warnings
}
