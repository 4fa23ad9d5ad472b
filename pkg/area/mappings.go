package area

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMarkers recognise the package attribute and the @package doc comment tag
var DefaultMarkers = []*regexp.Regexp{
	regexp.MustCompile(`#\[Package\('([a-zA-Z-]+)'\)\]`),
	regexp.MustCompile(`@package\s+([a-zA-Z-]+)`),
}

var DefaultExtensions = []string{"*.php", "*.js", "*.html.twig", "*.yaml", "*.xml"}

// Mappings is the static configuration of the classifier
type Mappings struct {
	// PackageToArea maps a package token found by a marker to an area label
	PackageToArea map[string]string
	// DirectoryToArea maps a path segment, or a slash separated directory prefix, to an area label
	DirectoryToArea map[string]string
	// DefaultArea is used when no file produced any evidence
	DefaultArea string
	// Extensions are glob patterns matched against the base name of a file
	Extensions []string
	// Markers are tried in order, the first capture group is the package token
	Markers []*regexp.Regexp
}

func DefaultMappings() Mappings {
	return Mappings{
		PackageToArea: map[string]string{
			"core":              "Area: Core",
			"buyers-experience": "Area: Buyers Experience",
			"administration":    "Area: Administration",
			"storefront":        "Area: Storefront",
			"checkout":          "Area: Checkout & Fulfilment",
			"inventory":         "Area: Inventory Managment",
			"services-settings": "Area: Services & Settings",
		},
		DirectoryToArea: map[string]string{
			"src/Core":                "Area: Core",
			"src/Core/Administration": "Area: Administration",
			"src/Core/Checkout":       "Area: Checkout & Fulfilment",
			"src/Storefront":          "Area: Storefront",
		},
		DefaultArea: "Area: Core",
		Extensions:  slices.Clone(DefaultExtensions),
		Markers:     slices.Clone(DefaultMarkers),
	}
}

func (m Mappings) Validate() error {
	var errs []error
	if m.DefaultArea == "" {
		errs = append(errs, errors.New("default area must not be empty"))
	}
	for _, pattern := range m.Extensions {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid extension pattern %q", pattern))
		}
	}
	for _, marker := range m.Markers {
		if marker == nil {
			errs = append(errs, errors.New("marker must not be nil"))
			continue
		}
		if marker.NumSubexp() != 1 {
			errs = append(errs, fmt.Errorf("marker %q must have exactly one capture group", marker.String()))
		}
	}
	for pkg, area := range m.PackageToArea {
		if area == "" {
			errs = append(errs, fmt.Errorf("package %q maps to an empty area", pkg))
		}
	}
	for dir, area := range m.DirectoryToArea {
		if area == "" {
			errs = append(errs, fmt.Errorf("directory %q maps to an empty area", dir))
		}
	}
	return errors.Join(errs...)
}

// Eligible reports whether the file at filePath is scanned for markers
func (m Mappings) Eligible(filePath string) bool {
	name := path.Base(filePath)
	for _, pattern := range m.Extensions {
		if match, err := doublestar.Match(pattern, name); err == nil && match {
			return true
		}
	}
	return false
}

// markerAreas returns the mapped area of every marker which matches content, in marker order.
// Tokens which have no mapping are returned separately.
func (m Mappings) markerAreas(content string) (areas []string, unknown []string) {
	for _, marker := range m.Markers {
		match := marker.FindStringSubmatch(content)
		if match == nil {
			continue
		}
		token := strings.ToLower(match[1])
		if area, ok := m.PackageToArea[token]; ok {
			areas = append(areas, area)
		} else {
			unknown = append(unknown, token)
		}
	}
	return areas, unknown
}

// directoryArea walks the path from the leaf towards the root. At every depth the directory
// prefix is looked up before the bare segment name.
func (m Mappings) directoryArea(filePath string) (string, bool) {
	segments := strings.Split(strings.Trim(filePath, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if area, ok := m.DirectoryToArea[strings.Join(segments[:i+1], "/")]; ok {
			return area, true
		}
		if area, ok := m.DirectoryToArea[segments[i]]; ok {
			return area, true
		}
	}
	return "", false
}
