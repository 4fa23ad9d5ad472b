// Package ticket holds the text rules that tie a pull request to its tracker ticket:
// finding the ticket number, and rewriting titles, changelogs and commit messages.
package ticket

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	DefaultPrefix        = "NEXT"
	DefaultChangelogGlob = "changelog/_unreleased/[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]-*.md"
)

// Rules applies the ticket conventions for one ticket key prefix, such as NEXT
type Rules struct {
	prefix        string
	changelogGlob string
	bodyPattern   *regexp.Regexp
	titlePattern  *regexp.Regexp
	tokenPattern  *regexp.Regexp
}

func NewRules(prefix, changelogGlob string) (*Rules, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if changelogGlob == "" {
		changelogGlob = DefaultChangelogGlob
	}
	if !doublestar.ValidatePattern(changelogGlob) {
		return nil, fmt.Errorf("invalid changelog glob %q", changelogGlob)
	}
	quoted := regexp.QuoteMeta(prefix)
	return &Rules{
		prefix:        prefix,
		changelogGlob: changelogGlob,
		// the ticket is referenced in the fourth section of the PR template
		bodyPattern:  regexp.MustCompile(`(?s)### 4\..*?` + quoted + `-(\d+).*?### 5\.`),
		titlePattern: regexp.MustCompile(quoted + `-(\d+)`),
		tokenPattern: regexp.MustCompile(`\s*` + quoted + `-\d+\s*(?:[-:|]\s*)?`),
	}, nil
}

// Key renders the ticket key for a ticket number
func (r *Rules) Key(number string) string {
	return r.prefix + "-" + number
}

// NumberFromBody finds the ticket number referenced between the "### 4." and "### 5." headings
func (r *Rules) NumberFromBody(body string) (string, bool) {
	return validNumber(r.bodyPattern.FindStringSubmatch(body))
}

func (r *Rules) NumberFromTitle(title string) (string, bool) {
	return validNumber(r.titlePattern.FindStringSubmatch(title))
}

// Number looks at the body first and the title second
func (r *Rules) Number(title, body string) (string, bool) {
	if number, ok := r.NumberFromBody(body); ok {
		return number, true
	}
	return r.NumberFromTitle(title)
}

// validNumber rejects placeholder numbers made of zeros only
func validNumber(match []string) (string, bool) {
	if len(match) < 2 {
		return "", false
	}
	if strings.Trim(match[1], "0") == "" {
		return "", false
	}
	return match[1], true
}

// Title prefixes title with the ticket key, removing every other key reference
func (r *Rules) Title(number, title string) string {
	stripped := strings.TrimSpace(r.tokenPattern.ReplaceAllString(title, " "))
	if stripped == "" {
		return r.Key(number)
	}
	return r.Key(number) + " - " + stripped
}

// IsChangelog reports whether filePath is an unreleased changelog entry
func (r *Rules) IsChangelog(filePath string) bool {
	matched, _ := doublestar.Match(r.changelogGlob, filePath)
	return matched
}

// Changelog replaces every issue line of a changelog with one for the ticket, inserted as the second line
func (r *Rules) Changelog(number, content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if strings.HasPrefix(line, "issue:") {
			continue
		}
		kept = append(kept, line)
	}
	at := min(1, len(kept))
	kept = append(kept[:at], append([]string{"issue: " + r.Key(number)}, kept[at:]...)...)
	return strings.Join(kept, "\n")
}

// CommitMessage makes sure the message starts with the ticket key and closes the PR
func (r *Rules) CommitMessage(number, message string, prNumber int) string {
	key := r.Key(number)
	if !strings.HasPrefix(message, key) {
		message = key + " - " + message
	}
	return fmt.Sprintf("%s\nfixes #%d", message, prNumber)
}

// Branch renders the name of the branch pushed to the merge request host
func (r *Rules) Branch(format, number string) string {
	if format == "" {
		format = "%s/auto-imported-from-github"
	}
	return fmt.Sprintf(format, strings.ToLower(r.Key(number)))
}
