// Package tracker creates tracking tickets for imported pull requests.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/andygrunwald/go-jira"
	"github.com/multimediallc/pr-import-bot/internal/config"
	"github.com/trivago/tgo/tcontainer"
)

// PullRequest carries the pull request details copied into a ticket
type PullRequest struct {
	Title  string
	Body   string
	Link   string
	Author string
}

type Tracker interface {
	// CreateTicket creates a ticket for pr and returns its number without the project key
	CreateTicket(ctx context.Context, pr PullRequest, area string) (string, error)
}

type JiraTracker struct {
	client      *jira.Client
	settings    config.Tracker
	defaultArea string
}

// NewJiraTracker connects to the Jira instance at host. httpClient carries the authentication.
func NewJiraTracker(httpClient *http.Client, host string, settings config.Tracker, defaultArea string) (*JiraTracker, error) {
	client, err := jira.NewClient(httpClient, host)
	if err != nil {
		return nil, fmt.Errorf("creating Jira client for %s: %w", host, err)
	}
	return &JiraTracker{client: client, settings: settings, defaultArea: defaultArea}, nil
}

// BasicAuthClient authenticates with a user and an API token
func BasicAuthClient(user, token string) *http.Client {
	tp := jira.BasicAuthTransport{Username: user, Password: token}
	return tp.Client()
}

func (j *JiraTracker) CreateTicket(ctx context.Context, pr PullRequest, area string) (string, error) {
	issue := &jira.Issue{Fields: j.fields(pr, area)}
	created, res, err := j.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		return "", fmt.Errorf("creating ticket in %s: %w", j.settings.Project, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	number, ok := strings.CutPrefix(created.Key, j.settings.Project+"-")
	if !ok || number == "" {
		return "", fmt.Errorf("unexpected ticket key %q for project %s", created.Key, j.settings.Project)
	}
	return number, nil
}

func (j *JiraTracker) fields(pr PullRequest, area string) *jira.IssueFields {
	unknowns := tcontainer.NewMarshalMap()
	if field := j.settings.ProductAreaField; field != "" {
		unknowns[field] = map[string]string{"value": j.lookup(j.settings.ProductAreas, area)}
	}
	if field := j.settings.TeamField; field != "" {
		unknowns[field] = map[string]string{"value": j.lookup(j.settings.Teams, area)}
	}
	if field := j.settings.LinkField; field != "" {
		unknowns[field] = pr.Link
	}
	if field := j.settings.PublicField; field != "" && j.settings.PublicValueID != "" {
		unknowns[field] = map[string]string{"id": j.settings.PublicValueID}
	}
	if field := j.settings.AuthorField; field != "" {
		unknowns[field] = pr.Author
	}

	return &jira.IssueFields{
		Project:     jira.Project{Key: j.settings.Project},
		Type:        jira.IssueType{Name: j.settings.IssueType},
		Summary:     j.settings.SummaryPrefix + pr.Title,
		Description: ImportNote(pr.Body, pr.Link),
		Labels:      j.settings.Labels,
		Unknowns:    unknowns,
	}
}

// lookup maps area through values, falling back to the mapping of the default area
func (j *JiraTracker) lookup(values map[string]string, area string) string {
	if value, ok := values[area]; ok {
		return value
	}
	return values[j.defaultArea]
}

// ImportNote appends the link back to the pull request to body
func ImportNote(body, link string) string {
	return body + "\n\n---\n\nImported from Github. Please see: " + link
}
