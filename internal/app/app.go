package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v63/github"
	"github.com/multimediallc/pr-import-bot/internal/config"
	"github.com/multimediallc/pr-import-bot/internal/fetch"
	"github.com/multimediallc/pr-import-bot/internal/git"
	gh "github.com/multimediallc/pr-import-bot/internal/github"
	gl "github.com/multimediallc/pr-import-bot/internal/gitlab"
	"github.com/multimediallc/pr-import-bot/internal/ticket"
	"github.com/multimediallc/pr-import-bot/internal/tracker"
	"github.com/multimediallc/pr-import-bot/pkg/area"
	f "github.com/multimediallc/pr-import-bot/pkg/functional"
	"github.com/sirupsen/logrus"
)

// Outcome summarises what one delivery changed
type Outcome struct {
	PR               int      `json:"pr"`
	Ticket           string   `json:"ticket"`
	TicketCreated    bool     `json:"ticket_created"`
	Areas            []string `json:"areas"`
	MostLikelyArea   string   `json:"most_likely_area"`
	AreasFromLabel   bool     `json:"areas_from_label"`
	Title            string   `json:"title"`
	ChangelogUpdated bool     `json:"changelog_updated"`
	MergeRequestURL  string   `json:"merge_request_url,omitempty"`
}

// ClientFactory creates a GitHub client scoped to the installation that sent the event
type ClientFactory func(ctx context.Context, owner, repo string, installationID int64) (gh.Client, error)

// FetcherFactory creates the content fetcher for PR files, given the installation's http client
type FetcherFactory func(httpClient *http.Client) area.Fetcher

type Mirrorer interface {
	Push(ctx context.Context, req git.MirrorRequest) error
}

// Dependencies of an App. Mirror and MergeRequests are optional, without them
// pull requests are labelled and ticketed but not mirrored.
type Dependencies struct {
	Config        *config.Config
	Clients       ClientFactory
	Fetchers      FetcherFactory
	Tracker       tracker.Tracker
	Mirror        Mirrorer
	MergeRequests gl.MergeRequester
	Logger        logrus.FieldLogger
}

// App handles pull request deliveries
type App struct {
	conf          *config.Config
	mappings      area.Mappings
	rules         *ticket.Rules
	clients       ClientFactory
	fetchers      FetcherFactory
	tracker       tracker.Tracker
	mirror        Mirrorer
	mergeRequests gl.MergeRequester
	log           logrus.FieldLogger
}

func New(deps Dependencies) (*App, error) {
	if deps.Config == nil {
		return nil, errors.New("missing config")
	}
	if deps.Clients == nil {
		return nil, errors.New("missing GitHub client factory")
	}
	if deps.Tracker == nil {
		return nil, errors.New("missing ticket tracker")
	}
	mappings, err := deps.Config.AreaMappings()
	if err != nil {
		return nil, fmt.Errorf("area mappings: %w", err)
	}
	rules, err := ticket.NewRules(deps.Config.TicketPrefix, deps.Config.ChangelogGlob)
	if err != nil {
		return nil, fmt.Errorf("ticket rules: %w", err)
	}

	fetchers := deps.Fetchers
	if fetchers == nil {
		rateLimit := deps.Config.FetchRateLimit
		fetchers = func(httpClient *http.Client) area.Fetcher {
			return fetch.NewHTTPFetcher(httpClient, rateLimit)
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &App{
		conf:          deps.Config,
		mappings:      mappings,
		rules:         rules,
		clients:       deps.Clients,
		fetchers:      fetchers,
		tracker:       deps.Tracker,
		mirror:        deps.Mirror,
		mergeRequests: deps.MergeRequests,
		log:           logger,
	}, nil
}

// Validate checks that the event asks for an import, in the order the checks are reported
func (a *App) Validate(event *github.PullRequestEvent) error {
	if event.GetAction() != a.conf.Action {
		return &ValidationError{Reason: fmt.Sprintf("action %q is not %q", event.GetAction(), a.conf.Action)}
	}
	if event.GetPullRequest() == nil {
		return &ValidationError{Reason: "missing pull request"}
	}
	if event.GetSender().GetLogin() == "" {
		return &ValidationError{Reason: "missing sender"}
	}
	if event.GetLabel().GetName() != a.conf.TriggerLabel {
		return &ValidationError{Reason: fmt.Sprintf("label %q is not %q", event.GetLabel().GetName(), a.conf.TriggerLabel)}
	}
	if event.GetInstallation().GetID() == 0 {
		return &ValidationError{Reason: "missing installation"}
	}
	return nil
}

// Handle imports the pull request of event
func (a *App) Handle(ctx context.Context, delivery string, event *github.PullRequestEvent) (*Outcome, error) {
	if err := a.Validate(event); err != nil {
		return nil, err
	}
	prNumber := event.GetPullRequest().GetNumber()
	owner := event.GetRepo().GetOwner().GetLogin()
	repo := event.GetRepo().GetName()
	log := a.log.WithFields(logrus.Fields{
		"delivery": delivery,
		"repo":     owner + "/" + repo,
		"pr":       prNumber,
	})

	client, err := a.clients(ctx, owner, repo, event.GetInstallation().GetID())
	if err != nil {
		return nil, fmt.Errorf("GitHub client: %w", err)
	}
	warnings := log.WriterLevel(logrus.WarnLevel)
	infos := log.WriterLevel(logrus.DebugLevel)
	defer func() {
		_ = warnings.Close()
		_ = infos.Close()
	}()
	client.SetWarningBuffer(warnings)
	client.SetInfoBuffer(infos)

	sender := event.GetSender().GetLogin()
	isMember, err := client.IsOrgMember(a.conf.GithubOrg, sender)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, &ForbiddenError{User: sender, Org: a.conf.GithubOrg}
	}

	// the payload may be stale by the time the label is removed
	if err := client.InitPR(prNumber); err != nil {
		return nil, fmt.Errorf("loading PR #%d: %w", prNumber, err)
	}
	pr := client.PR()

	firstCommit, err := client.FirstCommit()
	if err != nil {
		return nil, fmt.Errorf("first commit: %w", err)
	}
	if firstCommit == nil {
		return nil, &NoCommitsError{PR: pr.GetNumber()}
	}

	fetcher := a.fetchers(client.HTTPClient())
	outcome := &Outcome{PR: pr.GetNumber()}

	result, fromLabel, err := a.labelAreas(ctx, client, fetcher, warnings)
	if err != nil {
		return nil, err
	}
	outcome.Areas = result.All()
	outcome.MostLikelyArea = result.MostLikelyCandidate()
	outcome.AreasFromLabel = fromLabel
	log = log.WithField("areas", outcome.Areas)
	log.Debug("areas decided")

	number, created, err := a.ensureTicket(ctx, pr, result.MostLikelyCandidate())
	if err != nil {
		return nil, err
	}
	outcome.Ticket = a.rules.Key(number)
	outcome.TicketCreated = created
	log = log.WithField("ticket", outcome.Ticket)
	if created {
		log.Info("ticket created")
	}

	title := a.rules.Title(number, pr.GetTitle())
	if title != pr.GetTitle() {
		if err := client.UpdateTitle(title); err != nil {
			return nil, fmt.Errorf("updating title: %w", err)
		}
	}
	outcome.Title = title

	outcome.ChangelogUpdated, err = a.updateChangelog(ctx, client, fetcher, number)
	if err != nil {
		return nil, err
	}

	outcome.MergeRequestURL, err = a.mirrorPR(ctx, pr, firstCommit, number, title)
	if err != nil {
		return nil, err
	}
	if outcome.MergeRequestURL == "" {
		log.Warn("mirroring is not configured, skipping merge request")
	}

	if err := client.RemoveLabel(a.conf.TriggerLabel); err != nil {
		return nil, fmt.Errorf("removing label %s: %w", a.conf.TriggerLabel, err)
	}

	log.WithField("merge_request", outcome.MergeRequestURL).Info("pull request imported")
	return outcome, nil
}

// labelAreas prefers an area label already on the PR, otherwise classifies its files and labels the PR
func (a *App) labelAreas(ctx context.Context, client gh.Client, fetcher area.Fetcher, warnings io.Writer) (area.Result, bool, error) {
	label, found, err := client.AreaLabel(a.conf.AreaLabelPrefix)
	if err != nil {
		return area.Result{}, false, fmt.Errorf("reading labels: %w", err)
	}
	if found {
		return area.SingleResult(label), true, nil
	}

	files, err := client.Files()
	if err != nil {
		return area.Result{}, false, fmt.Errorf("listing files: %w", err)
	}
	classifier := area.NewClassifier(a.mappings, fetcher,
		area.WithWorkers(a.conf.FetchWorkers),
		area.WithWarningWriter(warnings),
	)
	result, err := classifier.Decide(ctx, gh.ChangedFiles(files))
	if err != nil {
		return area.Result{}, false, err
	}
	if err := client.AddLabels(result.All()); err != nil {
		return area.Result{}, false, fmt.Errorf("adding labels: %w", err)
	}
	return result, false, nil
}

func (a *App) ensureTicket(ctx context.Context, pr *github.PullRequest, mostLikelyArea string) (string, bool, error) {
	if number, ok := a.rules.Number(pr.GetTitle(), pr.GetBody()); ok {
		return number, false, nil
	}
	number, err := a.tracker.CreateTicket(ctx, tracker.PullRequest{
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		Link:   pr.GetHTMLURL(),
		Author: pr.GetUser().GetLogin(),
	}, mostLikelyArea)
	if err != nil {
		return "", false, err
	}
	return number, true, nil
}

// updateChangelog points the first unreleased changelog of the PR at the ticket
func (a *App) updateChangelog(ctx context.Context, client gh.Client, fetcher area.Fetcher, number string) (bool, error) {
	files, err := client.Files()
	if err != nil {
		return false, fmt.Errorf("listing files: %w", err)
	}
	changelog, found := f.Find(files, func(file *github.CommitFile) bool {
		return file.GetStatus() != "removed" && a.rules.IsChangelog(file.GetFilename())
	})
	if !found {
		return false, nil
	}

	content, err := fetcher.Fetch(ctx, changelog.GetRawURL())
	if err != nil {
		return false, &area.FetchError{Path: changelog.GetFilename(), Err: err}
	}
	updated := a.rules.Changelog(number, content)
	if updated == content {
		return false, nil
	}
	if err := client.UpdateHeadFile(changelog.GetFilename(), updated, changelog.GetSHA(), a.conf.ChangelogMessage); err != nil {
		return false, err
	}
	return true, nil
}

// mirrorPR pushes the PR squashed onto its first commit and opens a merge request for it.
// It returns an empty URL when mirroring is not configured.
func (a *App) mirrorPR(ctx context.Context, pr *github.PullRequest, firstCommit *github.RepositoryCommit, number, title string) (string, error) {
	mirrorConf := a.conf.Mirror
	if a.mirror == nil || a.mergeRequests == nil || mirrorConf.RepoURL == "" {
		return "", nil
	}

	head := pr.GetHead()
	sourceURL := head.GetRepo().GetSSHURL()
	if sourceURL == "" {
		sourceURL = head.GetRepo().GetCloneURL()
	}
	branch := a.rules.Branch(mirrorConf.BranchFormat, number)
	err := a.mirror.Push(ctx, git.MirrorRequest{
		SourceURL:     sourceURL,
		SourceBranch:  head.GetRef(),
		BaseCommit:    firstCommit.GetSHA(),
		TargetURL:     mirrorConf.RepoURL,
		TargetBranch:  branch,
		CommitMessage: a.rules.CommitMessage(number, firstCommit.GetCommit().GetMessage(), pr.GetNumber()),
		AuthorName:    mirrorConf.AuthorName,
		AuthorEmail:   mirrorConf.AuthorEmail,
	})
	if err != nil {
		return "", err
	}

	return a.mergeRequests.CreateMergeRequest(ctx, gl.MergeRequest{
		SourceBranch: branch,
		TargetBranch: pr.GetBase().GetRef(),
		Title:        title,
		Description:  tracker.ImportNote(pr.GetBody(), pr.GetHTMLURL()),
		Labels:       mirrorConf.Labels,
	})
}
