package gh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v63/github"
	"github.com/multimediallc/pr-import-bot/pkg/area"
	f "github.com/multimediallc/pr-import-bot/pkg/functional"
)

type NoPRError struct{}

func (e NoPRError) Error() string {
	return "PR not initialized"
}

type Client interface {
	SetWarningBuffer(writer io.Writer)
	SetInfoBuffer(writer io.Writer)
	InitPR(number int) error
	PR() *github.PullRequest
	HTTPClient() *http.Client
	IsOrgMember(org, user string) (bool, error)
	FirstCommit() (*github.RepositoryCommit, error)
	Files() ([]*github.CommitFile, error)
	AreaLabel(prefix string) (string, bool, error)
	AddLabels(labels []string) error
	RemoveLabel(label string) error
	UpdateTitle(title string) error
	UpdateHeadFile(path, content, sha, message string) error
}

type GHClient struct {
	ctx           context.Context
	owner         string
	repo          string
	client        *github.Client
	pr            *github.PullRequest
	files         []*github.CommitFile
	warningBuffer io.Writer
	infoBuffer    io.Writer
}

// NewClient creates a client for owner/repo sending requests through httpClient,
// which carries the authentication (see AppAuth)
func NewClient(ctx context.Context, owner, repo string, httpClient *http.Client) Client {
	return &GHClient{
		ctx:           ctx,
		owner:         owner,
		repo:          repo,
		client:        github.NewClient(httpClient),
		warningBuffer: io.Discard,
		infoBuffer:    io.Discard,
	}
}

func (gh *GHClient) PR() *github.PullRequest {
	return gh.pr
}

func (gh *GHClient) setPR(pr *github.PullRequest) {
	gh.pr = pr
	gh.files = nil
}

func (gh *GHClient) HTTPClient() *http.Client {
	return gh.client.Client()
}

func (gh *GHClient) SetWarningBuffer(writer io.Writer) {
	gh.warningBuffer = writer
}

func (gh *GHClient) SetInfoBuffer(writer io.Writer) {
	gh.infoBuffer = writer
}

func (gh *GHClient) InitPR(number int) error {
	pull, res, err := gh.client.PullRequests.Get(gh.ctx, gh.owner, gh.repo, number)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.setPR(pull)
	return nil
}

func (gh *GHClient) IsOrgMember(org, user string) (bool, error) {
	isMember, res, err := gh.client.Organizations.IsMember(gh.ctx, org, user)
	if err != nil {
		return false, fmt.Errorf("checking membership of %s in %s: %w", user, org, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return isMember, nil
}

// FirstCommit returns the oldest commit of the PR, or nil when the PR has none
func (gh *GHClient) FirstCommit() (*github.RepositoryCommit, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	listOptions := &github.ListOptions{PerPage: 1, Page: 1}
	commits, res, err := gh.client.PullRequests.ListCommits(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if len(commits) == 0 {
		return nil, nil
	}
	return commits[0], nil
}

// Files lists the files of the PR, cached after the first call
func (gh *GHClient) Files() ([]*github.CommitFile, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	if gh.files != nil {
		return gh.files, nil
	}
	allFiles := make([]*github.CommitFile, 0)
	listFiles := func(page int) (*github.Response, error) {
		listOptions := &github.ListOptions{PerPage: 100, Page: page}
		files, res, err := gh.client.PullRequests.ListFiles(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allFiles = append(allFiles, files...)
		return res, err
	}
	err := walkPaginatedApi(listFiles)
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(gh.infoBuffer, "Fetched %d files for PR #%d\n", len(allFiles), gh.pr.GetNumber())
	gh.files = allFiles
	return allFiles, nil
}

// ChangedFiles converts PR files into classifier input, addressing content by raw URL.
// Removed files have no content at head and are skipped.
func ChangedFiles(files []*github.CommitFile) []area.ChangedFile {
	present := f.Filtered(files, func(file *github.CommitFile) bool {
		return file.GetStatus() != "removed"
	})
	return f.Map(present, func(file *github.CommitFile) area.ChangedFile {
		return area.ChangedFile{Path: file.GetFilename(), ContentRef: file.GetRawURL()}
	})
}

// AreaLabel returns the first label of the PR starting with prefix
func (gh *GHClient) AreaLabel(prefix string) (string, bool, error) {
	if gh.pr == nil {
		return "", false, &NoPRError{}
	}
	var found *github.Label
	listLabels := func(page int) (*github.Response, error) {
		listOptions := &github.ListOptions{PerPage: 100, Page: page}
		labels, res, err := gh.client.Issues.ListLabelsByIssue(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		if found == nil {
			found, _ = f.Find(labels, func(label *github.Label) bool {
				return strings.HasPrefix(label.GetName(), prefix)
			})
		}
		return res, err
	}
	err := walkPaginatedApi(listLabels)
	if err != nil {
		return "", false, err
	}
	if found == nil {
		return "", false, nil
	}
	return found.GetName(), true, nil
}

func (gh *GHClient) AddLabels(labels []string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	if len(labels) == 0 {
		return nil
	}
	_, res, err := gh.client.Issues.AddLabelsToIssue(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), labels)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) RemoveLabel(label string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	res, err := gh.client.Issues.RemoveLabelForIssue(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), label)
	if res != nil && res.StatusCode == http.StatusNotFound {
		_, _ = fmt.Fprintf(gh.warningBuffer, "WARNING: Label %q already removed from PR #%d\n", label, gh.pr.GetNumber())
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) UpdateTitle(title string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	pull, res, err := gh.client.PullRequests.Edit(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), &github.PullRequest{Title: &title})
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.pr.Title = pull.Title
	if gh.pr.Title == nil {
		gh.pr.Title = &title
	}
	return nil
}

// UpdateHeadFile commits content to path on the PR head repository and branch.
// sha is the blob SHA of the file being replaced.
func (gh *GHClient) UpdateHeadFile(path, content, sha, message string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	head := gh.pr.GetHead()
	owner, repo := gh.owner, gh.repo
	if head.GetRepo() != nil {
		owner = head.GetRepo().GetOwner().GetLogin()
		repo = head.GetRepo().GetName()
	}
	opts := &github.RepositoryContentFileOptions{
		Message: &message,
		Content: []byte(content),
		SHA:     &sha,
		Branch:  github.String(head.GetRef()),
	}
	_, res, err := gh.client.Repositories.UpdateFile(gh.ctx, owner, repo, path, opts)
	if err != nil {
		return fmt.Errorf("updating %s on %s/%s@%s: %w", path, owner, repo, head.GetRef(), err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func walkPaginatedApi(apiCall func(int) (*github.Response, error)) error {
	page := 1
	for {
		res, err := apiCall(page)
		if err != nil {
			return err
		}
		if res.NextPage == 0 {
			break
		}
		page = res.NextPage
	}
	return nil
}
