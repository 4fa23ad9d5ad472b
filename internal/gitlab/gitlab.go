// Package gl opens merge requests for mirrored pull requests.
package gl

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type MergeRequest struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
	Labels       []string
}

type MergeRequester interface {
	// CreateMergeRequest opens the merge request and returns its web URL
	CreateMergeRequest(ctx context.Context, mr MergeRequest) (string, error)
}

type GLClient struct {
	client    *gitlab.Client
	projectID string
}

func NewClient(baseURL, token, projectID string) (*GLClient, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client for %s: %w", baseURL, err)
	}
	return &GLClient{client: client, projectID: projectID}, nil
}

func (gl *GLClient) CreateMergeRequest(ctx context.Context, mr MergeRequest) (string, error) {
	labels := gitlab.LabelOptions(mr.Labels)
	opts := &gitlab.CreateMergeRequestOptions{
		Title:              gitlab.Ptr(mr.Title),
		Description:        gitlab.Ptr(mr.Description),
		SourceBranch:       gitlab.Ptr(mr.SourceBranch),
		TargetBranch:       gitlab.Ptr(mr.TargetBranch),
		Labels:             &labels,
		RemoveSourceBranch: gitlab.Ptr(true),
		Squash:             gitlab.Ptr(false),
		AllowCollaboration: gitlab.Ptr(true),
	}
	created, _, err := gl.client.MergeRequests.CreateMergeRequest(gl.projectID, opts, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating merge request %s -> %s in project %s: %w", mr.SourceBranch, mr.TargetBranch, gl.projectID, err)
	}
	return created.WebURL, nil
}
