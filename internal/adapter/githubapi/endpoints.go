package githubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/threatcanvas/integrations/internal/domain/webhook"
)

var (
	_ webhook.CommentPoster = (*Client)(nil)
	_ webhook.IssueOpener   = (*Client)(nil)
)

// Repository is the subset of GET /repos/{owner}/{repo} this service uses.
type Repository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	CloneURL      string `json:"clone_url"`
	Private       bool   `json:"private"`
}

// Issue is a created issue.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// IssueComment is a created issue or pull request comment.
type IssueComment struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// PullRequest is the subset of GET /repos/{owner}/{repo}/pulls/{n} this
// service uses.
type PullRequest struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Head   struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
}

func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var out Repository
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var out PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*Issue, error) {
	payload := map[string]any{"title": title, "body": body}
	if len(labels) > 0 {
		payload["labels"] = labels
	}

	var out Issue
	path := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*IssueComment, error) {
	payload := map[string]any{"body": body}

	var out IssueComment
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostPullRequestComment implements webhook.CommentPoster. PR comments are
// issue comments on the GitHub API. The pull request's state is checked
// first: an analysis kicked off by a synchronize burst can outlive the PR,
// and commenting on a merged or closed one is just noise.
func (c *Client) PostPullRequestComment(ctx context.Context, owner, repo string, number int, body string) error {
	pr, err := c.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return err
	}
	if pr.State != "open" {
		slog.InfoContext(ctx, "skipping comment on non-open pull request",
			"repository", owner+"/"+repo,
			"number", number,
			"state", pr.State,
		)
		return nil
	}

	_, err = c.CreateIssueComment(ctx, owner, repo, number, body)
	return err
}

// OpenIssue implements webhook.IssueOpener.
func (c *Client) OpenIssue(ctx context.Context, owner, repo, title, body string, labels []string) error {
	_, err := c.CreateIssue(ctx, owner, repo, title, body, labels)
	return err
}
