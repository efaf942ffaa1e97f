package webhook

// RepositoryInfo is the repository block common to GitHub webhook payloads.
type RepositoryInfo struct {
	FullName      string `json:"full_name"`
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// PushPayload is the subset of a push event this service consumes.
type PushPayload struct {
	Ref        string         `json:"ref"`
	After      string         `json:"after"`
	Repository RepositoryInfo `json:"repository"`
}

// PullRequestPayload is the subset of a pull_request event this service
// consumes.
type PullRequestPayload struct {
	Action      string         `json:"action"`
	Number      int            `json:"number"`
	Repository  RepositoryInfo `json:"repository"`
	PullRequest struct {
		Head struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}
