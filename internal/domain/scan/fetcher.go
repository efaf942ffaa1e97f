package scan

import "context"

// FetchOptions control a single fetch-and-analyze call.
type FetchOptions struct {
	Branch string
	Depth  int
}

// FetchOption is a per-call functional option for Fetcher implementations.
type FetchOption func(*FetchOptions)

// WithBranch overrides the branch to clone. Empty values are ignored and the
// remote's default branch is used.
func WithBranch(branch string) FetchOption {
	return func(o *FetchOptions) {
		if branch != "" {
			o.Branch = branch
		}
	}
}

// WithDepth overrides the shallow-clone depth. Non-positive values are
// ignored and the default depth of 1 is used.
func WithDepth(depth int) FetchOption {
	return func(o *FetchOptions) {
		if depth > 0 {
			o.Depth = depth
		}
	}
}

// Fetcher clones a repository into an isolated temporary path and produces a
// structured analysis. The temporary path is removed on every exit path.
type Fetcher interface {
	FetchAndAnalyze(ctx context.Context, repoURL string, opts ...FetchOption) (*RepositoryAnalysis, error)
}

// TreeAnalyzer walks a checked-out tree once and reports file categories,
// checksums, dependencies and statistics.
type TreeAnalyzer interface {
	AnalyzeTree(ctx context.Context, root string) (*TreeReport, error)
}

// HeadResolver resolves the current HEAD commit of a remote repository
// without cloning it.
type HeadResolver interface {
	ResolveHead(ctx context.Context, repoURL string) (string, error)
}
