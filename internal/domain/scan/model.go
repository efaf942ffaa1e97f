package scan

import (
	"fmt"
	"strings"
	"time"
)

// RemoteRepositoryRef identifies a repository on a GitHub-compatible host.
// Immutable once constructed; ParseRepositoryURL is the only constructor.
type RemoteRepositoryRef struct {
	Owner         string
	Name          string
	CloneURL      string
	DefaultBranch string
}

func (r RemoteRepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepositoryURL extracts owner and name from a repository URL.
// Accepted forms: https://github.com/owner/repo(.git), github.com/owner/repo,
// git@github.com:owner/repo(.git). URLs that cannot yield both a non-empty
// owner and name are rejected with ErrInvalidInput.
func ParseRepositoryURL(rawURL string) (RemoteRepositoryRef, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return RemoteRepositoryRef{}, fmt.Errorf("%w: repository URL is required", ErrInvalidInput)
	}

	path := trimmed
	path = strings.TrimPrefix(path, "https://")
	path = strings.TrimPrefix(path, "http://")
	path = strings.TrimPrefix(path, "ssh://")
	if rest, ok := strings.CutPrefix(path, "git@"); ok {
		path = strings.Replace(rest, ":", "/", 1)
	}
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")

	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return RemoteRepositoryRef{}, fmt.Errorf("%w: URL %q lacks owner/repo", ErrInvalidInput, rawURL)
	}

	host, owner, name := parts[0], parts[1], parts[2]
	if host == "" || owner == "" || name == "" {
		return RemoteRepositoryRef{}, fmt.Errorf("%w: URL %q lacks owner/repo", ErrInvalidInput, rawURL)
	}
	if !isValidRepoName(owner) || !isValidRepoName(name) {
		return RemoteRepositoryRef{}, fmt.Errorf("%w: invalid characters in owner/repo", ErrInvalidInput)
	}

	return RemoteRepositoryRef{
		Owner:    owner,
		Name:     name,
		CloneURL: fmt.Sprintf("https://%s/%s/%s.git", host, owner, name),
	}, nil
}

func isValidRepoName(s string) bool {
	if s == "" || s == "." || s == ".." || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}

// FileCategory buckets files during the analysis tree walk.
type FileCategory string

const (
	CategoryInfrastructure FileCategory = "infrastructure"
	CategoryCode           FileCategory = "code"
	CategoryConfig         FileCategory = "config"
	CategoryOther          FileCategory = "other"
)

// AnalyzedFile is one file record produced by the tree walk.
type AnalyzedFile struct {
	Path     string
	Category FileCategory
	Checksum string
	Size     int64
}

// Statistics summarizes one analysis pass.
type Statistics struct {
	TotalFiles     int
	TotalBytes     int64
	Infrastructure int
	Code           int
	Config         int
	Manifests      int
}

// TreeReport is the raw output of walking a checked-out tree once.
type TreeReport struct {
	Files []AnalyzedFile
	// Dependencies maps ecosystem (go, npm, pypi, ...) to declared dependency names.
	Dependencies map[string][]string
	Stats        Statistics
	Fingerprint  string
}

// FilesByCategory groups the report's files for presentation.
func (r *TreeReport) FilesByCategory() map[FileCategory][]AnalyzedFile {
	grouped := make(map[FileCategory][]AnalyzedFile)
	for _, f := range r.Files {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped
}

// RepositoryAnalysis is the result of fetching and analyzing one repository.
// The struct may be persisted; the clone directory that produced it never
// outlives the FetchAndAnalyze call.
type RepositoryAnalysis struct {
	Repository RemoteRepositoryRef
	Branch     string
	CommitSHA  string
	Report     TreeReport
	AnalyzedAt time.Time
}

// BatchResult aggregates a multi-repository scan. The two maps are disjoint
// per URL and together cover the full (deduplicated) input set.
type BatchResult struct {
	Succeeded map[string]*RepositoryAnalysis
	Failed    map[string]error
}

// ThreatModel is the platform record a repository's analyses hang off.
type ThreatModel struct {
	ID        UUID
	Name      string // repository full name, unique
	CreatedBy UUID
	CreatedAt time.Time
}

// StaleModel is a threat model whose newest analysis is older than the
// rescan threshold.
type StaleModel struct {
	ID             UUID
	Name           string
	LastCommitSHA  string
	LastAnalyzedAt time.Time
}
