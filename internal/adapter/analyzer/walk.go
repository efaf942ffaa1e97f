// Package analyzer implements the repository tree analysis: one walk over a
// checked-out tree producing file categories, checksums, dependency lists
// and summary statistics.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

var _ scan.TreeAnalyzer = (*TreeWalker)(nil)

// Directories never worth walking: VCS metadata and vendored dependencies.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".terraform":   true,
	"__pycache__":  true,
	".venv":        true,
}

// TreeWalker is the default scan.TreeAnalyzer. Stateless; safe for
// concurrent use.
type TreeWalker struct{}

func NewTreeWalker() *TreeWalker {
	return &TreeWalker{}
}

func (w *TreeWalker) AnalyzeTree(ctx context.Context, root string) (*scan.TreeReport, error) {
	// Honor the repository's own ignore rules; a missing or malformed
	// .gitignore just means nothing extra is skipped.
	ignorer, _ := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))

	var files []scan.AnalyzedFile
	deps := make(map[string][]string)
	var stats scan.Statistics

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if ignorer != nil && ignorer.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		checksum, sumErr := checksumFile(path)
		if sumErr != nil {
			return sumErr
		}

		category := categorize(rel)
		files = append(files, scan.AnalyzedFile{
			Path:     rel,
			Category: category,
			Checksum: checksum,
			Size:     info.Size(),
		})

		stats.TotalFiles++
		stats.TotalBytes += info.Size()
		switch category {
		case scan.CategoryInfrastructure:
			stats.Infrastructure++
		case scan.CategoryCode:
			stats.Code++
		case scan.CategoryConfig:
			stats.Config++
		}

		if ecosystem, names, ok := parseManifest(rel, path); ok {
			stats.Manifests++
			deps[ecosystem] = append(deps[ecosystem], names...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return &scan.TreeReport{
		Files:        files,
		Dependencies: deps,
		Stats:        stats,
		Fingerprint:  scan.Fingerprint(files, deps),
	}, nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var (
	infraExts = map[string]bool{
		".tf": true, ".tfvars": true, ".hcl": true,
	}
	codeExts = map[string]bool{
		".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true,
		".tsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
		".h": true, ".cpp": true, ".cc": true, ".cs": true, ".php": true,
		".swift": true, ".kt": true, ".scala": true, ".sh": true,
	}
	configExts = map[string]bool{
		".json": true, ".yaml": true, ".yml": true, ".toml": true,
		".ini": true, ".cfg": true, ".conf": true, ".env": true,
		".properties": true, ".xml": true,
	}
	infraPathPrefixes = []string{
		".github/workflows/", "terraform/", "k8s/", "kubernetes/", "helm/", "charts/", "ansible/",
	}
)

// categorize buckets a file by extension and path heuristics. Infrastructure
// checks run first so a workflow YAML lands there rather than in config.
func categorize(rel string) scan.FileCategory {
	base := filepath.Base(rel)
	ext := strings.ToLower(filepath.Ext(rel))

	if infraExts[ext] {
		return scan.CategoryInfrastructure
	}
	if base == "Dockerfile" || base == "Jenkinsfile" || strings.HasPrefix(base, "docker-compose") {
		return scan.CategoryInfrastructure
	}
	for _, prefix := range infraPathPrefixes {
		if strings.HasPrefix(rel, prefix) {
			return scan.CategoryInfrastructure
		}
	}
	if codeExts[ext] {
		return scan.CategoryCode
	}
	if configExts[ext] || strings.HasPrefix(base, ".env") {
		return scan.CategoryConfig
	}
	return scan.CategoryOther
}
