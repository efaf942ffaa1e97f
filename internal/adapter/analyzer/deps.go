package analyzer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// parseManifest recognizes dependency manifests by basename and extracts
// declared dependency names. Formats that are not line-parseable (maven,
// gradle) record the manifest path instead of names.
func parseManifest(rel, path string) (ecosystem string, names []string, ok bool) {
	switch filepath.Base(rel) {
	case "go.mod":
		return "go", parseGoMod(path), true
	case "package.json":
		return "npm", parsePackageJSON(path), true
	case "requirements.txt":
		return "pypi", parseRequirements(path), true
	case "Gemfile":
		return "rubygems", parseGemfile(path), true
	case "Cargo.toml":
		return "cargo", parseCargoToml(path), true
	case "composer.json":
		return "composer", parseComposerJSON(path), true
	case "pom.xml":
		return "maven", []string{rel}, true
	case "build.gradle", "build.gradle.kts":
		return "gradle", []string{rel}, true
	}
	return "", nil, false
}

func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(string(data), "\n")
}

func parseGoMod(path string) []string {
	var names []string
	inBlock := false

	for _, line := range readLines(path) {
		line = strings.TrimSpace(line)
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
			fields := strings.Fields(line)
			if len(fields) >= 2 && !strings.HasPrefix(fields[0], "//") {
				names = append(names, fields[0])
			}
		}
	}
	return names
}

func parsePackageJSON(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	names := make([]string, 0, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name := range manifest.Dependencies {
		names = append(names, name)
	}
	for name := range manifest.DevDependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var requirementSeparators = []string{"==", ">=", "<=", "~=", "!=", ">", "<", ";", "["}

func parseRequirements(path string) []string {
	var names []string
	for _, line := range readLines(path) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		for _, sep := range requirementSeparators {
			if idx := strings.Index(line, sep); idx >= 0 {
				line = line[:idx]
			}
		}
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseGemfile(path string) []string {
	var names []string
	for _, line := range readLines(path) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "gem ") {
			continue
		}
		rest := strings.TrimPrefix(line, "gem ")
		rest = strings.Trim(rest, `"'`)
		if idx := strings.IndexAny(rest, `"',`); idx >= 0 {
			rest = rest[:idx]
		}
		if rest != "" {
			names = append(names, rest)
		}
	}
	return names
}

func parseCargoToml(path string) []string {
	var names []string
	inDeps := false

	for _, line := range readLines(path) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			section := strings.Trim(line, "[]")
			inDeps = section == "dependencies" || section == "dev-dependencies" ||
				strings.HasSuffix(section, ".dependencies")
			continue
		}
		if !inDeps || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, _, found := strings.Cut(line, "="); found {
			if name := strings.TrimSpace(key); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func parseComposerJSON(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Require map[string]string `json:"require"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	names := make([]string, 0, len(manifest.Require))
	for name := range manifest.Require {
		if name == "php" || strings.HasPrefix(name, "ext-") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
