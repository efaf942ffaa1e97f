package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes a deterministic digest of an analysis: SHA-256 over
// the sorted, NFC-normalized file paths with their checksums, plus the sorted
// dependency lists. Insensitive to walk order and to Unicode normalization
// differences between filesystems (macOS reports NFD paths).
func Fingerprint(files []AnalyzedFile, dependencies map[string][]string) string {
	lines := make([]string, 0, len(files)+len(dependencies))

	for _, f := range files {
		lines = append(lines, norm.NFC.String(f.Path)+"\x00"+f.Checksum)
	}

	for ecosystem, names := range dependencies {
		sorted := slices.Clone(names)
		slices.Sort(sorted)
		for _, name := range sorted {
			lines = append(lines, fmt.Sprintf("dep\x00%s\x00%s", ecosystem, norm.NFC.String(name)))
		}
	}

	slices.Sort(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
