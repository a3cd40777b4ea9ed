package updater

import (
	"path/filepath"

	"github.com/kerraform/kelock/internal/checksum"
	"github.com/kerraform/kelock/internal/lock"
)

type VerifyResult struct {
	Build   string
	Err     error
	Path    string
	Version string
}

// Verify re-hashes every artifact pinned in l that lives in downloadDir.
// Results keep the order of the lock file.
func Verify(l *lock.Lock, downloadDir string) []VerifyResult {
	var results []VerifyResult
	for _, version := range l.Versions() {
		builds, _ := l.Version(version)
		for _, build := range builds.Keys() {
			a, _ := builds.Get(build)
			path := filepath.Join(downloadDir, ArtifactFilename(version, build))
			results = append(results, VerifyResult{
				Build:   build,
				Err:     checksum.Verify(path, a.SHA256),
				Path:    path,
				Version: version,
			})
		}
	}

	return results
}
