package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrArtifactNotFound is returned when no artifact exists under any known
// output location.
var ErrArtifactNotFound = errors.New("artifact not found in output directory")

// artifactExt is the extension the renderer writes its artifacts with.
const artifactExt = ".mp4"

// candidateDirs are the output layouts the renderer is known to produce,
// relative to the media directory, in priority order. The low-quality
// directory comes first because the default render profile writes there.
var candidateDirs = []string{
	filepath.Join("videos", sourceStem, "480p15"),
	filepath.Join("videos", sourceStem, "720p30"),
	filepath.Join("videos", sourceStem, "1080p60"),
	filepath.Join("videos", sourceStem, "2160p60"),
	filepath.Join("videos", sourceStem),
}

// Locate searches the renderer's known output layouts under outputRoot for
// the produced artifact. Within each candidate directory it prefers a file
// whose name contains nameHint; failing that it falls back to the first file
// with the artifact extension. The fallback is deliberate leniency: the
// renderer's exact output naming is not guaranteed, but its extension and
// directory conventions are, and strict one-workspace-per-job isolation means
// any artifact found can only belong to this job.
func Locate(outputRoot, nameHint string) (string, error) {
	for _, dir := range candidateDirs {
		full := filepath.Join(outputRoot, dir)
		entries, err := os.ReadDir(full)
		if err != nil {
			continue
		}

		fallback := ""
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExt) {
				continue
			}
			if strings.Contains(entry.Name(), nameHint) {
				return filepath.Join(full, entry.Name()), nil
			}
			if fallback == "" {
				fallback = filepath.Join(full, entry.Name())
			}
		}
		if fallback != "" {
			return fallback, nil
		}
	}
	return "", ErrArtifactNotFound
}
