package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// SanitizeSource replaces characters unsafe for filesystem paths
// Allows alphanumeric, dots, and hyphens. Replaces everything else with underscore.
func SanitizeSource(source string) string {
	return unsafePathChars.ReplaceAllString(source, "_")
}

// SourceName derives a run source name from a target list path: its base name
// without extension, e.g. "lists/top-1m.csv" -> "top-1m".
func SourceName(inputFile string) string {
	base := filepath.Base(inputFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RunDirPath generates a consistent directory path for a run
// Format: {baseDir}/{source}_{YYYYMMDD}_{HHMMSS}
func RunDirPath(baseDir string, source string, startedAt time.Time) string {
	timestamp := startedAt.Format("20060102_150405")
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s", SanitizeSource(source), timestamp))
}

// CreateRunDir creates a run directory with subdirectories for reports and raw output
func CreateRunDir(baseDir string, source string, startedAt time.Time) (string, error) {
	runPath := RunDirPath(baseDir, source, startedAt)

	for _, dir := range []string{runPath, filepath.Join(runPath, "reports"), filepath.Join(runPath, "raw")} {
		if err := EnsureDir(dir); err != nil {
			return "", err
		}
	}

	return runPath, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
