package utils

import (
	"fmt"
	"strings"
	"time"
)

// RunDirName builds the per-run backup directory name, e.g.
// "dev_2026-10-17_14-03-59".
func RunDirName(env string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s", env, t.Format("2006-01-02"), t.Format("15-04-05"))
}

// StagingName returns the temporary collection used by the staging
// strategy. Only the first segment of the run id is used to keep the
// namespace short.
func StagingName(collection, runID string) string {
	id := runID
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return fmt.Sprintf("%s__sync_%s", collection, id)
}

var affirmative = map[string]bool{
	"si":  true,
	"s":   true,
	"yes": true,
	"y":   true,
}

// IsAffirmative reports whether a typed confirmation answer means yes.
func IsAffirmative(answer string) bool {
	return affirmative[strings.ToLower(strings.TrimSpace(answer))]
}
