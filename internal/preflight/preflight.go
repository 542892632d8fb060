package preflight

import (
	"context"

	"albumsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes the local checks a sync run needs. Remote reachability is
// left to CheckRemote so offline dry runs still work.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckLibrary(cfg))
	results = append(results, CheckCredentialsFromConfig(cfg))
	return results
}
