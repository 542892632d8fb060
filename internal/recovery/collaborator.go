package recovery

import (
	"context"
	"strings"

	"albumsync/internal/services/osxphotos"
)

// Outcome is what a collaborator reported for one chunk.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports a zero exit status.
func (o Outcome) Succeeded() bool {
	return o.ExitCode == 0
}

// Collaborator materialises the requested items as "<id>.<ext>" files in
// outputDir. The error is reserved for runs that could not complete (start
// failure, timeout, cancellation); a finished run that failed reports a
// non-zero ExitCode.
type Collaborator interface {
	Recover(ctx context.Context, outputDir string, ids []string, libraryPath string) (Outcome, error)
}

// CommandOption configures a CommandCollaborator.
type CommandOption func(*CommandCollaborator)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec osxphotos.Executor) CommandOption {
	return func(c *CommandCollaborator) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithOutput forwards every output line of the tool to fn.
func WithOutput(fn func(string)) CommandOption {
	return func(c *CommandCollaborator) {
		c.onLine = fn
	}
}

// CommandCollaborator downloads originals from iCloud with osxphotos.
type CommandCollaborator struct {
	binary  string
	verbose bool
	exec    osxphotos.Executor
	onLine  func(string)
}

// NewCommandCollaborator builds a collaborator around the osxphotos binary.
func NewCommandCollaborator(binary string, verbose bool, opts ...CommandOption) *CommandCollaborator {
	c := &CommandCollaborator{binary: strings.TrimSpace(binary), verbose: verbose}
	if c.binary == "" {
		c.binary = "osxphotos"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recover runs one osxphotos export for ids.
func (c *CommandCollaborator) Recover(ctx context.Context, outputDir string, ids []string, libraryPath string) (Outcome, error) {
	clientOpts := []osxphotos.Option{osxphotos.WithLibrary(libraryPath)}
	if c.exec != nil {
		clientOpts = append(clientOpts, osxphotos.WithExecutor(c.exec))
	}
	client, err := osxphotos.New(c.binary, clientOpts...)
	if err != nil {
		return Outcome{}, err
	}
	result, err := client.Export(ctx, outputDir, osxphotos.ExportOptions{
		UUIDs:           ids,
		DownloadMissing: true,
		Retries:         2,
		Verbose:         c.verbose,
		OnLine:          c.onLine,
	})
	return Outcome{Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}, err
}

// NoopCollaborator recovers nothing. It serves libraries with no remote
// originals to fetch, leaving every item still missing.
type NoopCollaborator struct{}

// Recover reports success without producing files.
func (NoopCollaborator) Recover(context.Context, string, []string, string) (Outcome, error) {
	return Outcome{}, nil
}
