package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"syscall"

	"albumsync/internal/logging"
	"albumsync/internal/remote"
	"albumsync/internal/retry"
	"albumsync/internal/services"
)

// ErrNotConfirmed reports a commit the service answered without confirming success.
var ErrNotConfirmed = errors.New("remote did not confirm media item creation")

// Service is the slice of the remote client the pipeline needs.
type Service interface {
	UploadBytes(ctx context.Context, filename string, body io.Reader, size int64) (string, error)
	BatchCreate(ctx context.Context, albumID, uploadToken, filename string) (remote.MediaItemResult, error)
}

// Pipeline runs the two-phase transfer protocol.
type Pipeline struct {
	service Service
	policy  retry.Policy
	logger  *slog.Logger
}

// New builds a Pipeline. The policy applies independently to each phase.
func New(service Service, policy retry.Policy, logger *slog.Logger) *Pipeline {
	logger = logging.NewComponentLogger(logger, "transfer")
	policy.Logger = logger
	return &Pipeline{service: service, policy: policy, logger: logger}
}

// Transfer uploads localPath and commits it into destinationID under the
// file's own name. It returns true only when the service confirmed the item
// was created. A false result carries the reason; errors.Is(err,
// retry.ErrExhausted) distinguishes items that ran out of retries from items
// the service rejected outright.
func (p *Pipeline) Transfer(ctx context.Context, localPath, destinationID string) (bool, error) {
	return p.TransferAs(ctx, localPath, "", destinationID)
}

// TransferAs is Transfer with the remote filename set to name. Exports are
// staged under item ids, so callers pass the library's filename here. An
// empty name falls back to the base name of localPath.
func (p *Pipeline) TransferAs(ctx context.Context, localPath, name, destinationID string) (bool, error) {
	filename := name
	if filename == "" {
		filename = filepath.Base(localPath)
	}
	logger := logging.WithContext(ctx, p.logger)

	var token string
	err := p.policy.Do(ctx, "upload", uploadRetryable, func(ctx context.Context) error {
		var uploadErr error
		token, uploadErr = p.upload(ctx, localPath, filename)
		return uploadErr
	})
	if err != nil {
		logger.Warn("upload failed", logging.String("file", filename), logging.Error(err))
		return false, fmt.Errorf("upload %s: %w", filename, err)
	}

	var result remote.MediaItemResult
	err = p.policy.Do(ctx, "commit", commitRetryable, func(ctx context.Context) error {
		var commitErr error
		result, commitErr = p.service.BatchCreate(ctx, destinationID, token, filename)
		return commitErr
	})
	if err != nil {
		logger.Warn("commit failed", logging.String("file", filename), logging.Error(err))
		return false, fmt.Errorf("commit %s: %w", filename, err)
	}
	if !result.Status.Succeeded() {
		logger.Warn("commit not confirmed",
			logging.String("file", filename),
			logging.Int("status_code", result.Status.Code),
			logging.String("status_message", result.Status.Message),
		)
		return false, services.Wrap(services.ErrValidation, "transfer", "commit",
			fmt.Sprintf("%s: status %d %q", filename, result.Status.Code, result.Status.Message), ErrNotConfirmed)
	}
	logger.Debug("media item created", logging.String("file", filename), logging.String("media_item_id", result.MediaItem.ID))
	return true, nil
}

func (p *Pipeline) upload(ctx context.Context, path, filename string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	return p.service.UploadBytes(ctx, filename, file, info.Size())
}

// uploadRetryable retries rate limiting, server errors and network failures.
func uploadRetryable(err error) bool {
	if errors.Is(err, remote.ErrEmptyUploadToken) || errors.Is(err, context.Canceled) {
		return false
	}
	if code := remote.StatusCode(err); code != 0 {
		return remote.IsRetryableStatus(code)
	}
	return isNetworkError(err)
}

// commitRetryable retries only responses that prove the commit was not applied.
func commitRetryable(err error) bool {
	code := remote.StatusCode(err)
	return code != 0 && remote.IsRetryableStatus(code)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
