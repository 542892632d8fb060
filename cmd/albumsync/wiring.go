package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"albumsync/internal/auth"
	"albumsync/internal/config"
	"albumsync/internal/ledger"
	"albumsync/internal/library"
	"albumsync/internal/logging"
	"albumsync/internal/recovery"
	"albumsync/internal/remote"
	"albumsync/internal/resolver"
	"albumsync/internal/retry"
	"albumsync/internal/runlock"
	"albumsync/internal/syncer"
	"albumsync/internal/transfer"
)

type runtimeOptions struct {
	libraryPath     string
	recoveryVerbose bool
	// consentOut receives the authorization URL when consent is needed.
	consentOut io.Writer
}

// syncRuntime owns every resource a sync run holds open.
type syncRuntime struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *runlock.Lock
	ledger   *ledger.Store
	library  library.Library
	provider *auth.Provider
	engine   *syncer.Engine
}

func openSyncRuntime(cfg *config.Config, logger *slog.Logger, opts runtimeOptions) (_ *syncRuntime, err error) {
	rt := &syncRuntime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	if rt.lock, err = runlock.Acquire(cfg.LockPath()); err != nil {
		return nil, err
	}
	if rt.ledger, err = ledger.Open(cfg.Ledger.Path); err != nil {
		return nil, err
	}
	if rt.library, err = library.Open(cfg, opts.libraryPath, library.WithLogger(logger)); err != nil {
		return nil, err
	}
	if rt.provider, err = newProvider(cfg, logger, opts.consentOut); err != nil {
		return nil, err
	}

	client, err := remote.New(remote.Config{
		BaseURL:    cfg.Remote.BaseURL,
		UploadURL:  cfg.Remote.UploadURL,
		Tokens:     rt.provider,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
	})
	if err != nil {
		return nil, err
	}

	policy := retry.Default()
	policy.MaxAttempts = cfg.Transfer.MaxAttempts
	policy.Unit = cfg.BackoffUnit()
	policy.Logger = logger
	pipeline := transfer.New(client, policy, logger)

	var collaborator recovery.Collaborator = recovery.NoopCollaborator{}
	if cfg.Library.Kind == config.LibraryKindPhotos {
		recoveryLogger := logging.NewComponentLogger(logger, "osxphotos")
		collaborator = recovery.NewCommandCollaborator(cfg.Recovery.Binary, opts.recoveryVerbose,
			recovery.WithOutput(func(line string) {
				if opts.recoveryVerbose {
					recoveryLogger.Info(line)
				} else {
					recoveryLogger.Debug(line)
				}
			}),
		)
	}
	recoverer := recovery.New(collaborator, pipeline, rt.ledger,
		recovery.WithChunkSize(cfg.Recovery.ChunkSize),
		recovery.WithTimeout(cfg.RecoveryTimeout()),
		recovery.WithLogger(logger),
	)

	rt.engine, err = syncer.New(syncer.Dependencies{
		Library:     rt.library,
		Ledger:      rt.ledger,
		Resolver:    resolver.New(client, cfg.Remote.PageSize, logger),
		Transfer:    pipeline,
		Recovery:    recoverer,
		Credentials: rt.provider,
		TempRoot:    cfg.Paths.TempDir,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// Close releases the ledger and the run lock.
func (rt *syncRuntime) Close() {
	if rt == nil {
		return
	}
	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			rt.logger.Warn("failed to close ledger", logging.Error(err))
		}
	}
	if rt.lock != nil {
		if err := rt.lock.Release(); err != nil {
			rt.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}
}

// newProvider builds the credential provider over the configured token file.
// A nil consentOut disables interactive consent.
func newProvider(cfg *config.Config, logger *slog.Logger, consentOut io.Writer) (*auth.Provider, error) {
	oc, err := auth.OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	var consent auth.ConsentFunc
	if consentOut != nil {
		consent = auth.LoopbackConsent{Out: consentOut}.Consent
	}
	return auth.NewProvider(oc,
		auth.WithTokenStore(auth.NewFileTokenStore(cfg.Auth.TokenFile)),
		auth.WithConsent(consent),
		auth.WithLogger(logger),
	)
}

// ensureAuthorized fetches a token up front so consent happens before the
// plan is shown rather than in the middle of the first destination.
func (rt *syncRuntime) ensureAuthorized(ctx context.Context) error {
	_, err := rt.provider.Token(ctx)
	return err
}
