package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"albumsync/internal/logging"
	"albumsync/internal/services"
)

// ErrNotAuthorized is returned when no token is cached and interactive consent is disabled.
var ErrNotAuthorized = errors.New("no cached credentials; run 'albumsync auth login'")

// ProviderOption customises Provider construction.
type ProviderOption func(*Provider)

// WithTokenStore injects a custom persistence layer.
func WithTokenStore(store TokenStore) ProviderOption {
	return func(p *Provider) {
		p.store = store
	}
}

// WithConsent overrides the interactive consent flow. A nil ConsentFunc
// disables interactive consent.
func WithConsent(consent ConsentFunc) ProviderOption {
	return func(p *Provider) {
		p.consent = consent
	}
}

// WithHTTPClient overrides the HTTP client used for token endpoint calls.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Provider hands out valid access tokens for the required scopes.
type Provider struct {
	oauth      *oauth2.Config
	store      TokenStore
	consent    ConsentFunc
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	ready bool
}

// NewProvider builds a Provider for the given oauth2 client configuration.
func NewProvider(oc *oauth2.Config, opts ...ProviderOption) (*Provider, error) {
	if oc == nil {
		return nil, errors.New("oauth config is nil")
	}
	p := &Provider{
		oauth:   oc,
		store:   &MemoryTokenStore{},
		consent: LoopbackConsent{}.Consent,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = &MemoryTokenStore{}
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	p.logger = logging.NewComponentLogger(p.logger, "auth")
	return p, nil
}

func (p *Provider) tokenContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Token returns a valid access token, refreshing or re-consenting as needed.
func (p *Provider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return nil, err
	}

	if !p.state.Empty() {
		current := p.state.oauthToken()
		refreshed, err := p.oauth.TokenSource(p.tokenContext(ctx), current).Token()
		if err == nil {
			if refreshed.AccessToken != current.AccessToken || !refreshed.Expiry.Equal(current.Expiry) {
				p.logger.Debug("access token refreshed", logging.String("expiry", refreshed.Expiry.Format(time.RFC3339)))
				if refreshed.RefreshToken == "" {
					refreshed.RefreshToken = current.RefreshToken
				}
				if err := p.saveLocked(stateFromToken(refreshed, p.state.Scopes)); err != nil {
					return nil, err
				}
			}
			return refreshed, nil
		}
		p.logger.Warn("token refresh failed; requesting new consent",
			logging.Error(err),
			logging.String(logging.FieldEventType, "token_refresh_failed"),
			logging.String(logging.FieldErrorHint, "approve access in the browser window"),
		)
	}
	return p.consentLocked(ctx)
}

// Reauthenticate discards cached credentials and runs the consent flow again.
func (p *Provider) Reauthenticate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Clear(); err != nil {
		return err
	}
	p.state = State{}
	p.ready = true
	_, err := p.consentLocked(ctx)
	return err
}

// Logout removes cached credentials.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = State{}
	p.ready = true
	return p.store.Clear()
}

// GrantedScopes returns the scopes recorded with the cached token.
func (p *Provider) GrantedScopes() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(); err != nil {
		return nil, err
	}
	return append([]string(nil), p.state.Scopes...), nil
}

func (p *Provider) loadLocked() error {
	if p.ready {
		return nil
	}
	state, err := p.store.Load()
	if err != nil {
		return err
	}
	if !state.Empty() && !scopesCover(state.Scopes, p.oauth.Scopes) {
		p.logger.Info("cached token has different scopes; discarding",
			logging.Any("cached_scopes", state.Scopes),
		)
		if err := p.store.Clear(); err != nil {
			return err
		}
		state = State{}
	}
	p.state = state
	p.ready = true
	return nil
}

func (p *Provider) consentLocked(ctx context.Context) (*oauth2.Token, error) {
	if p.consent == nil {
		return nil, services.Wrap(services.ErrAuthorization, "auth", "consent", ErrNotAuthorized.Error(), ErrNotAuthorized)
	}
	tok, err := p.consent(p.tokenContext(ctx), p.oauth)
	if err != nil {
		return nil, services.Wrap(services.ErrAuthorization, "auth", "consent", "authorization failed", err)
	}
	granted := grantedScopes(tok, p.oauth.Scopes)
	if !scopesCover(granted, p.oauth.Scopes) {
		p.logger.Warn("consent did not grant every required scope",
			logging.Any("granted_scopes", granted),
			logging.String(logging.FieldEventType, "scope_missing"),
			logging.String(logging.FieldErrorHint, "check every box on the consent screen"),
		)
	}
	if err := p.saveLocked(stateFromToken(tok, granted)); err != nil {
		return nil, err
	}
	p.logger.Info("authorization granted")
	return tok, nil
}

func (p *Provider) saveLocked(state State) error {
	if err := p.store.Save(state); err != nil {
		return err
	}
	p.state = state
	return nil
}
