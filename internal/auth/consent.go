package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// ConsentFunc obtains a new token by asking the user to authorize the client.
type ConsentFunc func(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error)

// LoopbackConsent runs the installed-app flow: it serves a one-shot redirect
// handler on 127.0.0.1, prints the authorization URL, and exchanges the
// returned code (PKCE protected) for a token.
type LoopbackConsent struct {
	// Out receives the instructions. Defaults to stderr.
	Out io.Writer
	// Open is called with the authorization URL, for example to launch a browser.
	Open func(url string) error
	// Timeout bounds how long to wait for the redirect. Defaults to five minutes.
	Timeout time.Duration
}

type callbackResult struct {
	code string
	err  error
}

// Consent implements ConsentFunc.
func (l LoopbackConsent) Consent(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start loopback listener: %w", err)
	}
	defer listener.Close()

	flow := *oc
	flow.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()
	authURL := flow.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan callbackResult, 1)
	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			var res callbackResult
			switch {
			case query.Get("state") != state:
				res.err = errors.New("authorization callback state mismatch")
			case query.Get("error") != "":
				res.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
			case query.Get("code") == "":
				res.err = errors.New("authorization callback missing code")
			default:
				res.code = query.Get("code")
			}
			if res.err != nil {
				http.Error(w, res.err.Error(), http.StatusBadRequest)
			} else {
				_, _ = io.WriteString(w, "albumsync is authorized. You can close this window.\n")
			}
			select {
			case results <- res:
			default:
			}
		}),
	}
	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	out := l.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Open this URL in a browser and grant every requested permission:\n\n  %s\n\n", authURL)
	if l.Open != nil {
		if err := l.Open(authURL); err != nil {
			fmt.Fprintf(out, "Could not open a browser automatically: %v\n", err)
		}
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", waitCtx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := flow.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return tok, nil
	}
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
