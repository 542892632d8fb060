package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"albumsync/internal/auth"
	"albumsync/internal/config"
	"albumsync/internal/deps"
)

// CheckRemote verifies that the album service answers. The probe is sent
// without credentials, so 401 and 403 count as reachable.
func CheckRemote(ctx context.Context, baseURL string) Result {
	const name = "Remote service"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/albums?pageSize=1", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (unexpected status %d)", base, resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLibrary verifies that an explicitly configured library path is
// readable. An empty path on a photos library means the system library.
func CheckLibrary(cfg *config.Config) Result {
	const name = "Library"

	path := strings.TrimSpace(cfg.Library.Path)
	if path == "" {
		if cfg.Library.Kind == config.LibraryKindPhotos {
			return Result{Name: name, Passed: true, Detail: "system Photos library"}
		}
		return Result{Name: name, Detail: "missing path"}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s, readable)", path, cfg.Library.Kind)}
}

// CheckCredentialsFromConfig verifies that an OAuth client is configured.
func CheckCredentialsFromConfig(cfg *config.Config) Result {
	const name = "OAuth client"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	oc, err := auth.OAuthConfig(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("client %s", abbreviate(oc.ClientID))}
}

// CheckTokenFromConfig reports the cached token state. A missing token is not
// a failure; the next run asks for consent.
func CheckTokenFromConfig(cfg *config.Config) Result {
	const name = "Cached token"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	store := auth.NewFileTokenStore(cfg.Auth.TokenFile)
	state, err := store.Load()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if state.Empty() {
		return Result{Name: name, Passed: true, Detail: "none (consent required on next run)"}
	}
	missing := missingScopes(state.Scopes)
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing scopes: %s (run 'albumsync auth login')", strings.Join(missing, ", "))}
	}
	if state.RefreshToken == "" && !state.Expiry.IsZero() && state.Expiry.Before(time.Now()) {
		return Result{Name: name, Detail: "expired without refresh token (run 'albumsync auth login')"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (all scopes granted)", store.Path())}
}

// CheckSystemDeps evaluates the external binaries the configuration needs.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckConfigured(cfg)
}

func missingScopes(granted []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	var missing []string
	for _, s := range auth.Scopes {
		if _, ok := have[s]; !ok {
			missing = append(missing, s[strings.LastIndexByte(s, '/')+1:])
		}
	}
	return missing
}

func abbreviate(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (service unreachable)"
	}
	return err.Error()
}
