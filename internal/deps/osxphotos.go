package deps

import (
	"strings"

	"albumsync/internal/config"
)

// Requirements lists the external binaries cfg needs. The photos library
// reads through osxphotos; recovery needs it for either library kind but only
// does useful work against a Photos library.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	photos := cfg.Library.Kind == config.LibraryKindPhotos
	if photos {
		reqs = append(reqs, Requirement{
			Name:        "osxphotos",
			Command:     cfg.Library.Binary,
			Description: "Required to read the Photos library",
		})
	}
	recoveryBinary := strings.TrimSpace(cfg.Recovery.Binary)
	if !photos || recoveryBinary != strings.TrimSpace(cfg.Library.Binary) {
		reqs = append(reqs, Requirement{
			Name:        "osxphotos (recovery)",
			Command:     recoveryBinary,
			Description: "Downloads originals that are only in iCloud",
			Optional:    !photos,
		})
	}
	return reqs
}

// CheckConfigured evaluates Requirements(cfg).
func CheckConfigured(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}
