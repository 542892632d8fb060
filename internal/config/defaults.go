package config

const (
	defaultStateDir          = "~/.local/share/albumsync"
	defaultTempDir           = "~/.local/share/albumsync/tmp"
	defaultLogDir            = "~/.local/share/albumsync/logs"
	defaultLedgerFile        = "ledger.db"
	defaultTokenFile         = "token.json"
	defaultClientSecretFile  = "~/.config/albumsync/client_secret.json"
	defaultLibraryKind       = LibraryKindPhotos
	defaultOsxphotosBinary   = "osxphotos"
	defaultRemoteBaseURL     = "https://photoslibrary.googleapis.com/v1"
	defaultRemoteUploadURL   = "https://photoslibrary.googleapis.com/v1/uploads"
	defaultAlbumPageSize     = 50
	maxAlbumPageSize         = 50
	defaultRequestTimeout    = 120
	defaultMaxAttempts       = 5
	defaultBackoffUnitMillis = 1000
	defaultRecoveryChunkSize = 50
	defaultRecoveryTimeout   = 300
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Library kinds understood by the library adapters.
const (
	LibraryKindPhotos    = "photos"
	LibraryKindDirectory = "directory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			TempDir:  defaultTempDir,
			LogDir:   defaultLogDir,
		},
		Library: Library{
			Kind:   defaultLibraryKind,
			Binary: defaultOsxphotosBinary,
		},
		Remote: Remote{
			BaseURL:        defaultRemoteBaseURL,
			UploadURL:      defaultRemoteUploadURL,
			PageSize:       defaultAlbumPageSize,
			RequestTimeout: defaultRequestTimeout,
		},
		Auth: Auth{
			ClientSecretFile: defaultClientSecretFile,
		},
		Transfer: Transfer{
			MaxAttempts:       defaultMaxAttempts,
			BackoffUnitMillis: defaultBackoffUnitMillis,
		},
		Recovery: Recovery{
			Binary:         defaultOsxphotosBinary,
			ChunkSize:      defaultRecoveryChunkSize,
			TimeoutSeconds: defaultRecoveryTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunSummary:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
