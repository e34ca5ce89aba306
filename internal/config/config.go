// Package config resolves housebot settings from the process environment and
// an optional dotenv file.
//
//	TELEGRAM_BOT_TOKEN     bot token (required for serve)
//	LANGUAGE               en|ru (default en)
//	DEBUG                  debug logging
//	FLOOR_MIN/FLOOR_MAX    floor picker bounds (default 2..23)
//	APARTMENTS_PER_PAGE    apartment range size in the finder (default 6)
//	DIALOG_TIMEOUT         idle time before a pending step expires (default 15m, 0 disables)
//	BUILDING_FILE          JSON document path (default data/building.json)
//	RENDER_CACHE_DIR       floor plan cache directory
//	RASTERIZER             SVG to PNG converter (default rsvg-convert, empty disables)
//	METRICS_ADDR           listen address for /metrics (empty disables)
//	STORAGE_DRIVER         json|sqlite|postgres|memory (default json)
//	SQLITE_PATH            sqlite database (default data/building.db)
//	POSTGRES_DSN           postgres connection string
//	BACKUP_DRIVER          none|fs|s3|gdrive|yandex (default: detected from credentials)
//	BACKUP_FOLDER          remote folder for backups (default housebot)
//	BACKUP_FS_ROOT         root directory for the fs driver (default backups)
//	BACKUP_S3_*            BUCKET, REGION, ENDPOINT, PATH_STYLE
//	YANDEX_DISK_TOKEN      Yandex Disk OAuth token
//	GOOGLE_*               service account fields and DRIVE_FOLDER_ID
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported locales.
var Languages = []string{"en", "ru"}

// Backup driver identifiers.
const (
	BackupNone   = "none"
	BackupFS     = "fs"
	BackupS3     = "s3"
	BackupGDrive = "gdrive"
	BackupYandex = "yandex"
)

// Error reports an unusable configuration value. It is fatal at startup.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Config is the resolved settings tree.
type Config struct {
	Token             string
	Language          string
	Debug             bool
	FloorMin          int
	FloorMax          int
	ApartmentsPerPage int
	BuildingFile      string
	RenderCacheDir    string
	Rasterizer        string
	DialogTimeout     time.Duration
	MetricsAddr       string
	Storage           Storage
	Backup            Backup
}

// Storage selects the building document backend.
type Storage struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Backup configures the remote backup sink.
type Backup struct {
	Driver      string
	Folder      string
	FSRoot      string
	YandexToken string
	Google      Google
	S3          S3
}

// Google holds the service account used for Drive uploads.
type Google struct {
	ProjectID    string
	PrivateKeyID string
	PrivateKey   string
	ClientEmail  string
	ClientID     string
	TokenURI     string
	FolderID     string
}

// S3 configures an S3 or MinIO bucket.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

type options struct {
	envFile      string
	requireToken bool
}

// Option customises Load.
type Option func(*options)

// WithEnvFile reads key=value pairs from path before consulting the environment.
// A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// RequireToken makes a missing TELEGRAM_BOT_TOKEN a configuration error.
func RequireToken() Option {
	return func(o *options) { o.requireToken = true }
}

// Load resolves the configuration. Environment variables take precedence over
// the env file, which takes precedence over defaults.
func Load(opts ...Option) (*Config, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err == nil {
			v.SetConfigFile(o.envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, &Error{Key: o.envFile, Reason: err.Error()}
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Key: o.envFile, Reason: err.Error()}
		}
	}

	cfg := &Config{
		Token:          strings.TrimSpace(v.GetString("telegram_bot_token")),
		Language:       strings.ToLower(strings.TrimSpace(v.GetString("language"))),
		BuildingFile:   v.GetString("building_file"),
		RenderCacheDir: v.GetString("render_cache_dir"),
		Rasterizer:     strings.TrimSpace(v.GetString("rasterizer")),
		MetricsAddr:    strings.TrimSpace(v.GetString("metrics_addr")),
		Storage: Storage{
			Driver:      strings.ToLower(v.GetString("storage_driver")),
			SQLitePath:  v.GetString("sqlite_path"),
			PostgresDSN: v.GetString("postgres_dsn"),
		},
		Backup: Backup{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("backup_driver"))),
			Folder:      strings.Trim(v.GetString("backup_folder"), "/"),
			FSRoot:      v.GetString("backup_fs_root"),
			YandexToken: strings.TrimSpace(v.GetString("yandex_disk_token")),
			Google: Google{
				ProjectID:    v.GetString("google_project_id"),
				PrivateKeyID: v.GetString("google_private_key_id"),
				PrivateKey:   strings.ReplaceAll(v.GetString("google_private_key"), `\n`, "\n"),
				ClientEmail:  v.GetString("google_client_email"),
				ClientID:     v.GetString("google_client_id"),
				TokenURI:     v.GetString("google_token_uri"),
				FolderID:     v.GetString("google_drive_folder_id"),
			},
			S3: S3{
				Bucket:   v.GetString("backup_s3_bucket"),
				Region:   v.GetString("backup_s3_region"),
				Endpoint: v.GetString("backup_s3_endpoint"),
			},
		},
	}
	var err error
	if cfg.Debug, err = boolValue(v, "debug"); err != nil {
		return nil, err
	}
	if cfg.Backup.S3.PathStyle, err = boolValue(v, "backup_s3_path_style"); err != nil {
		return nil, err
	}
	if cfg.FloorMin, err = intValue(v, "floor_min"); err != nil {
		return nil, err
	}
	if cfg.FloorMax, err = intValue(v, "floor_max"); err != nil {
		return nil, err
	}
	if cfg.ApartmentsPerPage, err = intValue(v, "apartments_per_page"); err != nil {
		return nil, err
	}
	if cfg.DialogTimeout, err = durationValue(v, "dialog_timeout"); err != nil {
		return nil, err
	}
	if cfg.RenderCacheDir == "" {
		cfg.RenderCacheDir = filepath.Dir(cfg.BuildingFile)
	}
	if err := cfg.validate(o.requireToken); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "en")
	v.SetDefault("debug", "false")
	v.SetDefault("floor_min", "2")
	v.SetDefault("floor_max", "23")
	v.SetDefault("apartments_per_page", "6")
	v.SetDefault("building_file", filepath.Join("data", "building.json"))
	v.SetDefault("rasterizer", "rsvg-convert")
	v.SetDefault("dialog_timeout", "15m")
	v.SetDefault("storage_driver", "json")
	v.SetDefault("sqlite_path", filepath.Join("data", "building.db"))
	v.SetDefault("backup_folder", "housebot")
	v.SetDefault("backup_fs_root", "backups")
	v.SetDefault("backup_s3_path_style", "false")
	v.SetDefault("google_token_uri", "https://oauth2.googleapis.com/token")
	for _, key := range []string{
		"telegram_bot_token", "render_cache_dir", "metrics_addr", "postgres_dsn", "backup_driver",
		"yandex_disk_token", "google_project_id", "google_private_key_id", "google_private_key",
		"google_client_email", "google_client_id", "google_drive_folder_id",
		"backup_s3_bucket", "backup_s3_region", "backup_s3_endpoint",
	} {
		v.SetDefault(key, "")
	}
}

func (c *Config) validate(requireToken bool) error {
	if requireToken && c.Token == "" {
		return &Error{Key: "TELEGRAM_BOT_TOKEN", Reason: "must be set"}
	}
	if !contains(Languages, c.Language) {
		return &Error{Key: "LANGUAGE", Reason: fmt.Sprintf("unsupported locale %q", c.Language)}
	}
	if c.FloorMin > c.FloorMax {
		return &Error{Key: "FLOOR_MIN", Reason: fmt.Sprintf("%d is above FLOOR_MAX %d", c.FloorMin, c.FloorMax)}
	}
	if c.ApartmentsPerPage < 1 {
		return &Error{Key: "APARTMENTS_PER_PAGE", Reason: "must be positive"}
	}
	if c.DialogTimeout < 0 {
		return &Error{Key: "DIALOG_TIMEOUT", Reason: "must not be negative"}
	}
	if c.BuildingFile == "" {
		return &Error{Key: "BUILDING_FILE", Reason: "must be set"}
	}
	switch c.Storage.Driver {
	case "json", "sqlite", "postgres", "memory":
	default:
		return &Error{Key: "STORAGE_DRIVER", Reason: fmt.Sprintf("unknown driver %q", c.Storage.Driver)}
	}
	switch c.Backup.Driver {
	case "", BackupNone, BackupFS, BackupS3, BackupGDrive, BackupYandex:
	default:
		return &Error{Key: "BACKUP_DRIVER", Reason: fmt.Sprintf("unknown driver %q", c.Backup.Driver)}
	}
	return nil
}

// ResolveDriver picks the backup provider. An explicit driver whose
// credentials are missing resolves to BackupNone with a warning explaining why.
func (b Backup) ResolveDriver() (driver string, warning string) {
	switch b.Driver {
	case "":
		switch {
		case b.YandexToken != "":
			return BackupYandex, ""
		case b.Google.Configured():
			return BackupGDrive, ""
		default:
			return BackupNone, "no backup credentials configured, remote backup disabled"
		}
	case BackupYandex:
		if b.YandexToken == "" {
			return BackupNone, "YANDEX_DISK_TOKEN not set, remote backup disabled"
		}
	case BackupGDrive:
		if !b.Google.Configured() {
			return BackupNone, "Google service account incomplete, remote backup disabled"
		}
	case BackupS3:
		if b.S3.Bucket == "" {
			return BackupNone, "BACKUP_S3_BUCKET not set, remote backup disabled"
		}
	}
	return b.Driver, ""
}

// Configured reports whether enough of the service account is present to authenticate.
func (g Google) Configured() bool {
	return g.ClientEmail != "" && g.PrivateKey != "" && g.FolderID != ""
}

// CredentialsJSON renders the service account in the JSON key file format.
func (g Google) CredentialsJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     g.ProjectID,
		"private_key_id": g.PrivateKeyID,
		"private_key":    g.PrivateKey,
		"client_email":   g.ClientEmail,
		"client_id":      g.ClientID,
		"token_uri":      g.TokenURI,
	})
}

func intValue(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &Error{Key: strings.ToUpper(key), Reason: fmt.Sprintf("not an integer: %q", raw)}
	}
	return n, nil
}

func boolValue(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &Error{Key: strings.ToUpper(key), Reason: fmt.Sprintf("not a boolean: %q", raw)}
	}
	return b, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &Error{Key: strings.ToUpper(key), Reason: fmt.Sprintf("not a duration: %q", raw)}
	}
	return d, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
