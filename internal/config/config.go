// Package config handles configuration settings for the application.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// StorageBackend selects which blobstore.BlobStore implementation is wired
// up at startup.
type StorageBackend string

const (
	StorageBackendFilesystem StorageBackend = "filesystem"
	StorageBackendS3         StorageBackend = "s3"
)

// MetadataBackend selects which metadatastore.MetadataStore implementation
// is wired up at startup.
type MetadataBackend string

const (
	MetadataBackendKV       MetadataBackend = "kv"
	MetadataBackendBlobMeta MetadataBackend = "blobmeta"
)

// Config holds every runtime-configurable setting for the application.
type Config struct {
	Addr    string `koanf:"addr" validate:"required,ip_port"`
	DataDir string `koanf:"data_dir" validate:"required,custom_path"`

	MaxFileSizeMB int64         `koanf:"max_file_size_mb" validate:"required,gt=0"`
	MaxTTLMin     int64         `koanf:"max_ttl_min" validate:"required,gt=0"`
	MinTTL        time.Duration `koanf:"-" validate:"required"`
	MaxTTL        time.Duration `koanf:"-" validate:"required,gtfield=MinTTL"`
	DefaultTTL    time.Duration `koanf:"-" validate:"required"`

	AllowedMimeTypes []string `koanf:"allowed_mime_types"`

	CleanupIntervalMins int64 `koanf:"cleanup_interval_mins" validate:"required,gt=0"`

	DownloadBaseURL string `koanf:"download_base_url"`
	BasePath        string `koanf:"base_path"`

	StorageBackend  StorageBackend  `koanf:"storage_backend" validate:"required,oneof=filesystem s3"`
	MetadataBackend MetadataBackend `koanf:"metadata_backend" validate:"required,oneof=kv blobmeta"`

	S3Endpoint        string `koanf:"s3_endpoint"`
	S3Region          string `koanf:"s3_region"`
	S3Bucket          string `koanf:"s3_bucket"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3KeyPrefix       string `koanf:"s3_key_prefix"`
	S3ForcePathStyle  bool   `koanf:"s3_force_path_style"`

	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,ip_port"`
}

// MaxBytes returns the configured maximum upload size in bytes.
func (c *Config) MaxBytes() int64 { return c.MaxFileSizeMB * 1024 * 1024 }

// DefaultAppConfig provides the default app configuration values.
var DefaultAppConfig = Config{
	Addr:                ":8080",
	DataDir:             "/data",
	MaxFileSizeMB:       100,
	MaxTTLMin:           60 * 24, // 24h
	CleanupIntervalMins: 10,
	DownloadBaseURL:     "",
	BasePath:            "",
	StorageBackend:      StorageBackendFilesystem,
	MetadataBackend:     MetadataBackendKV,
	MetricsAddr:         "",
}

// minTTLFloor is the shortest TTL the service will ever honor, regardless of
// configuration: a one-minute floor keeps a misconfigured max_ttl_min from
// producing an unusable zero-width TTL window.
const minTTLFloor = time.Minute

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

// envLoader loads environment variables prefixed "DROPVAULT_" into koanf,
// lower-casing keys and splitting comma-separated values into slices.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{Prefix: "DROPVAULT_", TransformFunc: func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, "DROPVAULT_"))
		if strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, strings.TrimSpace(value)
	}}), nil)
}

// validIPPort validates that the value is parseable by net.Listen, e.g.
// ":8080" or "127.0.0.1:8080".
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if ip != "" && net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// validDirNotExists checks that the value is a directory path, without
// requiring it to already exist. Disallows empty paths, ".", root, and
// upward traversal.
func validDirNotExists(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return false
	}
	cleaned := filepath.Clean(raw)
	if cleaned == "." || cleaned == string(os.PathSeparator) {
		return false
	}
	for _, part := range strings.Split(cleaned, string(os.PathSeparator)) {
		if part == ".." {
			return false
		}
	}
	return true
}

var registerValidators = func(v *validator.Validate) error {
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	return v.RegisterValidation("custom_path", validDirNotExists)
}

// Load applies default values, overrides them with DROPVAULT_-prefixed
// environment variables, derives TTL bounds, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, err
	}
	if err := envLoader(k); err != nil {
		return nil, err
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, err
	}

	cfg.MinTTL = minTTLFloor
	cfg.MaxTTL = time.Duration(cfg.MaxTTLMin) * time.Minute
	if cfg.MaxTTL < cfg.MinTTL {
		cfg.MaxTTL = cfg.MinTTL
	}
	cfg.DefaultTTL = cfg.MaxTTL
	if cfg.DefaultTTL > 24*time.Hour && cfg.MaxTTL >= 24*time.Hour {
		cfg.DefaultTTL = 24 * time.Hour
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidators(validate); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BlobRoot returns the directory the filesystem blobstore should use.
func (c *Config) BlobRoot() string {
	return filepath.Join(c.DataDir, "blobs")
}

// MetadataRoot returns the directory the kv metadatastore should use.
func (c *Config) MetadataRoot() string {
	return filepath.Join(c.DataDir, "meta")
}

// DownloadURL builds the externally visible download URL for a file id,
// honoring DownloadBaseURL and BasePath when configured.
func (c *Config) DownloadURL(id string) string {
	base := strings.TrimSuffix(c.DownloadBaseURL, "/")
	prefix := strings.TrimSuffix(c.BasePath, "/")
	return fmt.Sprintf("%s%s/download/%s", base, prefix, id)
}
