package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode   `mapstructure:"mode"`
	HTTPAddr  string `mapstructure:"http_addr"`
	PublicURL string `mapstructure:"public_url"`

	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`

	Blob BlobConfig `mapstructure:"blob"`

	EnableLocalAuth bool   `mapstructure:"enable_local_auth"`
	AdminUser       string `mapstructure:"admin_user"`
	AdminPassHash   string `mapstructure:"admin_pass_hash"` // bcrypt
	HMACSecret      string `mapstructure:"hmac_secret"`

	CORSOriginsOnline  []string `mapstructure:"cors_origins_online"`
	CORSOriginsOffline []string `mapstructure:"cors_origins_offline"`

	Quiz QuizConfig `mapstructure:"quiz"`
	Log  LogConfig  `mapstructure:"log"`
}

type BlobConfig struct {
	Driver   string `mapstructure:"driver"` // fs|minio
	BasePath string `mapstructure:"base_path"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

// QuizConfig holds the generation defaults applied when a request leaves them
// out.
type QuizConfig struct {
	Seed      string `mapstructure:"seed"` // empty means unseeded
	Workers   int    `mapstructure:"workers"`
	OnFailure string `mapstructure:"on_failure"` // skip|passthrough
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // optional rotating file
}

// Load reads config.yaml from dir when present, then QUIZGEN_* environment
// variables. A missing file is not an error.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("QUIZGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOriginsOnline = splitCSV(cfg.CORSOriginsOnline)
	cfg.CORSOriginsOffline = splitCSV(cfg.CORSOriginsOffline)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("public_url", "")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.base_path", "./data")
	v.SetDefault("blob.minio_endpoint", "localhost:9000")
	v.SetDefault("blob.minio_access_key", "")
	v.SetDefault("blob.minio_secret_key", "")
	v.SetDefault("blob.minio_bucket", "quizgen")
	v.SetDefault("blob.minio_use_ssl", false)
	v.SetDefault("enable_local_auth", true)
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("hmac_secret", "dev-secret-change-me")
	v.SetDefault("cors_origins_online", "https://quiz.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:3010")
	v.SetDefault("quiz.seed", "")
	v.SetDefault("quiz.workers", 4)
	v.SetDefault("quiz.on_failure", "skip")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db_driver %q", c.DBDriver)
	}
	switch c.Blob.Driver {
	case "fs":
	case "minio":
		if c.Blob.MinioBucket == "" {
			return errors.New("config: blob.minio_bucket is required for the minio driver")
		}
	default:
		return fmt.Errorf("config: unsupported blob.driver %q", c.Blob.Driver)
	}
	switch c.Quiz.OnFailure {
	case "skip", "passthrough":
	default:
		return fmt.Errorf("config: quiz.on_failure must be skip or passthrough, got %q", c.Quiz.OnFailure)
	}
	if c.Quiz.Workers < 1 {
		return fmt.Errorf("config: quiz.workers must be >= 1, got %d", c.Quiz.Workers)
	}
	if c.Mode == ModeOnline && len(c.HMACSecret) < 32 {
		return fmt.Errorf("config: hmac_secret is too short (%d chars), online mode needs at least 32", len(c.HMACSecret))
	}
	return nil
}

// CORSOrigins returns the origins allowed in the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// splitCSV accepts both YAML lists and comma separated env values.
func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
