package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "KELOCK_"

var ErrInvalidConfig = errors.New("invalid configuration")

type Backend struct {
	S3       *BackendS3 `env:",prefix=S3_"`
	Type     string     `env:"TYPE"`
	RootPath string     `env:"ROOT_PATH,default=/tmp/kelock"`
}

func (b *Backend) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", b.Type)
	if b.Type == "local" {
		enc.AddString("rootPath", b.RootPath)
	}
	return nil
}

type BackendS3 struct {
	AccessKey    string `env:"ACCESS_KEY"`
	Bucket       string `env:"BUCKET"`
	Endpoint     string `env:"ENDPOINT"`
	Region       string `env:"REGION,default=us-east-1"`
	SecretKey    string `env:"SECRET_KEY"`
	UsePathStyle bool   `env:"USE_PATH_STYLE,default=false"`
}

type Config struct {
	Backend      *Backend `env:",prefix=BACKEND_"`
	DownloadDir  string   `env:"DOWNLOAD_DIR,default=downloads"`
	Endpoint     string   `env:"ENDPOINT,default=https://api.purpurmc.org/v2/purpur"`
	HTTP         *HTTP    `env:",prefix=HTTP_"`
	KeepBuilds   int      `env:"KEEP_BUILDS,default=3"`
	KeepVersions int      `env:"KEEP_VERSIONS,default=3"`
	LockPath     string   `env:"LOCK_PATH,default=lock.json"`
	Log          *Log     `env:",prefix=LOG_"`
	Metrics      *Metrics `env:",prefix=METRICS_"`
	Signing      *Signing `env:",prefix=SIGNING_"`
	Trace        *Trace   `env:",prefix=TRACE_"`
}

type HTTP struct {
	BackoffFactor time.Duration `env:"BACKOFF_FACTOR,default=1s"`
	Retries       int           `env:"RETRIES,default=5"`
	Timeout       time.Duration `env:"TIMEOUT,default=5s"`
}

type Log struct {
	Format string `env:"FORMAT,default=console"`
	Level  string `env:"LEVEL,default=info"`
}

type Metrics struct {
	Textfile string `env:"TEXTFILE"`
}

type Signing struct {
	KeyPath    string `env:"KEY_PATH"`
	Passphrase string `env:"PASSPHRASE"`
}

type Trace struct {
	Enable bool   `env:"ENABLE,default=false"`
	Type   string `env:"TYPE,default=console"`
}

// Load reads the configuration from KELOCK_ prefixed environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &cfg, envconfig.PrefixLookuper(envPrefix, l)); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.KeepVersions < 1 {
		return fmt.Errorf("%w: %sKEEP_VERSIONS must be at least 1, got: %d", ErrInvalidConfig, envPrefix, c.KeepVersions)
	}

	if c.KeepBuilds < 1 {
		return fmt.Errorf("%w: %sKEEP_BUILDS must be at least 1, got: %d", ErrInvalidConfig, envPrefix, c.KeepBuilds)
	}

	if c.HTTP.Retries < 0 {
		return fmt.Errorf("%w: %sHTTP_RETRIES must not be negative, got: %d", ErrInvalidConfig, envPrefix, c.HTTP.Retries)
	}

	return nil
}
