package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0" validate:"required"`
	Port            int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogEncoding     string        `env:"LOG_ENCODING,default=json" validate:"oneof=json console"`
	FillDuration    time.Duration `env:"FILL_DURATION,default=60s" validate:"gt=0"`
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE,default=10s" validate:"gt=0"`
	RoomInboxSize   int           `env:"ROOM_INBOX_SIZE,default=64" validate:"min=1"`
	OutboxSize      int           `env:"OUTBOX_SIZE,default=32" validate:"min=1"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=3s" validate:"gt=0"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=20s" validate:"gt=0"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*" validate:"required"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
}

var validate = validator.New()

// Load reads an optional .env file, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnviron()
}

func FromEnviron() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS into websocket origin patterns.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
