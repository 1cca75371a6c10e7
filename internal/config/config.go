package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported storage drivers.
const (
	DriverSQLite  = "sqlite"
	DriverSurreal = "surreal"
)

// Config holds all configuration for the application.
type Config struct {
	Addr          string   `envconfig:"ADDR" default:":8000" validate:"required"`
	PublicBaseURL string   `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8000" validate:"required,url"`
	AllowedOrigin []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite" validate:"oneof=sqlite surreal"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"amruno.db" validate:"required_if=DBDriver sqlite"`
	DBUrl      string `envconfig:"SURREAL_URL" validate:"required_if=DBDriver surreal"`
	DBNs       string `envconfig:"SURREAL_NS" validate:"required_if=DBDriver surreal"`
	DBDb       string `envconfig:"SURREAL_DB" validate:"required_if=DBDriver surreal"`
	DBUser     string `envconfig:"SURREAL_USER"`
	DBPass     string `envconfig:"SURREAL_PASS"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true" validate:"min=16"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h" validate:"gt=0"`

	UploadDir     string `envconfig:"UPLOAD_DIR" default:"uploads" validate:"required"`
	MaxUploadSize int64  `envconfig:"MAX_UPLOAD_SIZE" default:"10485760" validate:"gt=0"`

	WSSendBuffer int   `envconfig:"WS_SEND_BUFFER" default:"256" validate:"gt=0"`
	WSReadLimit  int64 `envconfig:"WS_READ_LIMIT" default:"32768" validate:"gt=0"`

	// Requests per second allowed on the login endpoint per client IP.
	LoginRateLimit  float64       `envconfig:"LOGIN_RATE_LIMIT" default:"10" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads the given env files (".env" when none are given), then maps the
// process environment onto a validated Config. Missing env files are not an
// error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
			log.Printf("No %s file found, relying on environment variables", f)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
