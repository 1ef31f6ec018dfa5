package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv" // optional .env file support for local development
)

// devJWTSecret is only used outside production when JWT_SECRET is unset.
const devJWTSecret = "grading-api-dev-secret"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The values are read once at startup and treated
// as immutable afterwards.
type Config struct {
	Env  string // application environment (dev, test, prod)
	Port string // HTTP port to listen on

	DBDriver string // "mysql" or "sqlite"
	DBDSN    string // full data source name; built from the DB_* parts when empty
	DBUser   string
	DBPass   string
	DBHost   string
	DBPort   string
	DBName   string

	JWTSecret     string        // secret used to sign bearer tokens
	EmailTokenTTL time.Duration // lifetime of an emailed login token
	APITokenTTL   time.Duration // lifetime of an API token row

	EmailFrom            string // sender address for login emails
	SendGridAPIKey       string // empty selects the console notifier
	EmailConsoleFallback bool   // explicit opt-in to console delivery in prod
	RabbitMQURL          string // when set, login emails go through the queue
	EmailTokenQueue      string // queue name for login token events

	LogLevel       string
	MetricsEnabled bool
}

// IsProd reports whether the process runs in the production environment.
func (c Config) IsProd() bool { return c.Env == "prod" }

// Load reads configuration values from the environment, after loading an
// optional .env file.  All missing required variables are reported together.
// JWT_SECRET and the email provider are required in production only; other
// environments fall back to development defaults and log a warning.
func Load() (Config, error) {
	// A missing .env file is the normal case in containers.
	_ = godotenv.Load()
	cfg := fromEnv()

	var missing []string
	switch cfg.DBDriver {
	case "mysql":
		if cfg.DBDSN == "" {
			if cfg.DBUser == "" {
				missing = append(missing, "DB_USER")
			}
			if cfg.DBName == "" {
				missing = append(missing, "DB_NAME")
			}
		} else {
			dsn, err := normalizeMySQLDSN(cfg.DBDSN)
			if err != nil {
				return Config{}, err
			}
			cfg.DBDSN = dsn
		}
	case "sqlite":
		if cfg.DBDSN == "" {
			cfg.DBDSN = "file:grading.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			missing = append(missing, "JWT_SECRET")
		} else {
			slog.Warn("JWT_SECRET not set, using development secret", slog.String("env", cfg.Env))
			cfg.JWTSecret = devJWTSecret
		}
	}

	// The queue consumer needs its own provider; the API only needs the broker.
	if cfg.SendGridAPIKey == "" && cfg.RabbitMQURL == "" {
		missing = cfg.checkConsoleFallback(missing)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	if cfg.EmailTokenTTL <= 0 || cfg.APITokenTTL <= 0 {
		return Config{}, errors.New("token TTLs must be positive")
	}
	return cfg, nil
}

// LoadMailer reads the configuration of cmd/mailer: the broker, the email
// provider and logging.  Database and signing variables are not checked.
func LoadMailer() (Config, error) {
	_ = godotenv.Load()
	cfg := fromEnv()

	var missing []string
	if cfg.RabbitMQURL == "" {
		missing = append(missing, "RABBITMQ_URL")
	}
	if cfg.SendGridAPIKey == "" {
		missing = cfg.checkConsoleFallback(missing)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		Env:                  strings.ToLower(envStr("APP_ENV", "dev")),
		Port:                 envStr("APP_PORT", "3000"),
		DBDriver:             strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBDSN:                os.Getenv("DATABASE_DSN"),
		DBUser:               os.Getenv("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"), // empty allowed
		DBHost:               envStr("DB_HOST", "127.0.0.1"),
		DBPort:               envStr("DB_PORT", "3306"),
		DBName:               os.Getenv("DB_NAME"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		EmailTokenTTL:        envDur("EMAIL_TOKEN_TTL", 10*time.Minute),
		APITokenTTL:          envDur("API_TOKEN_TTL", 12*time.Hour),
		EmailFrom:            envStr("EMAIL_FROM", "no-reply@grading.local"),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		EmailConsoleFallback: envBool("EMAIL_CONSOLE_FALLBACK", false),
		RabbitMQURL:          firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		EmailTokenQueue:      envStr("EMAIL_TOKEN_QUEUE", "auth.email_token"),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		MetricsEnabled:       envBool("METRICS_ENABLED", true),
	}
}

// checkConsoleFallback applies the console delivery rule when no SendGrid
// key is configured: a warning outside prod, a missing variable in prod
// unless EMAIL_CONSOLE_FALLBACK is set.
func (c Config) checkConsoleFallback(missing []string) []string {
	if c.IsProd() && !c.EmailConsoleFallback {
		return append(missing, "SENDGRID_API_KEY")
	}
	slog.Warn("SENDGRID_API_KEY not set, login tokens will be written to the log instead of emailed")
	return missing
}

// normalizeMySQLDSN forces the options the repositories depend on onto a
// DATABASE_DSN override.
func normalizeMySQLDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_DSN: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	return mc.FormatDSN(), nil
}

// DSN returns the data source name for the configured driver.
// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
// clientFoundRows=true -> RowsAffected counts matched rows, not changed ones
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, c.DBHost, c.DBPort, c.DBName)
}

// LogLevelValue maps LOG_LEVEL onto a slog level.  Unknown values yield info.
func (c Config) LogLevelValue() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
