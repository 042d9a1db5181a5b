package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	HTTPHost string
	HTTPPort string
	GRPCHost string
	GRPCPort string
	BaseURL  string
	Store    string
	MySQLDSN string
	Security SecurityConfig
	Tokens   TokenConfig
	Session  SessionConfig
	Mail     MailConfig
	Password PasswordConfig
	Log      LogConfig
}

type SecurityConfig struct {
	SecretKey    string
	PasswordSalt string
	BcryptCost   int
}

type TokenConfig struct {
	ConfirmMaxAge time.Duration
	ResetMaxAge   time.Duration
}

type SessionConfig struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// MailConfig describes the outbound SMTP relay. An empty Server means mails are
// only logged.
type MailConfig struct {
	Server        string
	Port          int
	Username      string
	Password      string
	DefaultSender string
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type LogConfig struct {
	Level  string
	Format string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		return nil, errors.New("SECRET_KEY environment variable is required")
	}

	store := strings.ToLower(getEnv("STORE", StoreMySQL))
	if store != StoreMySQL && store != StoreMemory {
		return nil, fmt.Errorf("unsupported STORE %q", store)
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if store == StoreMySQL && mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost: os.Getenv("HTTP_HOST"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCHost: os.Getenv("GRPC_HOST"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),
		BaseURL:  strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		Store:    store,
		MySQLDSN: mysqlDSN,
		Security: SecurityConfig{
			SecretKey:    secretKey,
			PasswordSalt: getEnv("SECURITY_PASSWORD_SALT", "account-token"),
			BcryptCost:   getIntEnv("BCRYPT_COST", 13),
		},
		Tokens: TokenConfig{
			ConfirmMaxAge: getDurationEnv("CONFIRM_TOKEN_MAX_AGE", 24*time.Hour),
			ResetMaxAge:   getDurationEnv("RESET_TOKEN_MAX_AGE", 24*time.Hour),
		},
		Session: SessionConfig{
			TTL:          getDurationEnv("SESSION_TTL", 7*24*time.Hour),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "session"),
			CookieSecure: getBoolEnv("SESSION_COOKIE_SECURE", false),
		},
		Mail: MailConfig{
			Server:        os.Getenv("MAIL_SERVER"),
			Port:          getIntEnv("MAIL_PORT", 465),
			Username:      os.Getenv("MAIL_USERNAME"),
			Password:      os.Getenv("MAIL_PASSWORD"),
			DefaultSender: getEnv("MAIL_DEFAULT_SENDER", "from@example.com"),
		},
		Password: PasswordConfig{
			Policy: loadPasswordPolicy(),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 6),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}
