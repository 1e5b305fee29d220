package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Password hashing algorithm constants
const (
	PasswordHashBcrypt   = "bcrypt"
	PasswordHashArgon2id = "argon2id"
)

// Identity cache type constants
const (
	IdentityCacheTypeMemory      = "memory"
	IdentityCacheTypeRedis       = "redis"
	IdentityCacheTypeRedisAside  = "redis-aside"
	defaultIdentityCacheKeySpace = "thynkapi:identities:"
)

// Supported JWT signing algorithms
var supportedJWTAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// OAuthProviderSettings holds the per-provider OAuth2 client settings.
// Empty endpoint URLs fall back to the provider's well-known endpoints.
type OAuthProviderSettings struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// JWT settings
	JWTSecret     string
	JWTAlgorithm  string
	JWTExpiration time.Duration

	// Email verification and password reset links
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration

	// Password hashing
	PasswordHashAlgorithm string // "bcrypt" or "argon2id"
	BcryptCost            int

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// OAuth providers
	GitHub            OAuthProviderSettings
	Microsoft         OAuthProviderSettings
	MicrosoftTenantID string
	Google            OAuthProviderSettings

	// OAuth HTTP Client Settings
	OAuthTimeout            time.Duration // Bound for each outbound provider call (default: 15s)
	OAuthInsecureSkipVerify bool          // Skip TLS verification for OAuth (dev/testing only, default: false)

	// Sign in the existing identity when an OAuth profile email is already registered.
	// Off by default: a known email is rejected as a duplicate.
	OAuthSignInExistingEmail bool

	// Identity cache
	IdentityCacheType        string        // "memory", "redis" or "redis-aside"
	IdentityCacheTTL         time.Duration // default: 5m
	IdentityCacheClientTTL   time.Duration // client-side cache TTL for redis-aside (default: 30s)
	IdentityCacheSizePerConn int           // client-side cache size per connection in MB (default: 32)
	IdentityCacheKeyPrefix   string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// Timeouts
	DBInitTimeout         time.Duration
	DBCloseTimeout        time.Duration
	CacheInitTimeout      time.Duration
	CacheCloseTimeout     time.Duration
	ServerShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "thynkapi.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnv("ENVIRONMENT", "development") == "production",

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTAlgorithm:  strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", 60*time.Minute),

		EmailVerificationTTL: getEnvDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour),
		PasswordResetTTL:     getEnvDuration("PASSWORD_RESET_TTL", time.Hour),

		PasswordHashAlgorithm: getEnv("PASSWORD_HASH_ALGORITHM", PasswordHashBcrypt),
		BcryptCost:            getEnvInt("BCRYPT_COST", 10),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		GitHub: loadProvider("GITHUB", []string{"read:user", "user:email"}),
		Microsoft: loadProvider(
			"MICROSOFT",
			[]string{"openid", "profile", "email", "User.Read"},
		),
		MicrosoftTenantID: getEnv("MICROSOFT_TENANT_ID", "common"),
		Google:            loadProvider("GOOGLE", []string{"openid", "email", "profile"}),

		OAuthTimeout:             getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),
		OAuthInsecureSkipVerify:  getEnvBool("OAUTH_INSECURE_SKIP_VERIFY", false),
		OAuthSignInExistingEmail: getEnvBool("OAUTH_SIGNIN_EXISTING_EMAIL", false),

		IdentityCacheType:        getEnv("IDENTITY_CACHE_TYPE", IdentityCacheTypeMemory),
		IdentityCacheTTL:         getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
		IdentityCacheClientTTL:   getEnvDuration("IDENTITY_CACHE_CLIENT_TTL", 30*time.Second),
		IdentityCacheSizePerConn: getEnvInt("IDENTITY_CACHE_SIZE_PER_CONN", 32),
		IdentityCacheKeyPrefix:   getEnv("IDENTITY_CACHE_KEY_PREFIX", defaultIdentityCacheKeySpace),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		DBInitTimeout:         getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		DBCloseTimeout:        getEnvDuration("DB_CLOSE_TIMEOUT", 5*time.Second),
		CacheInitTimeout:      getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),
		CacheCloseTimeout:     getEnvDuration("CACHE_CLOSE_TIMEOUT", 5*time.Second),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

// loadProvider reads the <PREFIX>_* settings of one OAuth provider.
func loadProvider(prefix string, defaultScopes []string) OAuthProviderSettings {
	return OAuthProviderSettings{
		Enabled:      getEnvBool(prefix+"_OAUTH_ENABLED", false),
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  getEnv(prefix+"_REDIRECT_URL", ""),
		Scopes:       getEnvSlice(prefix+"_SCOPES", defaultScopes),
		AuthURL:      getEnv(prefix+"_AUTH_URL", ""),
		TokenURL:     getEnv(prefix+"_TOKEN_URL", ""),
		UserInfoURL:  getEnv(prefix+"_USERINFO_URL", ""),
	}
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if !supportedJWTAlgorithms[c.JWTAlgorithm] {
		return fmt.Errorf(
			"invalid JWT_ALGORITHM value: %q (must be HS256, HS384 or HS512)",
			c.JWTAlgorithm,
		)
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive, got %s", c.JWTExpiration)
	}

	switch c.PasswordHashAlgorithm {
	case PasswordHashBcrypt:
		if c.BcryptCost < 4 || c.BcryptCost > 31 {
			return fmt.Errorf("invalid BCRYPT_COST value: %d (must be between 4 and 31)", c.BcryptCost)
		}
	case PasswordHashArgon2id:
	default:
		return fmt.Errorf(
			"invalid PASSWORD_HASH_ALGORITHM value: %q (must be %q or %q)",
			c.PasswordHashAlgorithm, PasswordHashBcrypt, PasswordHashArgon2id,
		)
	}

	switch c.IdentityCacheType {
	case IdentityCacheTypeMemory:
	case IdentityCacheTypeRedis, IdentityCacheTypeRedisAside:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when IDENTITY_CACHE_TYPE=%s", c.IdentityCacheType)
		}
	default:
		return fmt.Errorf(
			"invalid IDENTITY_CACHE_TYPE value: %q (must be %q, %q or %q)",
			c.IdentityCacheType,
			IdentityCacheTypeMemory,
			IdentityCacheTypeRedis,
			IdentityCacheTypeRedisAside,
		)
	}
	if c.IdentityCacheTTL <= 0 {
		return fmt.Errorf("IDENTITY_CACHE_TTL must be positive, got %s", c.IdentityCacheTTL)
	}

	if c.OAuthTimeout <= 0 {
		return fmt.Errorf("OAUTH_TIMEOUT must be positive, got %s", c.OAuthTimeout)
	}
	for name, p := range map[string]OAuthProviderSettings{
		"GITHUB":    c.GitHub,
		"MICROSOFT": c.Microsoft,
		"GOOGLE":    c.Google,
	} {
		if p.Enabled && (p.ClientID == "" || p.ClientSecret == "") {
			return fmt.Errorf(
				"%s_OAUTH_ENABLED=true requires %s_CLIENT_ID and %s_CLIENT_SECRET",
				name, name, name,
			)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
