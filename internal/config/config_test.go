package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:             "test-secret",
		JWTAlgorithm:          "HS256",
		JWTExpiration:         time.Hour,
		PasswordHashAlgorithm: PasswordHashBcrypt,
		BcryptCost:            10,
		IdentityCacheType:     IdentityCacheTypeMemory,
		IdentityCacheTTL:      5 * time.Minute,
		OAuthTimeout:          15 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "valid argon2id",
			mutate: func(c *Config) { c.PasswordHashAlgorithm = PasswordHashArgon2id },
		},
		{
			name: "valid redis-aside cache",
			mutate: func(c *Config) {
				c.IdentityCacheType = IdentityCacheTypeRedisAside
				c.RedisAddr = "localhost:6379"
			},
		},
		{
			name:     "empty jwt secret",
			mutate:   func(c *Config) { c.JWTSecret = "" },
			errorMsg: "JWT_SECRET must not be empty",
		},
		{
			name:     "asymmetric algorithm",
			mutate:   func(c *Config) { c.JWTAlgorithm = "RS256" },
			errorMsg: `invalid JWT_ALGORITHM value: "RS256"`,
		},
		{
			name:     "zero expiration",
			mutate:   func(c *Config) { c.JWTExpiration = 0 },
			errorMsg: "JWT_EXPIRATION must be positive",
		},
		{
			name:     "unknown hash algorithm",
			mutate:   func(c *Config) { c.PasswordHashAlgorithm = "md5" },
			errorMsg: `invalid PASSWORD_HASH_ALGORITHM value: "md5"`,
		},
		{
			name:     "bcrypt cost too low",
			mutate:   func(c *Config) { c.BcryptCost = 2 },
			errorMsg: "invalid BCRYPT_COST value: 2",
		},
		{
			name:     "cache type typo",
			mutate:   func(c *Config) { c.IdentityCacheType = "reddis" },
			errorMsg: `invalid IDENTITY_CACHE_TYPE value: "reddis"`,
		},
		{
			name:     "redis cache without address",
			mutate:   func(c *Config) { c.IdentityCacheType = IdentityCacheTypeRedis },
			errorMsg: "REDIS_ADDR is required when IDENTITY_CACHE_TYPE=redis",
		},
		{
			name:     "zero oauth timeout",
			mutate:   func(c *Config) { c.OAuthTimeout = 0 },
			errorMsg: "OAUTH_TIMEOUT must be positive",
		},
		{
			name: "enabled provider without secret",
			mutate: func(c *Config) {
				c.Google = OAuthProviderSettings{Enabled: true, ClientID: "id"}
			},
			errorMsg: "GOOGLE_OAUTH_ENABLED=true requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	cfg := Load()

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 60*time.Minute, cfg.JWTExpiration, "tokens should default to one hour")
	assert.Equal(t, 15*time.Second, cfg.OAuthTimeout)
	assert.False(t, cfg.OAuthSignInExistingEmail, "duplicate email rejection is the default")
	assert.Equal(t, PasswordHashBcrypt, cfg.PasswordHashAlgorithm)
	assert.Equal(t, IdentityCacheTypeMemory, cfg.IdentityCacheType)
	assert.Equal(t, "common", cfg.MicrosoftTenantID)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Google.Scopes)
	assert.Equal(t, 24*time.Hour, cfg.EmailVerificationTTL)
	assert.Equal(t, time.Hour, cfg.PasswordResetTTL)
	assert.Equal(t, 30*time.Second, cfg.DBInitTimeout)
	assert.Equal(t, 5*time.Second, cfg.ServerShutdownTimeout)
}

func TestLoad_ProviderFromEnv(t *testing.T) {
	t.Setenv("GITHUB_OAUTH_ENABLED", "true")
	t.Setenv("GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("GITHUB_REDIRECT_URL", "http://localhost:8080/github/redirect")
	t.Setenv("GITHUB_SCOPES", "read:user, user:email ,")
	t.Setenv("GITHUB_USERINFO_URL", "http://github.local/user")
	t.Setenv("JWT_ALGORITHM", "hs512")

	cfg := Load()

	assert.True(t, cfg.GitHub.Enabled)
	assert.Equal(t, "gh-id", cfg.GitHub.ClientID)
	assert.Equal(t, "gh-secret", cfg.GitHub.ClientSecret)
	assert.Equal(t, "http://localhost:8080/github/redirect", cfg.GitHub.RedirectURL)
	assert.Equal(t, []string{"read:user", "user:email"}, cfg.GitHub.Scopes)
	assert.Equal(t, "http://github.local/user", cfg.GitHub.UserInfoURL)
	assert.Empty(t, cfg.GitHub.TokenURL)
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("OAUTH_TIMEOUT", "soon")
	assert.Equal(t, 15*time.Second, getEnvDuration("OAUTH_TIMEOUT", 15*time.Second))

	t.Setenv("OAUTH_TIMEOUT", "3s")
	assert.Equal(t, 3*time.Second, getEnvDuration("OAUTH_TIMEOUT", 15*time.Second))
}
