package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/aqeluk/THYNKAPI/internal/auth"
	"github.com/aqeluk/THYNKAPI/internal/cache"
	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/metrics"
	"github.com/aqeluk/THYNKAPI/internal/mocks"
	"github.com/aqeluk/THYNKAPI/internal/models"
	"github.com/aqeluk/THYNKAPI/internal/store"
	"github.com/aqeluk/THYNKAPI/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://localhost:8080"

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(config.PasswordHashBcrypt, 4)
	require.NoError(t, err)
	return h
}

func newTestTokens() *token.LocalTokenProvider {
	return token.NewLocalTokenProvider(&config.Config{
		JWTSecret:     "services-test-secret",
		JWTAlgorithm:  "HS256",
		JWTExpiration: time.Hour,
		BaseURL:       testBaseURL,
	})
}

// callFetchFn is a DoAndReturn helper that invokes the cache fetch function,
// simulating a cache miss where the real store fetch is executed.
func callFetchFn[T any](
	ctx context.Context,
	key string,
	_ time.Duration,
	fn func(context.Context, string) (T, error),
) (T, error) {
	return fn(ctx, key)
}

type authFixture struct {
	store  *mocks.MockIdentityStore
	hasher *mocks.MockPasswordHasher
	tokens *mocks.MockTokenProvider
	cache  *mocks.MockCache[models.Identity]
	github *mocks.MockOAuthProvider
	svc    *AuthService
}

func newAuthFixture(t *testing.T, signInExistingEmail bool) *authFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &authFixture{
		store:  mocks.NewMockIdentityStore(ctrl),
		hasher: mocks.NewMockPasswordHasher(ctrl),
		tokens: mocks.NewMockTokenProvider(ctrl),
		cache:  mocks.NewMockCache[models.Identity](ctrl),
		github: mocks.NewMockOAuthProvider(ctrl),
	}
	f.github.EXPECT().Key().Return("github").AnyTimes()

	registry, err := auth.NewRegistry(f.github)
	require.NoError(t, err)

	noop := metrics.NewNoopMetrics()
	identities := NewIdentityService(
		f.store, f.hasher, f.tokens, nil, f.cache,
		time.Minute, time.Hour, time.Hour, testBaseURL, noop,
	)
	f.svc = NewAuthService(f.store, f.hasher, f.tokens, registry, identities, noop, signInExistingEmail)
	return f
}

func testIdentity(username, passwordHash string) *models.Identity {
	return &models.Identity{
		ID:           uuid.New().String(),
		Username:     &username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		IsActive:     true,
		AuthSource:   models.AuthSourceLocal,
	}
}

func accessResult(subject string) *core.TokenResult {
	return &core.TokenResult{
		TokenString: "signed-" + subject,
		TokenType:   token.TokenTypeBearer,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestLoginWithPassword_UnknownUsernameNeverVerifies(t *testing.T) {
	f := newAuthFixture(t, false)
	f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "bob").Return(nil, store.ErrRecordNotFound)
	f.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Times(0)
	f.tokens.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := f.svc.LoginWithPassword(context.Background(), "bob", "whatever")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUsernameNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

// captureLog redirects the standard logger for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestLoginFailures_AreLogged(t *testing.T) {
	t.Run("unknown username", func(t *testing.T) {
		f := newAuthFixture(t, false)
		f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "bob").Return(nil, store.ErrRecordNotFound)
		logs := captureLog(t)

		_, err := f.svc.LoginWithPassword(context.Background(), "bob", "whatever")
		require.ErrorIs(t, err, ErrUsernameNotFound)
		assert.Contains(t, logs.String(), "[Auth] step=lookup username=bob not found")
	})

	t.Run("missing authorization code", func(t *testing.T) {
		f := newAuthFixture(t, false)
		logs := captureLog(t)

		_, err := f.svc.LoginWithOAuth(context.Background(), "github", "")
		require.ErrorIs(t, err, ErrMissingAuthorizationCode)
		assert.Contains(t, logs.String(), "[OAuth] step=callback provider=github missing authorization code")
	})
}

func TestLoginWithPassword_WrongPasswordLeavesLastLogin(t *testing.T) {
	f := newAuthFixture(t, false)
	alice := testIdentity("alice", "$2a$04$hash")
	f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "alice").Return(alice, nil)
	f.hasher.EXPECT().Verify("wrong", alice.PasswordHash).Return(false)
	f.tokens.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.store.EXPECT().UpdateLastLogin(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := f.svc.LoginWithPassword(context.Background(), "alice", "wrong")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestLoginWithPassword_OAuthOnlyIdentityHasNoPassword(t *testing.T) {
	f := newAuthFixture(t, false)
	carol := testIdentity("carol", "")
	f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "carol").Return(carol, nil)
	f.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.svc.LoginWithPassword(context.Background(), "carol", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithPassword_Success(t *testing.T) {
	f := newAuthFixture(t, false)
	alice := testIdentity("alice", "$2a$04$hash")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "alice").Return(alice, nil)
	f.hasher.EXPECT().Verify("s3cret!", alice.PasswordHash).Return(true)
	gomock.InOrder(
		f.tokens.EXPECT().
			Issue(alice.ID, core.TokenPurposeAccess, time.Duration(0)).
			Return(accessResult(alice.ID), nil),
		f.store.EXPECT().UpdateLastLogin(gomock.Any(), alice.ID, now).Return(nil),
		f.cache.EXPECT().Delete(gomock.Any(), "identity:"+alice.ID).Return(nil),
	)

	result, err := f.svc.LoginWithPassword(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "signed-"+alice.ID, result.TokenString)
	assert.Equal(t, now, alice.LastLoginAt)
}

func TestLoginWithPassword_TokenFailureSkipsLastLogin(t *testing.T) {
	f := newAuthFixture(t, false)
	alice := testIdentity("alice", "$2a$04$hash")
	f.store.EXPECT().GetIdentityByUsername(gomock.Any(), "alice").Return(alice, nil)
	f.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true)
	f.tokens.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, token.ErrTokenGeneration)
	f.store.EXPECT().UpdateLastLogin(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := f.svc.LoginWithPassword(context.Background(), "alice", "s3cret!")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrTokenCreationFailed)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestAuthorizationURL(t *testing.T) {
	f := newAuthFixture(t, false)
	f.github.EXPECT().AuthorizationURL().Return("https://github.com/login/oauth/authorize?client_id=x")

	url, err := f.svc.AuthorizationURL("github")
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=x")

	_, err = f.svc.AuthorizationURL("gitlab")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []string{"github"}, f.svc.ProviderKeys())
}

// Every documented OAuth failure returns an error and a nil token and performs
// no later step. gomock fails the test on any call without an expectation.
func TestLoginWithOAuth_ShortCircuit(t *testing.T) {
	upstream := errors.New("connection reset")
	profile := &core.ExternalProfile{Email: "Dana@Example.com", DisplayName: "Dana"}

	tests := []struct {
		name     string
		provider string
		code     string
		setup    func(f *authFixture)
		wantErr  error
		wantKind ErrorKind
	}{
		{
			name:     "unknown provider",
			provider: "unknownprovider",
			code:     "x",
			setup:    func(f *authFixture) {},
			wantErr:  ErrUnknownProvider,
			wantKind: KindNotFound,
		},
		{
			name:     "missing code",
			provider: "github",
			code:     "",
			setup:    func(f *authFixture) {},
			wantErr:  ErrMissingAuthorizationCode,
			wantKind: KindBadRequest,
		},
		{
			name:     "exchange fails",
			provider: "github",
			code:     "code-1",
			setup: func(f *authFixture) {
				f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").
					Return("", errors.Join(auth.ErrExchangeFailed, upstream))
			},
			wantErr:  ErrUpstreamFailure,
			wantKind: KindUpstreamFailure,
		},
		{
			name:     "profile fetch fails",
			provider: "github",
			code:     "code-1",
			setup: func(f *authFixture) {
				f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
				f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").
					Return(nil, auth.ErrProfileFetchFailed)
			},
			wantErr:  ErrUpstreamFailure,
			wantKind: KindUpstreamFailure,
		},
		{
			name:     "email already registered",
			provider: "github",
			code:     "code-1",
			setup: func(f *authFixture) {
				f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
				f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").Return(profile, nil)
				f.store.EXPECT().GetIdentityByEmail(gomock.Any(), "dana@example.com").
					Return(testIdentity("dana", ""), nil)
			},
			wantErr:  ErrDuplicateEmail,
			wantKind: KindConflict,
		},
		{
			name:     "concurrent create",
			provider: "github",
			code:     "code-1",
			setup: func(f *authFixture) {
				f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
				f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").Return(profile, nil)
				f.store.EXPECT().GetIdentityByEmail(gomock.Any(), "dana@example.com").
					Return(nil, store.ErrRecordNotFound)
				f.store.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).
					Return(store.ErrIdentityConflict)
			},
			wantErr:  ErrDuplicateEmail,
			wantKind: KindConflict,
		},
		{
			name:     "token signing fails",
			provider: "github",
			code:     "code-1",
			setup: func(f *authFixture) {
				f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
				f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").Return(profile, nil)
				f.store.EXPECT().GetIdentityByEmail(gomock.Any(), "dana@example.com").
					Return(nil, store.ErrRecordNotFound)
				f.tokens.EXPECT().Issue(gomock.Any(), core.TokenPurposeAccess, gomock.Any()).
					Return(nil, token.ErrTokenGeneration)
				f.store.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr:  ErrTokenCreationFailed,
			wantKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, false)
			tt.setup(f)

			result, err := f.svc.LoginWithOAuth(context.Background(), tt.provider, tt.code)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestLoginWithOAuth_CreatesIdentity(t *testing.T) {
	f := newAuthFixture(t, false)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	var created *models.Identity
	f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
	f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").
		Return(&core.ExternalProfile{Email: "Erin@Example.com", DisplayName: "Erin"}, nil)
	f.store.EXPECT().GetIdentityByEmail(gomock.Any(), "erin@example.com").
		Return(nil, store.ErrRecordNotFound)
	// The token is signed before the row is written.
	gomock.InOrder(
		f.tokens.EXPECT().Issue(gomock.Any(), core.TokenPurposeAccess, time.Duration(0)).
			DoAndReturn(func(subject, _ string, _ time.Duration) (*core.TokenResult, error) {
				return accessResult(subject), nil
			}),
		f.store.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, identity *models.Identity) error {
				created = identity
				return nil
			}),
	)

	result, err := f.svc.LoginWithOAuth(context.Background(), "github", "code-1")
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "signed-"+created.ID, result.TokenString)
	assert.Equal(t, "erin@example.com", created.Email)
	assert.Equal(t, "Erin", created.DisplayName)
	assert.Equal(t, "github", created.AuthSource)
	assert.Nil(t, created.Username)
	assert.Empty(t, created.PasswordHash)
	assert.True(t, created.IsVerified)
	assert.True(t, created.IsActive)
	assert.Equal(t, now, created.LastLoginAt)
}

func TestLoginWithOAuth_SignInExistingEmail(t *testing.T) {
	f := newAuthFixture(t, true)
	dana := testIdentity("dana", "")

	f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
	f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").
		Return(&core.ExternalProfile{Email: dana.Email, DisplayName: "Dana"}, nil)
	f.store.EXPECT().GetIdentityByEmail(gomock.Any(), dana.Email).Return(dana, nil)
	f.store.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Times(0)
	f.tokens.EXPECT().Issue(dana.ID, core.TokenPurposeAccess, gomock.Any()).
		Return(accessResult(dana.ID), nil)
	f.store.EXPECT().UpdateLastLogin(gomock.Any(), dana.ID, gomock.Any()).Return(nil)
	f.cache.EXPECT().Delete(gomock.Any(), "identity:"+dana.ID).Return(nil)

	result, err := f.svc.LoginWithOAuth(context.Background(), "github", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "signed-"+dana.ID, result.TokenString)
}

func TestLoginWithOAuth_SignInExistingEmailInactive(t *testing.T) {
	f := newAuthFixture(t, true)
	dana := testIdentity("dana", "")
	dana.IsActive = false

	f.github.EXPECT().ExchangeCode(gomock.Any(), "code-1").Return("gh-token", nil)
	f.github.EXPECT().FetchProfile(gomock.Any(), "gh-token").
		Return(&core.ExternalProfile{Email: dana.Email, DisplayName: "Dana"}, nil)
	f.store.EXPECT().GetIdentityByEmail(gomock.Any(), dana.Email).Return(dana, nil)
	f.store.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Times(0)
	f.tokens.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.store.EXPECT().UpdateLastLogin(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := f.svc.LoginWithOAuth(context.Background(), "github", "code-1")
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrIdentityInactive)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

// A failed signing on first OAuth sign-in must leave no identity behind,
// so the next callback can still create it.
func TestLoginWithOAuth_SigningFailurePersistsNothing(t *testing.T) {
	db := setupTestStore(t)
	noop := metrics.NewNoopMetrics()
	ctrl := gomock.NewController(t)
	github := mocks.NewMockOAuthProvider(ctrl)
	github.EXPECT().Key().Return("github").AnyTimes()
	github.EXPECT().ExchangeCode(gomock.Any(), gomock.Any()).Return("gh-token", nil).Times(2)
	github.EXPECT().FetchProfile(gomock.Any(), "gh-token").
		Return(&core.ExternalProfile{Email: "erin@example.com", DisplayName: "Erin"}, nil).Times(2)
	registry, err := auth.NewRegistry(github)
	require.NoError(t, err)

	newService := func(tokens core.TokenProvider) *AuthService {
		identities := NewIdentityService(
			db, newTestHasher(t), tokens, nil, cache.NewMemoryCache[models.Identity](),
			time.Minute, time.Hour, time.Hour, testBaseURL, noop,
		)
		return NewAuthService(db, newTestHasher(t), tokens, registry, identities, noop, false)
	}

	broken := newService(token.NewLocalTokenProvider(&config.Config{
		JWTAlgorithm:  "HS256",
		JWTExpiration: time.Hour,
		BaseURL:       testBaseURL,
	}))
	_, err = broken.LoginWithOAuth(context.Background(), "github", "code-1")
	require.ErrorIs(t, err, ErrTokenCreationFailed)

	_, err = db.GetIdentityByEmail(context.Background(), "erin@example.com")
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	result, err := newService(newTestTokens()).LoginWithOAuth(context.Background(), "github", "code-2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.TokenString)

	created, err := db.GetIdentityByEmail(context.Background(), "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "github", created.AuthSource)
}

func TestCurrentIdentity(t *testing.T) {
	alice := testIdentity("alice", "")

	tests := []struct {
		name    string
		setup   func(f *authFixture)
		wantErr error
	}{
		{
			name: "expired",
			setup: func(f *authFixture) {
				f.tokens.EXPECT().Verify("tok").Return(nil, token.ErrExpiredToken)
			},
			wantErr: ErrTokenExpired,
		},
		{
			name: "bad signature",
			setup: func(f *authFixture) {
				f.tokens.EXPECT().Verify("tok").Return(nil, token.ErrInvalidToken)
			},
			wantErr: ErrTokenInvalid,
		},
		{
			name: "verification token used as access token",
			setup: func(f *authFixture) {
				f.tokens.EXPECT().Verify("tok").Return(&core.TokenClaims{
					Subject: alice.ID,
					Purpose: core.TokenPurposeVerifyEmail,
				}, nil)
			},
			wantErr: ErrTokenInvalid,
		},
		{
			name: "subject no longer exists",
			setup: func(f *authFixture) {
				f.tokens.EXPECT().Verify("tok").Return(&core.TokenClaims{
					Subject: "gone",
					Purpose: core.TokenPurposeAccess,
				}, nil)
				f.cache.EXPECT().GetWithFetch(gomock.Any(), "identity:gone", time.Minute, gomock.Any()).
					DoAndReturn(callFetchFn[models.Identity])
				f.store.EXPECT().GetIdentityByID(gomock.Any(), "gone").Return(nil, store.ErrRecordNotFound)
			},
			wantErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, false)
			tt.setup(f)

			identity, err := f.svc.CurrentIdentity(context.Background(), "tok")
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, KindUnauthorized, KindOf(err))
		})
	}

	t.Run("valid", func(t *testing.T) {
		f := newAuthFixture(t, false)
		f.tokens.EXPECT().Verify("tok").Return(&core.TokenClaims{
			Subject: alice.ID,
			Purpose: core.TokenPurposeAccess,
		}, nil)
		f.cache.EXPECT().GetWithFetch(gomock.Any(), "identity:"+alice.ID, gomock.Any(), gomock.Any()).
			Return(*alice, nil)

		identity, err := f.svc.CurrentIdentity(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, identity.ID)
	})
}

// Password login against the real store, hasher and token provider.
func TestAuthService_PasswordLoginWithStore(t *testing.T) {
	db := setupTestStore(t)
	hasher := newTestHasher(t)
	tokens := newTestTokens()
	noop := metrics.NewNoopMetrics()

	hash, err := hasher.Hash("s3cret!")
	require.NoError(t, err)
	alice := testIdentity("alice", hash)
	require.NoError(t, db.CreateIdentity(context.Background(), alice))

	registry, err := auth.NewRegistry()
	require.NoError(t, err)
	identities := NewIdentityService(
		db, hasher, tokens, nil, cache.NewMemoryCache[models.Identity](),
		time.Minute, time.Hour, time.Hour, testBaseURL, noop,
	)
	svc := NewAuthService(db, hasher, tokens, registry, identities, noop, false)

	_, err = svc.LoginWithPassword(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	stored, err := db.GetIdentityByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastLoginAt.IsZero(), "failed login must not touch last_login_at")

	_, err = svc.LoginWithPassword(context.Background(), "bob", "s3cret!")
	require.ErrorIs(t, err, ErrUsernameNotFound)

	result, err := svc.LoginWithPassword(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, token.TokenTypeBearer, result.TokenType)

	stored, err = db.GetIdentityByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.LastLoginAt.IsZero())

	current, err := svc.CurrentIdentity(context.Background(), result.TokenString)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, current.ID)
	assert.Equal(t, "alice", current.UsernameValue())
}
