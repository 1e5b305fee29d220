package token

import "github.com/aqeluk/THYNKAPI/internal/core"

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// Result is an alias for core.TokenResult.
type Result = core.TokenResult

// Claims is an alias for core.TokenClaims.
type Claims = core.TokenClaims
