package tasklane

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Songmu/flextime"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mashiike/tasklane/transport"
)

type jwtClaimsContextKey struct{}

// GetJWTClaims retrieves the claims of the token that authenticated the request
func GetJWTClaims(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(jwtClaimsContextKey{}).(jwt.MapClaims)
	return claims, ok
}

// StaticAPIKeyAuthenticator authenticates requests by a fixed set of API keys.
// Each key maps to the caller id that owns the tasks it creates.
type StaticAPIKeyAuthenticator struct {
	Keys       map[string]string // API key -> caller id
	HeaderName string            // default: X-API-Key
}

func (s StaticAPIKeyAuthenticator) headerName() string {
	if s.HeaderName == "" {
		return "X-API-Key"
	}
	return s.HeaderName
}

// Authenticate implements transport.Authenticator
func (s StaticAPIKeyAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	headerName := s.headerName()
	apiKey := r.Header.Get(headerName)
	if apiKey == "" {
		return nil, transport.NewAuthErrorWithScheme(
			transport.AuthErrorCodeMissingCredentials,
			fmt.Sprintf("missing %s header", headerName),
			"apiKey",
		)
	}
	for key, callerID := range s.Keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return r.WithContext(transport.WithCallerID(ctx, callerID)), nil
		}
	}
	return nil, transport.NewAuthErrorWithScheme(
		transport.AuthErrorCodeInvalidCredentials,
		"invalid API key",
		"apiKey",
	)
}

// Schemes implements transport.Authenticator
func (s StaticAPIKeyAuthenticator) Schemes() []string {
	return []string{"apiKey"}
}

// JWTAuthenticator authenticates Bearer JWTs. The caller id is taken from CallerClaim.
type JWTAuthenticator struct {
	// SecretKey is used for HMAC signing methods (HS256, HS384, HS512)
	SecretKey []byte

	// SigningMethod specifies the JWT signing method (default: HS256)
	SigningMethod jwt.SigningMethod

	// Audience specifies the expected audience (aud) claim.
	// If empty, audience validation is skipped.
	Audience string

	// CallerClaim names the claim holding the caller id (default: sub)
	CallerClaim string

	// ValidateFunc allows custom validation of JWT claims
	ValidateFunc func(claims jwt.MapClaims) error
}

// NewJWTAuthenticator creates a new JWT authenticator with HMAC-SHA256
func NewJWTAuthenticator(secretKey []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		SecretKey:     secretKey,
		SigningMethod: jwt.SigningMethodHS256,
		CallerClaim:   "sub",
	}
}

// WithValidateFunc sets a custom validation function for JWT claims
func (j *JWTAuthenticator) WithValidateFunc(fn func(claims jwt.MapClaims) error) *JWTAuthenticator {
	j.ValidateFunc = fn
	return j
}

// WithAudience sets the expected audience for JWT validation
func (j *JWTAuthenticator) WithAudience(audience string) *JWTAuthenticator {
	j.Audience = audience
	return j
}

func bearerError(code, message string) error {
	return transport.NewAuthErrorWithScheme(code, message, "bearer")
}

// Authenticate implements transport.Authenticator
func (j *JWTAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, bearerError(transport.AuthErrorCodeMissingCredentials, "missing Authorization header")
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, "invalid Authorization header format")
	}

	method := j.SigningMethod
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithTimeFunc(flextime.Now),
	}
	if j.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(j.Audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.SecretKey, nil
	}, parserOptions...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, bearerError(transport.AuthErrorCodeExpiredCredentials, "JWT token has expired")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, "invalid audience")
	case err != nil:
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, fmt.Sprintf("invalid JWT: %v", err))
	}

	if j.ValidateFunc != nil {
		if err := j.ValidateFunc(claims); err != nil {
			return nil, bearerError(transport.AuthErrorCodeInsufficientScope, fmt.Sprintf("JWT validation failed: %v", err))
		}
	}

	claimName := j.CallerClaim
	if claimName == "" {
		claimName = "sub"
	}
	callerID, _ := claims[claimName].(string)
	if callerID == "" {
		return nil, bearerError(transport.AuthErrorCodeInvalidCredentials, fmt.Sprintf("missing %s claim", claimName))
	}

	newCtx := context.WithValue(ctx, jwtClaimsContextKey{}, claims)
	newCtx = transport.WithCallerID(newCtx, callerID)
	return r.WithContext(newCtx), nil
}

// Schemes implements transport.Authenticator
func (j *JWTAuthenticator) Schemes() []string {
	return []string{"bearer"}
}
