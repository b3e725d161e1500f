// ABOUTME: Bearer-token authentication for the operator API.
// ABOUTME: HS256 JWTs with the operator name in the "sub" claim.

package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the bearer token failed verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier validates operator bearer tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier over the shared HS256 secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify checks the token and returns the operator name from "sub".
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	return sub, nil
}

// NewToken mints an operator token signed with the shared secret.
func NewToken(secret []byte, operator string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": operator,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// requireAuth wraps a handler with bearer-token verification.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		operator, err := s.verifier.Verify(tokenString)
		if err != nil {
			s.logger.Warn("rejected api token", "error", err)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		s.logger.Debug("authenticated request",
			"operator", operator,
			"method", r.Method,
			"path", r.URL.Path,
		)
		next(w, r)
	}
}
