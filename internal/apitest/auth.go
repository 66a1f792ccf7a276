package apitest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type principalKey struct{}

type account struct {
	Username string
	FullName string
	Email    string
	Hash     []byte
}

func withPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey{}, username)
}

func principalFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(principalKey{}).(string)
	return u, ok && u != ""
}

func (b *Backend) issueToken(username string) (string, error) {
	now := b.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.cfg.JWTSecret))
}

func (b *Backend) authenticateJWT(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
	)
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(b.cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	b.mu.Lock()
	_, known := b.accounts[claims.Subject]
	revoked := b.revoked[token]
	b.mu.Unlock()
	if !known || revoked {
		return "", errors.New("unknown principal")
	}
	return claims.Subject, nil
}

func (b *Backend) register(username, password, email, fullName string) (account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return account{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[username]; exists {
		return account{}, newAPIError(http.StatusBadRequest, "Bad Request", "Username already exists", nil)
	}
	a := account{Username: username, FullName: fullName, Email: email, Hash: hash}
	b.accounts[username] = a
	return a, nil
}

func (b *Backend) login(username, password string) (account, error) {
	b.mu.Lock()
	a, ok := b.accounts[username]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(a.Hash, []byte(password)) != nil {
		return account{}, newAPIError(http.StatusUnauthorized, "Unauthorized", "Invalid username or password", nil)
	}
	return a, nil
}

// Revoke makes the server reject token from now on.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	authPrefix := b.cfg.BasePath + "/auth/"
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasPrefix(req.URL.Path, b.cfg.BasePath) || strings.HasPrefix(req.URL.Path, authPrefix) {
			next.ServeHTTP(w, req)
			return
		}
		token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
		if !ok {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "Unauthorized", "authentication required", nil))
			return
		}
		username, err := b.authenticateJWT(token)
		if err != nil {
			b.logger().Printf("apitest: rejected token: %v", err)
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "Unauthorized", "invalid credentials", nil))
			return
		}
		next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), username)))
	})
}

func (b *Backend) now() time.Time {
	if b.cfg.Now != nil {
		return b.cfg.Now()
	}
	return time.Now()
}
