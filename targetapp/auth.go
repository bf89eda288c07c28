// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package targetapp

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const defaultCookieName = "qotd_auth"

type contextKey struct{}

// userIDKey is the context key for the authenticated user's email.
// The associated value is always a string.
var userIDKey contextKey

// getUserID returns the email of the signed in user, if any.
func getUserID(r *http.Request) string {
	if val := r.Context().Value(userIDKey); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// normalizeEmail ensures consistent casing and whitespace for user IDs.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maskEmail obscures an email address for safe logging.
// e.g. "user@example.com" -> "u***@example.com"
func maskEmail(email string) string {
	if email == "" {
		return "<empty>"
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || len(parts[0]) < 1 {
		return "****"
	}
	return string(parts[0][0]) + "***@" + parts[1]
}

// issuer signs session tokens and publishes the matching public keys.
type issuer struct {
	kid    string
	key    *rsa.PrivateKey
	keys   jwk.Set
	ttl    time.Duration
	cookie string
	debug  bool
}

func newIssuer(opts Options) (*issuer, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("rsa.GenerateKey: %w", err)
	}
	kid := uuid.NewString()
	pub, err := jwk.Import(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("jwk.Import: %w", err)
	}
	if err := pub.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return nil, err
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cookie := opts.AuthCookieName
	if cookie == "" {
		cookie = defaultCookieName
	}
	return &issuer{kid: kid, key: priv, keys: set, ttl: ttl, cookie: cookie, debug: opts.Debug}, nil
}

// sign returns a token for the user.
func (a *issuer) sign(u User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   u.Email,
		"email": u.Email,
		"name":  u.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(a.ttl).Unix(),
		"jti":   uuid.NewString(),
	})
	tok.Header["kid"] = a.kid
	return tok.SignedString(a.key)
}

// setCookie starts a session for u.
func (a *issuer) setCookie(w http.ResponseWriter, r *http.Request, u User) error {
	tok, err := a.sign(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (a *issuer) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    a.cookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}

// verify returns the email claim of a valid token.
func (a *issuer) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token missing 'kid' header")
		}
		key, ok := a.keys.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("key %s not found in JWKS", kid)
		}
		var raw interface{}
		if err := jwk.Export(key, &raw); err != nil {
			return nil, fmt.Errorf("failed to materialize key: %w", err)
		}
		return raw, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims %T", token.Claims)
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("token has no email claim")
	}
	return normalizeEmail(email), nil
}

// middleware sets the user ID of requests carrying a valid session cookie.
// Other requests proceed as anonymous.
func (a *issuer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		email, err := a.verify(cookie.Value)
		if err != nil {
			if a.debug {
				log.Printf("JWT Validation failed: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// serveJWKS publishes the public keys.
func (a *issuer) serveJWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.keys); err != nil {
		log.Printf("JWKS encode: %v", err)
	}
}

// requireUser rejects anonymous API requests.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserID(r) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
