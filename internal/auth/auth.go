package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type authContextKey string

const authKey authContextKey = "authUser"

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

func Encode(secret string, userID int64, email string, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(ttl)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Decode(secret string, token string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GetUser returns the authenticated user id, or 0 for anonymous callers.
func GetUser(ctx context.Context) int64 {
	claims, ok := ctx.Value(authKey).(*Claims)
	if !ok {
		return 0
	}
	userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
	return userID
}

func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(authKey).(*Claims)
	return claims
}

// Middleware attaches claims from a bearer token when one is present.
// Requests without a token pass through anonymous; handlers that require a
// user check GetUser themselves.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				if claims, err := Decode(secret, token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), authKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
