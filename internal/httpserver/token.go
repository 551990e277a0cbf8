// internal/httpserver/token.go
//
// Per-game player tokens.
// A token is an HS256 JWT carrying the game ID in the "gid" claim. It is returned
// by POST /game/new and also set as an HttpOnly cookie scoped to /game/{id}, so
// EventSource clients that cannot send headers are authorized too.

package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenCookieName = "digitspan_token"

var errInvalidToken = errors.New("httpserver: invalid game token")

type gameClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// signGameToken creates a token for gameID that expires after the configured TTL.
func (s *Server) signGameToken(gameID string) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.opts.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := token.SignedString(s.opts.Secret)
	return ss, exp, err
}

// parseGameToken verifies signature, algorithm and expiry against the server clock.
func (s *Server) parseGameToken(raw string) (*gameClaims, error) {
	claims := &gameClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return s.opts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.GameID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// setTokenCookie writes the token cookie for one game.
func setTokenCookie(w http.ResponseWriter, r *http.Request, gameID, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/game/" + gameID,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// bearerOrCookie extracts the token from "Authorization: Bearer" or the token cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	return ""
}
