package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/simonvc/fundledger/internal/ledger"
)

// Gateway headers carrying the actor when no JWT secret is configured.
const (
	HeaderActorID     = "X-Actor-ID"
	HeaderActorRole   = "X-Actor-Role"
	HeaderActorChurch = "X-Actor-Church"
)

// Claims is the bearer-token payload. The subject is the actor id.
type Claims struct {
	Role     ledger.Role `json:"role"`
	ChurchID *int64      `json:"church_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret []byte, issuer string, actor ledger.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     actor.Role,
		ChurchID: actor.ChurchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies a token issued by IssueToken and returns its actor.
func ParseToken(secret []byte, issuer, token string) (ledger.Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return ledger.Actor{}, err
	}
	if claims.Subject == "" {
		return ledger.Actor{}, errors.New("token has no subject")
	}
	return ledger.Actor{ID: claims.Subject, Role: claims.Role, ChurchID: claims.ChurchID}, nil
}

type actorKey struct{}

func actorFrom(ctx context.Context) ledger.Actor {
	a, _ := ctx.Value(actorKey{}).(ledger.Actor)
	return a
}

// actorContext resolves the caller once per request. A request without
// credentials gets the zero actor, which Authorize rejects.
func (s *Server) actorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			actor ledger.Actor
			err   error
		)
		if len(s.jwtSecret) > 0 {
			actor, err = s.bearerActor(r)
		} else {
			actor, err = headerActor(r)
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Kind: ledger.KindAuthorization})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func (s *Server) bearerActor(r *http.Request) (ledger.Actor, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ledger.Actor{}, nil
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ledger.Actor{}, errors.New("authorization header must be a bearer token")
	}
	actor, err := ParseToken(s.jwtSecret, s.jwtIssuer, token)
	if err != nil {
		return ledger.Actor{}, errors.New("invalid token: " + err.Error())
	}
	return actor, nil
}

func headerActor(r *http.Request) (ledger.Actor, error) {
	a := ledger.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Role: ledger.Role(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
	}
	if c := r.Header.Get(HeaderActorChurch); c != "" {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return ledger.Actor{}, errors.New("invalid " + HeaderActorChurch + " header")
		}
		a.ChurchID = &id
	}
	return a, nil
}
