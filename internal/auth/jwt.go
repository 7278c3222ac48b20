package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds. Access tokens authorize API calls; refresh tokens are
// exchanged (and rotated) at the token endpoint.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Claims struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Sign issues a token of the given kind for userID.
func (ts TokenService) Sign(userID, kind string) (string, time.Time, error) {
	ttl := ts.AccessTTL
	if kind == KindRefresh {
		ttl = ts.RefreshTTL
	}
	exp := time.Now().Add(ttl)

	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// SignPair issues an access/refresh token pair for userID.
func (ts TokenService) SignPair(userID string) (access, refresh string, accessExp time.Time, err error) {
	access, accessExp, err = ts.Sign(userID, KindAccess)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, _, err = ts.Sign(userID, KindRefresh)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, accessExp, nil
}

// Parse validates the token and checks it is of the expected kind.
func (ts TokenService) Parse(tokenString, kind string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// enforce HS256
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("wrong token kind %q", claims.Kind)
	}
	return claims, nil
}
