package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	RoleTeacher = "teacher"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenType    = errors.New("unexpected token type")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"expires_at"`
	RefreshExp   time.Time `json:"-"`
}

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens for one issuer.
type Issuer struct {
	issuer     string
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(issuer, key string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{issuer: issuer, key: []byte(key), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// Issue issues signed access and refresh tokens.
func (i *Issuer) Issue(subject, role string) (TokenPair, error) {
	now := i.now()
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	accessToken, err := i.sign(subject, role, TypeAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := i.sign(subject, role, TypeRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (i *Issuer) sign(subject, role, typ string, now, exp time.Time) (string, error) {
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	return signed, errors.Wrapf(err, "sign %s token", typ)
}

// Parse validates a token of the wanted type and returns its claims.
func (i *Issuer) Parse(tokenStr, wantType string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return Claims{}, errors.Wrap(ErrInvalidToken, "issuer mismatch")
	}
	if claims.Type != wantType {
		return Claims{}, ErrTokenType
	}
	return *claims, nil
}
