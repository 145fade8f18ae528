package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"

	"social-tippster/backend/internal/autherr"
)

// TokenType is the value of the "typ" claim distinguishing access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the claim set for both token types. Refresh tokens carry only the registered
// claims and Type; ID is the ledger record id.
type Claims struct {
	jwt.RegisteredClaims
	Type      TokenType `json:"typ"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"sid,omitempty"`
}

// Subject is the identity an access token is minted for.
type Subject struct {
	UserID    string
	Email     string
	Username  string
	Role      string
	SessionID string
}

// TokenProvider issues and validates HS256 access and refresh JWTs, each type signed with its own secret.
// Issuance does no I/O; callers pass the current time.
type TokenProvider struct {
	secrets    *Secrets
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider. issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secrets *Secrets, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secrets:    secrets,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for sub. Returns the token and its expiration time.
func (p *TokenProvider) IssueAccess(sub Subject, now time.Time) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now = now.UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := &Claims{
		RegisteredClaims: p.registered(jti, sub.UserID, now, expiresAt),
		Type:             TokenTypeAccess,
		Email:            sub.Email,
		Username:         sub.Username,
		Role:             sub.Role,
		SessionID:        sub.SessionID,
	}
	token, err := p.sign(TokenTypeAccess, claims)
	return token, expiresAt, err
}

// IssueRefresh issues a refresh JWT bound to ledger record tokenID. expiresAt is the
// record's expiry at issuance; the ledger stays authoritative because extension moves it.
func (p *TokenProvider) IssueRefresh(userID, tokenID string, expiresAt, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: p.registered(tokenID, userID, now.UTC(), expiresAt.UTC()),
		Type:             TokenTypeRefresh,
	}
	return p.sign(TokenTypeRefresh, claims)
}

func (p *TokenProvider) registered(id, subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (p *TokenProvider) sign(t TokenType, claims *Claims) (string, error) {
	enclave, err := p.secrets.enclave(t)
	if err != nil {
		return "", err
	}
	key, err := enclave.Open()
	if err != nil {
		return "", err
	}
	defer key.Destroy()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.Bytes())
}

// ValidateAccess verifies signature, type, exp/nbf (against now), iss and aud of an access token.
// Errors: autherr.ErrWrongTokenType for a valid refresh token, autherr.ErrExpired, otherwise autherr.ErrInvalidToken.
func (p *TokenProvider) ValidateAccess(tokenString string, now time.Time) (*Claims, error) {
	claims, err := p.parse(tokenString,
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if claims == nil {
		return nil, autherr.ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess {
		return nil, autherr.ErrWrongTokenType
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.ErrExpired
		}
		return nil, autherr.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, autherr.ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh verifies signature, type, iss and aud of a refresh token. Expiry is not
// checked here; the ledger record's expires_at decides it.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := p.parse(tokenString, jwt.WithoutClaimsValidation())
	if claims == nil || err != nil {
		return nil, autherr.ErrInvalidToken
	}
	if claims.Type != TokenTypeRefresh {
		return nil, autherr.ErrWrongTokenType
	}
	if claims.Issuer != p.issuer {
		return nil, autherr.ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk || claims.Subject == "" || claims.ID == "" {
		return nil, autherr.ErrInvalidToken
	}
	return claims, nil
}

// parse returns the claims when the signature verified, even if claim validation then failed,
// so callers can classify type and expiry. It returns nil claims for anything else.
func (p *TokenProvider) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	var opened []*memguard.LockedBuffer
	defer func() {
		for _, b := range opened {
			b.Destroy()
		}
	}()
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		c, ok := token.Claims.(*Claims)
		if !ok {
			return nil, autherr.ErrInvalidToken
		}
		enclave, err := p.secrets.enclave(c.Type)
		if err != nil {
			return nil, err
		}
		key, err := enclave.Open()
		if err != nil {
			return nil, err
		}
		opened = append(opened, key)
		return key.Bytes(), nil
	}, opts...)
	if err == nil {
		return claims, nil
	}
	if errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return claims, err
	}
	return nil, err
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
