// Package token implements the bearer-token scheme used by the API layer:
// HMAC-SHA256 signed claims, base64url encoded, with an embedded expiry.
// Tokens are issued by the identity edge (or the claimsctl tooling) and
// verified statelessly on every request.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// Role is the coarse-grained role carried by a session token.
type Role string

const (
	RoleProvider Role = "provider"
	RoleOperator Role = "operator"
	RoleAuditor  Role = "auditor"
	RoleAdmin    Role = "admin"
)

// Claims is the identity payload embedded in a signed token.
type Claims struct {
	UserID string `json:"user_id"`
	// ProviderID is set for provider-role users and names the healthcare
	// provider the session acts on behalf of.
	ProviderID string    `json:"provider_id,omitempty"`
	Role       Role      `json:"role"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Verifier checks a raw bearer token and returns its claims.
type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// Codec signs and verifies session tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a Codec. The secret must be non-empty and the TTL positive.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.InvalidParam("token secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.InvalidParam("token TTL must be positive")
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token for the given identity, valid for the codec's TTL.
func (c *Codec) Issue(userID, providerID string, role Role) (string, error) {
	if userID == "" {
		return "", errors.InvalidParam("user ID cannot be empty")
	}
	switch role {
	case RoleProvider, RoleOperator, RoleAuditor, RoleAdmin:
	default:
		return "", errors.InvalidParam("unknown role")
	}
	now := c.now()
	claims := Claims{
		UserID:     userID,
		ProviderID: providerID,
		Role:       role,
		IssuedAt:   now,
		ExpiresAt:  now.Add(c.ttl),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to encode claims")
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Verify checks the signature and expiry of a raw token and returns its
// claims. All failure modes collapse into a single unauthorized error so
// callers cannot distinguish a forged token from an expired one.
func (c *Codec) Verify(raw string) (*Claims, error) {
	encoded, sig, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, errors.Unauthorized("malformed token")
	}
	expected := c.sign(encoded)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, errors.Unauthorized("invalid token signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Unauthorized("malformed token payload")
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Unauthorized("malformed token payload")
	}
	if !c.now().Before(claims.ExpiresAt) {
		return nil, errors.Unauthorized("token expired")
	}
	return &claims, nil
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
