package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the display-relevant fields of a JWT credential. They are read
// without verifying the signature: the console only uses them as a label and
// an expiry hint, never for authorization.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	Role      string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token as an unverified JWT. Opaque tokens yield nil.
func ParseClaims(token string) *Claims {
	if token == "" {
		return nil
	}
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil
	}
	c := &Claims{
		Subject: tc.Subject,
		Email:   tc.Email,
		Name:    tc.Name,
		Role:    tc.Role,
	}
	if c.Name == "" {
		c.Name = tc.Username
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c
}

// Expired reports whether the claims carry an expiry before now.
func (c *Claims) Expired(now time.Time) bool {
	return c != nil && !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
