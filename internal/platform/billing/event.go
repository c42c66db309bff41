// Package billing verifies purchase events signed by the billing provider.
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/golang-jwt/jwt"
)

var (
	ErrMissingSecret = errors.New("billing event secret is not configured")
	ErrInvalidEvent  = errors.New("invalid purchase event")
)

// PurchaseClaims is the payload of a purchase event. Id (jti) identifies
// the event and IssuedAt is the purchase time.
type PurchaseClaims struct {
	UserID string             `json:"user_id"`
	PlanID string             `json:"plan_id"`
	Mode   types.PurchaseMode `json:"mode"`
	jwt.StandardClaims
}

// Valid checks the standard time claims plus the purchase fields.
func (c *PurchaseClaims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.UserID == "" || c.PlanID == "" {
		return fmt.Errorf("%w: user_id and plan_id are required", ErrInvalidEvent)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidEvent, c.Mode)
	}
	return nil
}

// EventTime returns the issue time, or zero if the claim is absent.
func (c *PurchaseClaims) EventTime() time.Time {
	if c.IssuedAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.IssuedAt, 0)
}

// ParseEvent verifies an HS256 signed purchase event. When issuer is not
// empty the iss claim must match it.
func ParseEvent(token, secret, issuer string) (*PurchaseClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	claims := &PurchaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if issuer != "" && !claims.VerifyIssuer(issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidEvent, claims.Issuer)
	}
	return claims, nil
}

// SignEvent produces a token ParseEvent accepts. Used by tooling and tests.
func SignEvent(claims *PurchaseClaims, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
