// Package tokenclock reads the expiry embedded in an access token and turns
// it into refresh instants. Everything here is pure; callers pass "now".
package tokenclock

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

const (
	// DefaultRefreshLeadTime is how early before expiry a proactive refresh fires
	DefaultRefreshLeadTime = 30 * time.Minute
	// DefaultReactiveThreshold is the preflight window checked before a request
	DefaultReactiveThreshold = 60 * time.Second
)

// Claims is the subset of the access token the client reasons about
type Claims struct {
	Expiry   time.Time
	IssuedAt time.Time
	Subject  string
	TenantID string
}

var parser = jwtlib.NewParser()

// Decode extracts the expiry without verifying the signature; the client never
// holds the signing key and the server stays the authority on validity.
func Decode(accessToken string) (Claims, error) {
	if strings.Count(accessToken, ".") != 2 {
		return Claims{}, &apperrors.DecodeError{Reason: "expected 3 segments", Err: apperrors.ErrMalformedToken}
	}

	mapClaims := jwtlib.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, mapClaims); err != nil {
		return Claims{}, &apperrors.DecodeError{Reason: "invalid encoding", Err: err}
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return Claims{}, &apperrors.DecodeError{Reason: "invalid exp claim", Err: err}
	}
	if exp == nil {
		return Claims{}, &apperrors.DecodeError{Reason: "missing exp claim", Err: apperrors.ErrMissingExpiry}
	}

	claims := Claims{Expiry: exp.Time}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.TenantID, _ = mapClaims["tenant"].(string)
	return claims, nil
}

// ExpiryInstant returns false when the token cannot be decoded. Callers must
// then skip proactive scheduling and rely on reactive 401 handling.
func ExpiryInstant(accessToken string) (time.Time, bool) {
	claims, err := Decode(accessToken)
	if err != nil {
		return time.Time{}, false
	}
	return claims.Expiry, true
}

// IsExpiringWithin reports whether the token expires before now+threshold.
// Undecodable tokens report false.
func IsExpiringWithin(accessToken string, threshold time.Duration, now time.Time) bool {
	expiry, ok := ExpiryInstant(accessToken)
	if !ok {
		return false
	}
	return !expiry.After(now.Add(threshold))
}

// RefreshDelay is max(0, expiry-lead-now). Zero means "refresh now".
func RefreshDelay(expiry, now time.Time, lead time.Duration) time.Duration {
	delay := expiry.Sub(now) - lead
	if delay < 0 {
		return 0
	}
	return delay
}
