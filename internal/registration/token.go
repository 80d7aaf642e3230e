package registration

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charlesng35/signup/pkg/crypto"
)

const (
	// DefaultTokenLength matches the length of the random strings handed out in links.
	DefaultTokenLength = 30
	// DefaultTokenTimeout applies when no activation or confirmation timeout is configured.
	DefaultTokenTimeout = 24 * time.Hour

	minTokenLength = 16
)

// Token is an opaque random value paired with the instant it stops being accepted.
type Token struct {
	Value      string
	ValidUntil *time.Time
}

// ValidAt reports whether the token is still live at now. The expiry instant itself is
// already invalid and a token without expiry is never valid.
func (t Token) ValidAt(now time.Time) bool {
	if t.ValidUntil == nil {
		return false
	}
	return now.Before(*t.ValidUntil)
}

// TokenPolicy generates activation and confirmation tokens.
type TokenPolicy struct {
	Length int
	// Rand overrides the entropy source; crypto/rand is used when nil.
	Rand io.Reader
}

// NewTokenPolicy returns a policy producing tokens of the given length, clamped to a safe minimum.
func NewTokenPolicy(length int) TokenPolicy {
	switch {
	case length <= 0:
		length = DefaultTokenLength
	case length < minTokenLength:
		length = minTokenLength
	}
	return TokenPolicy{Length: length}
}

// GenerateToken returns a fresh alphanumeric token.
func (p TokenPolicy) GenerateToken() (string, error) {
	length := p.Length
	if length <= 0 {
		length = DefaultTokenLength
	}
	token, err := crypto.RandomString(p.Rand, length, crypto.Alphanumeric)
	if err != nil {
		return "", fmt.Errorf("registration: generate token: %w", err)
	}
	return token, nil
}

// ComputeExpiry returns the absolute instant a token issued at now stops being valid.
func ComputeExpiry(now time.Time, timeout time.Duration) time.Time {
	return now.Add(timeout)
}

const maxTimeout = time.Duration(math.MaxInt64)

var timeoutPart = regexp.MustCompile(`(\d+)\s*([a-z]+)`)

var timeoutUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseTimeout accepts Go duration strings ("36h") as well as human readable specs such as
// "1 day", "30 days" or "1 week 2 days".
func ParseTimeout(spec string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(spec))
	value = strings.TrimPrefix(value, "+")
	if value == "" {
		return 0, errors.New("registration: timeout is empty")
	}

	if d, err := time.ParseDuration(value); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("registration: timeout %q must be positive", spec)
		}
		return d, nil
	}

	matches := timeoutPart.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("registration: invalid timeout %q", spec)
	}

	var (
		total time.Duration
		last  int
	)
	for _, m := range matches {
		if gap := strings.Trim(value[last:m[0]], " ,"); gap != "" && gap != "and" {
			return 0, fmt.Errorf("registration: invalid timeout %q", spec)
		}
		amount, err := strconv.Atoi(value[m[2]:m[3]])
		if err != nil {
			return 0, fmt.Errorf("registration: invalid timeout %q: %w", spec, err)
		}
		unit, ok := timeoutUnits[value[m[4]:m[5]]]
		if !ok {
			return 0, fmt.Errorf("registration: unknown timeout unit %q", value[m[4]:m[5]])
		}
		if time.Duration(amount) > maxTimeout/unit {
			return 0, fmt.Errorf("registration: timeout %q is too large", spec)
		}
		part := time.Duration(amount) * unit
		if total > maxTimeout-part {
			return 0, fmt.Errorf("registration: timeout %q is too large", spec)
		}
		total += part
		last = m[1]
	}
	if rest := strings.TrimSpace(value[last:]); rest != "" {
		return 0, fmt.Errorf("registration: invalid timeout %q", spec)
	}
	if total <= 0 {
		return 0, fmt.Errorf("registration: timeout %q must be positive", spec)
	}
	return total, nil
}
