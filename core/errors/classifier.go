package errors

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	rateLimitCodes = map[int]struct{}{
		http.StatusTooManyRequests: {},
	}
	degradingCodes = map[int]struct{}{
		http.StatusInternalServerError: {},
		http.StatusBadGateway:          {},
		http.StatusServiceUnavailable:  {},
		http.StatusGatewayTimeout:      {},
		529:                            {}, // provider overloaded
	}
	userFixableCodes = map[int]struct{}{
		http.StatusUnauthorized: {},
		http.StatusForbidden:    {},
	}
)

var transientKeywords = []string{
	"timeout",
	"temporary",
	"connection reset",
	"connection refused",
	"eof",
	"broken pipe",
	"network unreachable",
	"no route to host",
}

// ClassifyStatus maps an HTTP status code from a provider to an error tier.
func ClassifyStatus(code int) ErrorTier {
	if _, ok := rateLimitCodes[code]; ok {
		return TierExternalRateLimit
	}
	if _, ok := degradingCodes[code]; ok {
		return TierExternalDegrading
	}
	if _, ok := userFixableCodes[code]; ok {
		return TierUserFixable
	}
	if code >= 500 {
		return TierExternalDegrading
	}
	return TierPermanent
}

// Classify returns the tier of err. Already tiered errors keep their tier;
// others are classified by message content.
func Classify(err error) ErrorTier {
	if err == nil {
		return TierPermanent
	}
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	if errors.Is(err, context.Canceled) {
		return TierPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TierTransient
	}
	return classifyByContent(err.Error())
}

func classifyByContent(msg string) ErrorTier {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") {
		return TierExternalRateLimit
	}
	if strings.Contains(lower, "overloaded") {
		return TierExternalDegrading
	}
	for _, kw := range transientKeywords {
		if strings.Contains(lower, kw) {
			return TierTransient
		}
	}
	return TierPermanent
}

// ClassifyProviderError wraps a provider failure with its tier. A known HTTP
// status takes precedence over message content, and a Retry-After header in
// header is carried on the error for the rate limit policy.
func ClassifyProviderError(provider string, status int, header http.Header, err error) error {
	if err == nil {
		return nil
	}
	var te *TieredError
	if errors.As(err, &te) {
		return err
	}
	var tier ErrorTier
	if status > 0 {
		tier = ClassifyStatus(status)
	} else {
		tier = Classify(err)
	}
	wrapped := NewTieredError(tier, provider+" request failed", err).WithStatusCode(status)
	if header != nil {
		wrapped.WithRetryAfter(ParseRetryAfter(header.Get("Retry-After"), time.Now()))
	}
	return wrapped
}

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP date. Missing, malformed and past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}
