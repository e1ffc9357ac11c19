package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReviewLinkSigner creates and validates expiring staff review tokens bound to
// a single batch.
type ReviewLinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewReviewLinkSigner constructs a signer with the provided secret and TTL.
func NewReviewLinkSigner(secret string, ttl time.Duration) *ReviewLinkSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ReviewLinkSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token of the form "<exp>.<sig>" for batchID.
func (s *ReviewLinkSigner) Generate(batchID string) (string, time.Time, error) {
	if batchID == "" {
		return "", time.Time{}, fmt.Errorf("batchID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return exp + "." + s.sign(batchID, exp), expiresAt, nil
}

// Verify checks the token signature against batchID and its expiry.
func (s *ReviewLinkSigner) Verify(batchID, token string) error {
	if len(s.secret) == 0 {
		return fmt.Errorf("signing secret missing")
	}
	exp, signature, ok := strings.Cut(token, ".")
	if !ok || exp == "" || signature == "" {
		return fmt.Errorf("invalid token format")
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp")
	}
	expected := s.sign(batchID, exp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid token signature")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return fmt.Errorf("token expired")
	}
	return nil
}

func (s *ReviewLinkSigner) sign(batchID, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte("review|" + batchID + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
