package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReviewLinkSignerGenerateAndVerify(t *testing.T) {
	signer := NewReviewLinkSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("batch-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	require.NoError(t, signer.Verify("batch-1", token))
	require.Error(t, signer.Verify("batch-2", token))
	require.Error(t, NewReviewLinkSigner("other", time.Hour).Verify("batch-1", token))
}

func TestReviewLinkSignerExpired(t *testing.T) {
	signer := NewReviewLinkSigner("secret", time.Minute)
	token, _, err := signer.Generate("batch-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.EqualError(t, signer.Verify("batch-1", token), "token expired")
}

func TestReviewLinkSignerRejectsGarbage(t *testing.T) {
	signer := NewReviewLinkSigner("secret", time.Minute)
	require.Error(t, signer.Verify("batch-1", ""))
	require.Error(t, signer.Verify("batch-1", "abc"))
	require.Error(t, signer.Verify("batch-1", "notanumber.deadbeef"))
}
