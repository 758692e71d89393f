package emailtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, at time.Time) *Codec {
	t.Helper()
	c, err := New("test-secret")
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return at })
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New("   ")
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	token, err := c.Issue("Reader@Example.COM ", PurposeConfirm)
	require.NoError(t, err)

	email, err := c.Verify(token, PurposeConfirm)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", email)
}

func TestVerifyExpired(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, issued)

	token, err := c.Issue("reader@example.com", PurposeConfirm)
	require.NoError(t, err)

	// Just inside the TTL still verifies.
	_, err = c.WithClock(func() time.Time { return issued.Add(TTL - time.Second) }).
		Verify(token, PurposeConfirm)
	assert.NoError(t, err)

	// Past the TTL fails with ErrExpired.
	_, err = c.WithClock(func() time.Time { return issued.Add(TTL + time.Minute) }).
		Verify(token, PurposeConfirm)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMalformed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	_, err := c.Verify("not-a-token", PurposeConfirm)
	assert.ErrorIs(t, err, ErrMalformed)

	// Token signed with a different secret.
	other, err := New("other-secret")
	require.NoError(t, err)
	token, err := other.WithClock(func() time.Time { return now }).
		Issue("reader@example.com", PurposeConfirm)
	require.NoError(t, err)
	_, err = c.Verify(token, PurposeConfirm)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyPurposeMismatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	token, err := c.Issue("reader@example.com", PurposeUnsubscribe)
	require.NoError(t, err)

	_, err = c.Verify(token, PurposeConfirm)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyEmptyEmailClaim(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	token, err := c.Issue("   ", PurposeConfirm)
	require.NoError(t, err)

	_, err = c.Verify(token, PurposeConfirm)
	assert.ErrorIs(t, err, ErrMalformed)
}
