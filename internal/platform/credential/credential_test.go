package credential

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_VerifyRoundtrip(t *testing.T) {
	h, err := New("hunter22", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify("hunter22"))
	assert.False(t, h.Verify("hunter23"))
	assert.False(t, h.Verify(""))
}

func TestNew_Salted(t *testing.T) {
	a, err := New("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := New("same-password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, a.Stored(), b.Stored())
}

func TestNew_EmptyPassword(t *testing.T) {
	_, err := New("", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestFromStored(t *testing.T) {
	h, err := New("pa55word", bcrypt.MinCost)
	require.NoError(t, err)

	loaded := FromStored(h.Stored())
	assert.True(t, loaded.Verify("pa55word"))
}

func TestZeroHashNeverVerifies(t *testing.T) {
	var h Hash
	assert.True(t, h.IsZero())
	assert.False(t, h.Verify(""))
	assert.False(t, FromStored("not-a-bcrypt-hash").Verify("anything"))
}

func TestHashIsRedacted(t *testing.T) {
	h, err := New("topsecret", bcrypt.MinCost)
	require.NoError(t, err)

	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", h))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", h))
	assert.NotContains(t, fmt.Sprintf("%+v", struct{ H Hash }{h}), h.Stored())

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("user", "password_hash", h)
	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), h.Stored())
}
