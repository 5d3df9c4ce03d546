package signer

import (
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/ticket-resale/internal/clock"
)

func TestKeypair_SaveLoad(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, kp.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "["), "expected JSON byte array, got %q", data)

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Identity(), loaded.Identity())
}

func TestLoadKeypair_Rejects(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`[1,2,3]`), 0o600))
	_, err := LoadKeypair(short)
	assert.Error(t, err)

	kp, err := Generate()
	require.NoError(t, err)
	bad := append(ed25519.PrivateKey{}, kp.private...)
	bad[len(bad)-1] ^= 0xFF
	tampered := filepath.Join(dir, "tampered.json")
	require.NoError(t, (&Keypair{private: bad}).Save(tampered))
	_, err = LoadKeypair(tampered)
	assert.Error(t, err)

	_, err = LoadKeypair(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestVerifier(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	kp, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	body := []byte(`{"price":500}`)
	newSigned := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/tickets/abc/list", nil)
		kp.SignRequest(req, body, now)
		return req
	}

	t.Run("valid signature yields identity", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		id, err := v.Verify(newSigned(), body)
		require.NoError(t, err)
		assert.Equal(t, kp.Identity(), id)
	})

	t.Run("missing headers", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		req := httptest.NewRequest(http.MethodPost, "/tickets/abc/list", nil)
		_, err := v.Verify(req, body)
		assert.ErrorIs(t, err, ErrMissingSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		_, err := v.Verify(newSigned(), []byte(`{"price":1}`))
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("different path", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		req := newSigned()
		req.URL.Path = "/tickets/abc/transfer"
		_, err := v.Verify(req, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("claimed signer differs from key", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		req := newSigned()
		req.Header.Set(HeaderSigner, other.Identity().String())
		_, err := v.Verify(req, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		clk := clock.NewManual(now)
		v := NewVerifier(clk, time.Minute)
		clk.Advance(2 * time.Minute)
		_, err := v.Verify(newSigned(), body)
		assert.ErrorIs(t, err, ErrStaleSignature)
	})

	t.Run("future timestamp", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now.Add(-2*time.Minute)), time.Minute)
		_, err := v.Verify(newSigned(), body)
		assert.ErrorIs(t, err, ErrStaleSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		v := NewVerifier(clock.NewFixed(now), time.Minute)
		req := newSigned()
		req.Header.Set(HeaderSignature, "notbase58!")
		_, err := v.Verify(req, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})
}
