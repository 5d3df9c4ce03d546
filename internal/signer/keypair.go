// Package signer authenticates callers. Requests are signed with an ed25519
// key whose public half is the caller's identity; the verifier yields that
// identity to the handlers, which trust it without further checks.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cimillas/ticket-resale/internal/domain"
)

// Keypair is an ed25519 signing key. On disk it uses the Solana CLI keypair
// format: a JSON array of the 64 private key bytes.
type Keypair struct {
	private ed25519.PrivateKey
}

func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{private: priv}, nil
}

// NewKeypair wraps an existing private key.
func NewKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair: expected %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	return &Keypair{private: priv}, nil
}

func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}

	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	priv := make(ed25519.PrivateKey, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("parse keypair %s: byte %d out of range", path, i)
		}
		priv[i] = byte(v)
	}

	kp, err := NewKeypair(priv)
	if err != nil {
		return nil, err
	}
	// The trailing half must be the public key derived from the seed.
	if !ed25519.NewKeyFromSeed(priv.Seed()).Equal(priv) {
		return nil, fmt.Errorf("keypair %s: public key does not match seed", path)
	}
	return kp, nil
}

// Save writes the keypair readable only by the current user.
func (k *Keypair) Save(path string) error {
	raw := make([]int, len(k.private))
	for i, b := range k.private {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keypair %s: %w", path, err)
	}
	return nil
}

func (k *Keypair) Identity() domain.Identity {
	var id domain.Identity
	copy(id[:], k.private.Public().(ed25519.PublicKey))
	return id
}

func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}
