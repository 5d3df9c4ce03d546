package domain

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the width of an identity in bytes (an ed25519 public key).
const IdentitySize = 32

// Identity is the fixed-width public identifier of a principal or a ticket.
// Its text form is base58.
type Identity [IdentitySize]byte

// NewIdentity returns a random identity, used for freshly minted tickets.
func NewIdentity() (Identity, error) {
	var id Identity
	if _, err := rand.Read(id[:]); err != nil {
		return Identity{}, fmt.Errorf("generate identity: %w", err)
	}
	return id, nil
}

// ParseIdentity decodes a base58 identity. The zero identity is rejected.
func ParseIdentity(s string) (Identity, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != IdentitySize {
		return Identity{}, ErrInvalidIdentity
	}
	var id Identity
	copy(id[:], raw)
	if id.IsZero() {
		return Identity{}, ErrInvalidIdentity
	}
	return id, nil
}

// IdentityFromBytes copies a 32-byte slice into an Identity.
func IdentityFromBytes(b []byte) (Identity, error) {
	if len(b) != IdentitySize {
		return Identity{}, ErrInvalidIdentity
	}
	var id Identity
	copy(id[:], b)
	return id, nil
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
