// Package record encodes tickets into the fixed account layout used by
// storage backends that persist opaque records:
//
//	discriminator[8] | owner[32] | u32-LE metadata length | metadata | u64-LE price
//
// The ticket identity is the storage key and is not part of the record.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cimillas/ticket-resale/internal/domain"
)

// MaxSize is the largest encoded record, the slot size allocated at mint.
const MaxSize = discriminatorSize + domain.IdentitySize + 4 + domain.MaxMetadataLen + 8

const discriminatorSize = 8

// Discriminator tags a record as a ticket account.
var Discriminator = [discriminatorSize]byte{'t', 'i', 'c', 'k', 'e', 't', 0x01, 0x00}

var (
	ErrShortRecord      = errors.New("record too short")
	ErrBadDiscriminator = errors.New("record discriminator mismatch")
)

// Encode serialises the persisted fields of t. Metadata over
// domain.MaxMetadataLen fails with domain.ErrMetadataTooLarge.
func Encode(t domain.Ticket) ([]byte, error) {
	if len(t.Metadata) > domain.MaxMetadataLen {
		return nil, domain.ErrMetadataTooLarge
	}

	buf := make([]byte, 0, discriminatorSize+domain.IdentitySize+4+len(t.Metadata)+8)
	buf = append(buf, Discriminator[:]...)
	buf = append(buf, t.Owner[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Metadata)))
	buf = append(buf, t.Metadata...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Price)
	return buf, nil
}

// Decode parses a record produced by Encode into the owner, metadata and
// price fields of a Ticket. ID and timestamps are left for the caller.
func Decode(data []byte) (domain.Ticket, error) {
	var t domain.Ticket

	if len(data) < discriminatorSize+domain.IdentitySize+4+8 {
		return t, ErrShortRecord
	}
	if !bytes.Equal(data[:discriminatorSize], Discriminator[:]) {
		return t, ErrBadDiscriminator
	}
	data = data[discriminatorSize:]

	copy(t.Owner[:], data[:domain.IdentitySize])
	data = data[domain.IdentitySize:]

	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if n > domain.MaxMetadataLen {
		return t, fmt.Errorf("decode metadata length %d: %w", n, domain.ErrMetadataTooLarge)
	}
	if uint32(len(data)) != n+8 {
		return t, ErrShortRecord
	}
	t.Metadata = string(data[:n])
	t.Price = binary.LittleEndian.Uint64(data[n:])
	return t, nil
}
