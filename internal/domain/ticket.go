package domain

import "time"

// MaxMetadataLen bounds ticket metadata in bytes. Storage backends enforce it.
const MaxMetadataLen = 1000

// Ticket is a single-owner transferable record. A Price of zero means the
// ticket is not listed for resale.
type Ticket struct {
	ID        Identity
	Owner     Identity
	Metadata  string
	Price     uint64
	MintedAt  time.Time
	UpdatedAt time.Time
}

// Listed reports whether the owner has made the ticket available for resale.
func (t Ticket) Listed() bool {
	return t.Price > 0
}
