package app

import "github.com/cimillas/ticket-resale/internal/domain"

// newTicketID allocates a fresh ticket identity, the same way a new account
// keypair would be generated for a mint.
var newTicketID = domain.NewIdentity
