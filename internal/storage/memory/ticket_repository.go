// Package memory provides an in-process ticket store for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"github.com/cimillas/ticket-resale/internal/domain"
)

// TicketRepository keeps tickets in a map keyed by identity. A single
// mutex serializes writers, which also covers the per-ticket atomicity of
// UpdateTicket.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[domain.Identity]domain.Ticket
}

func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[domain.Identity]domain.Ticket)}
}

func (r *TicketRepository) CreateTicket(_ context.Context, ticket domain.Ticket) error {
	if len(ticket.Metadata) > domain.MaxMetadataLen {
		return domain.ErrMetadataTooLarge
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; ok {
		return domain.ErrTicketAlreadyExists
	}
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *TicketRepository) GetTicket(_ context.Context, id domain.Identity) (domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return ticket, nil
}

func (r *TicketRepository) UpdateTicket(_ context.Context, id domain.Identity, fn func(t *domain.Ticket) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if err := fn(&ticket); err != nil {
		return err
	}
	if len(ticket.Metadata) > domain.MaxMetadataLen {
		return domain.ErrMetadataTooLarge
	}
	r.tickets[id] = ticket
	return nil
}
