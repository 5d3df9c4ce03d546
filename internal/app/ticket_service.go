package app

import (
	"context"

	"github.com/cimillas/ticket-resale/internal/clock"
	"github.com/cimillas/ticket-resale/internal/domain"
)

// TicketRepository is the record store. It never checks ownership.
// UpdateTicket applies fn to a copy of the current record and persists the
// result atomically with respect to other updates of the same ticket; if fn
// returns an error nothing is written and that error is returned.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
	GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, id domain.Identity, fn func(t *domain.Ticket) error) error
}

type TicketService struct {
	repo  TicketRepository
	clock clock.Clock
}

func NewTicketService(repo TicketRepository, clk clock.Clock) *TicketService {
	return &TicketService{
		repo:  repo,
		clock: clk,
	}
}

type MintInput struct {
	Caller domain.Identity
	// TicketID is optional; a fresh identity is allocated when zero.
	TicketID domain.Identity
	Metadata string
}

func (s *TicketService) Mint(ctx context.Context, in MintInput) (domain.Ticket, error) {
	if in.Caller.IsZero() {
		return domain.Ticket{}, domain.ErrInvalidIdentity
	}

	id := in.TicketID
	if id.IsZero() {
		var err error
		if id, err = newTicketID(); err != nil {
			return domain.Ticket{}, err
		}
	}

	now := s.clock.Now()
	ticket := domain.Ticket{
		ID:        id,
		Owner:     in.Caller,
		Metadata:  in.Metadata,
		Price:     0,
		MintedAt:  now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

type ListInput struct {
	Caller   domain.Identity
	TicketID domain.Identity
	// Price zero unlists the ticket.
	Price uint64
}

func (s *TicketService) ListForResale(ctx context.Context, in ListInput) (domain.Ticket, error) {
	return s.asOwner(ctx, in.Caller, in.TicketID, func(t *domain.Ticket) {
		t.Price = in.Price
	})
}

type TransferInput struct {
	Caller   domain.Identity
	TicketID domain.Identity
	NewOwner domain.Identity
}

// Transfer hands the ticket to NewOwner and always unlists it. NewOwner is
// taken as is; transferring to the current owner only resets the price.
func (s *TicketService) Transfer(ctx context.Context, in TransferInput) (domain.Ticket, error) {
	return s.asOwner(ctx, in.Caller, in.TicketID, func(t *domain.Ticket) {
		t.Owner = in.NewOwner
		t.Price = 0
	})
}

func (s *TicketService) GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error) {
	return s.repo.GetTicket(ctx, id)
}

// asOwner runs mutate against the ticket only if caller currently owns it.
// The ownership check and the write happen inside the same UpdateTicket call.
func (s *TicketService) asOwner(ctx context.Context, caller, ticketID domain.Identity, mutate func(t *domain.Ticket)) (domain.Ticket, error) {
	now := s.clock.Now()
	var result domain.Ticket

	err := s.repo.UpdateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Owner != caller {
			return domain.ErrInvalidOwner
		}
		mutate(t)
		t.UpdatedAt = now
		result = *t
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}
