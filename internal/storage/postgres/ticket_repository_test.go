package postgres

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/testutil"
)

func TestTicketRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewTicketRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)

	t.Run("CreateTicket and GetTicket round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{
			ID:        testutil.Identity(t),
			Owner:     testutil.Identity(t),
			Metadata:  "VIP seat 12",
			Price:     math.MaxUint64,
			MintedAt:  now,
			UpdatedAt: now,
		}
		if err := repo.CreateTicket(ctx, ticket); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != ticket {
			t.Fatalf("expected %+v, got %+v", ticket, got)
		}
	})

	t.Run("CreateTicket duplicate returns ErrTicketAlreadyExists", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA", MintedAt: now, UpdatedAt: now}
		testutil.InsertTicket(t, ctx, pool, ticket)

		if err := repo.CreateTicket(ctx, ticket); err != domain.ErrTicketAlreadyExists {
			t.Fatalf("expected ErrTicketAlreadyExists, got %v", err)
		}
	})

	t.Run("CreateTicket rejects oversized metadata", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{
			ID:       testutil.Identity(t),
			Owner:    testutil.Identity(t),
			Metadata: strings.Repeat("x", domain.MaxMetadataLen+1),
		}
		if err := repo.CreateTicket(ctx, ticket); err != domain.ErrMetadataTooLarge {
			t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
		}
		if _, err := repo.GetTicket(ctx, ticket.ID); err != domain.ErrTicketNotFound {
			t.Fatalf("expected no row created, got %v", err)
		}
	})

	t.Run("GetTicket missing returns ErrTicketNotFound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetTicket(ctx, testutil.Identity(t)); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("UpdateTicket persists mutation", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA"}
		testutil.InsertTicket(t, ctx, pool, ticket)
		newOwner := testutil.Identity(t)

		err := repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
			t.Owner = newOwner
			t.Price = 250
			t.UpdatedAt = now
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if got.Owner != newOwner || got.Price != 250 || !got.UpdatedAt.Equal(now) {
			t.Fatalf("unexpected ticket: %+v", got)
		}
	})

	t.Run("UpdateTicket mutator error writes nothing", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA", Price: 7}
		testutil.InsertTicket(t, ctx, pool, ticket)

		boom := errors.New("boom")
		err := repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
			t.Price = 99
			return boom
		})
		if err != boom {
			t.Fatalf("expected boom, got %v", err)
		}

		got, err := repo.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if got.Price != 7 {
			t.Fatalf("expected price unchanged, got %d", got.Price)
		}
	})

	t.Run("UpdateTicket missing returns ErrTicketNotFound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.UpdateTicket(ctx, testutil.Identity(t), func(*domain.Ticket) error { return nil })
		if err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("UpdateTicket serializes concurrent writers", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA"}
		testutil.InsertTicket(t, ctx, pool, ticket)

		const writers = 6
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
					t.Price++
					return nil
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("update: %v", err)
			}
		}

		got, err := repo.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if got.Price != writers {
			t.Fatalf("expected price %d after serialized increments, got %d", writers, got.Price)
		}
	})
}
