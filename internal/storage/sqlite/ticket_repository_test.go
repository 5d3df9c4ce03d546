package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/testutil"
)

func openTestRepo(t *testing.T) *TicketRepository {
	t.Helper()
	pool, err := Open(filepath.Join(t.TempDir(), "tickets.db"), 4, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return NewTicketRepository(pool)
}

func TestTicketRepository_CreateAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	ticket := domain.Ticket{
		ID:        testutil.Identity(t),
		Owner:     testutil.Identity(t),
		Metadata:  "VIP seat 12",
		MintedAt:  now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateTicket(ctx, ticket))

	got, err := repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket, got)

	err = repo.CreateTicket(ctx, ticket)
	assert.ErrorIs(t, err, domain.ErrTicketAlreadyExists)
}

func TestTicketRepository_MetadataBound(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	ticket := domain.Ticket{
		ID:       testutil.Identity(t),
		Owner:    testutil.Identity(t),
		Metadata: strings.Repeat("m", domain.MaxMetadataLen+1),
	}
	assert.ErrorIs(t, repo.CreateTicket(ctx, ticket), domain.ErrMetadataTooLarge)

	_, err := repo.GetTicket(ctx, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestTicketRepository_Update(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA", Price: 3}
	require.NoError(t, repo.CreateTicket(ctx, ticket))

	newOwner := testutil.Identity(t)
	err := repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
		t.Owner = newOwner
		t.Price = 0
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, newOwner, got.Owner)
	assert.Zero(t, got.Price)
	assert.Equal(t, "GA", got.Metadata)

	boom := errors.New("boom")
	err = repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
		t.Price = 100
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Price, "failed mutator must not persist")

	err = repo.UpdateTicket(ctx, testutil.Identity(t), func(*domain.Ticket) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestTicketRepository_ConcurrentUpdates(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	ticket := domain.Ticket{ID: testutil.Identity(t), Owner: testutil.Identity(t), Metadata: "GA"}
	require.NoError(t, repo.CreateTicket(ctx, ticket))

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.UpdateTicket(ctx, ticket.ID, func(t *domain.Ticket) error {
				t.Price++
				return nil
			}))
		}()
	}
	wg.Wait()

	got, err := repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), got.Price)
}

func TestPool_Ping(t *testing.T) {
	pool, err := Open(filepath.Join(t.TempDir(), "ping.db"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, pool.Ping(context.Background()))
	require.NoError(t, pool.Close())
}
