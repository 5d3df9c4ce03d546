package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const metadataLengthConstraint = "tickets_metadata_length"

type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	if len(ticket.Metadata) > domain.MaxMetadataLen {
		return domain.ErrMetadataTooLarge
	}

	const stmt = `
INSERT INTO tickets (id, owner, metadata, price, minted_at, updated_at)
VALUES ($1, $2, $3, $4::text::numeric, $5, $6)`

	_, err := r.exec(ctx, stmt,
		ticket.ID[:],
		ticket.Owner[:],
		ticket.Metadata,
		strconv.FormatUint(ticket.Price, 10),
		ticket.MintedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTicketAlreadyExists
		}
		if isCheckViolation(err, metadataLengthConstraint) {
			return domain.ErrMetadataTooLarge
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error) {
	return r.getTicket(ctx, id, false)
}

// UpdateTicket locks the row for the duration of fn so the read and the
// write cannot interleave with another update of the same ticket.
func (r *TicketRepository) UpdateTicket(ctx context.Context, id domain.Identity, fn func(t *domain.Ticket) error) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		ticket, err := r.getTicket(txCtx, id, true)
		if err != nil {
			return err
		}
		if err := fn(&ticket); err != nil {
			return err
		}
		if len(ticket.Metadata) > domain.MaxMetadataLen {
			return domain.ErrMetadataTooLarge
		}

		const stmt = `
UPDATE tickets
SET owner = $2, metadata = $3, price = $4::text::numeric, updated_at = $5
WHERE id = $1`

		_, err = r.exec(txCtx, stmt,
			id[:],
			ticket.Owner[:],
			ticket.Metadata,
			strconv.FormatUint(ticket.Price, 10),
			ticket.UpdatedAt,
		)
		if err != nil {
			if isCheckViolation(err, metadataLengthConstraint) {
				return domain.ErrMetadataTooLarge
			}
			return fmt.Errorf("update ticket: %w", err)
		}
		return nil
	})
}

func (r *TicketRepository) getTicket(ctx context.Context, id domain.Identity, forUpdate bool) (domain.Ticket, error) {
	query := `
SELECT id, owner, metadata, price::text, minted_at, updated_at
FROM tickets
WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		rawID, rawOwner []byte
		price           string
		t               domain.Ticket
	)
	err := r.queryRow(ctx, query, id[:]).
		Scan(&rawID, &rawOwner, &t.Metadata, &price, &t.MintedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}

	if t.ID, err = domain.IdentityFromBytes(rawID); err != nil {
		return domain.Ticket{}, fmt.Errorf("scan ticket id: %w", err)
	}
	if t.Owner, err = domain.IdentityFromBytes(rawOwner); err != nil {
		return domain.Ticket{}, fmt.Errorf("scan ticket owner: %w", err)
	}
	if t.Price, err = strconv.ParseUint(price, 10, 64); err != nil {
		return domain.Ticket{}, fmt.Errorf("scan ticket price: %w", err)
	}
	t.MintedAt = t.MintedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
