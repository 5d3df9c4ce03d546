package sqlite

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/storage/record"
)

type TicketRepository struct {
	pool *Pool
}

func NewTicketRepository(pool *Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	account, err := record.Encode(ticket)
	if err != nil {
		return err
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO tickets (id, account, minted_at, updated_at) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{ticket.ID[:], account, ticket.MintedAt.UnixNano(), ticket.UpdatedAt.UnixNano()},
		})
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ErrTicketAlreadyExists
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return domain.Ticket{}, err
	}
	defer r.pool.Put(conn)

	return getTicket(conn, id)
}

// UpdateTicket holds an immediate (write) transaction across the read, the
// mutator and the write.
func (r *TicketRepository) UpdateTicket(ctx context.Context, id domain.Identity, fn func(t *domain.Ticket) error) (err error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	defer endFn(&err)

	ticket, err := getTicket(conn, id)
	if err != nil {
		return err
	}
	if err = fn(&ticket); err != nil {
		return err
	}

	account, err := record.Encode(ticket)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		`UPDATE tickets SET account = ?, updated_at = ? WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{account, ticket.UpdatedAt.UnixNano(), id[:]},
		})
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	return nil
}

func getTicket(conn *sqlite.Conn, id domain.Identity) (domain.Ticket, error) {
	var (
		ticket domain.Ticket
		found  bool
		decErr error
	)
	err := sqlitex.Execute(conn,
		`SELECT account, minted_at, updated_at FROM tickets WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id[:]},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				account := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, account)
				ticket, decErr = record.Decode(account)
				ticket.MintedAt = time.Unix(0, stmt.ColumnInt64(1)).UTC()
				ticket.UpdatedAt = time.Unix(0, stmt.ColumnInt64(2)).UTC()
				return nil
			},
		})
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	if !found {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	if decErr != nil {
		return domain.Ticket{}, fmt.Errorf("decode ticket %s: %w", id, decErr)
	}
	ticket.ID = id
	return ticket, nil
}

func isConstraintViolation(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintPrimaryKey, sqlite.ResultConstraintUnique:
		return true
	}
	return false
}
