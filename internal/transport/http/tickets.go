package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/ticket-resale/internal/app"
	"github.com/cimillas/ticket-resale/internal/domain"
)

// TicketMinter is the minimal interface needed to mint a ticket.
type TicketMinter interface {
	Mint(ctx context.Context, in app.MintInput) (domain.Ticket, error)
}

// TicketReader is the minimal interface needed to read a ticket.
type TicketReader interface {
	GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error)
}

// TicketLister is the minimal interface needed to list a ticket for resale.
type TicketLister interface {
	ListForResale(ctx context.Context, in app.ListInput) (domain.Ticket, error)
}

// TicketTransferrer is the minimal interface needed to transfer a ticket.
type TicketTransferrer interface {
	Transfer(ctx context.Context, in app.TransferInput) (domain.Ticket, error)
}

// HandleMintTicket returns an HTTP handler minting a ticket owned by the
// request signer.
func HandleMintTicket(svc TicketMinter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		caller, ok := callerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		var req mintTicketRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Metadata == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "metadata is required")
			return
		}

		in := app.MintInput{Caller: caller, Metadata: req.Metadata}
		if req.TicketID != "" {
			id, err := domain.ParseIdentity(req.TicketID)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidID, "invalid ticket_id")
				return
			}
			in.TicketID = id
		}

		ticket, err := svc.Mint(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newTicketResponse(ticket))
	}
}

// HandleGetTicket returns an HTTP handler reading a ticket. Reads are not
// authenticated.
func HandleGetTicket(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		id, ok := ticketIDFromPath(w, r)
		if !ok {
			return
		}

		ticket, err := svc.GetTicket(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketResponse(ticket))
	}
}

// HandleListTicket returns an HTTP handler setting a ticket's resale price.
// A price of zero unlists it.
func HandleListTicket(svc TicketLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		caller, ok := callerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		id, ok := ticketIDFromPath(w, r)
		if !ok {
			return
		}

		var req listTicketRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Price == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "price is required")
			return
		}

		ticket, err := svc.ListForResale(r.Context(), app.ListInput{
			Caller:   caller,
			TicketID: id,
			Price:    *req.Price,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketResponse(ticket))
	}
}

// HandleTransferTicket returns an HTTP handler moving a ticket to a new owner.
func HandleTransferTicket(svc TicketTransferrer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		caller, ok := callerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		id, ok := ticketIDFromPath(w, r)
		if !ok {
			return
		}

		var req transferTicketRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.NewOwner == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "new_owner is required")
			return
		}
		newOwner, err := domain.ParseIdentity(req.NewOwner)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid new_owner")
			return
		}

		ticket, err := svc.Transfer(r.Context(), app.TransferInput{
			Caller:   caller,
			TicketID: id,
			NewOwner: newOwner,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketResponse(ticket))
	}
}

func ticketIDFromPath(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, err := domain.ParseIdentity(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid ticket id")
		return domain.Identity{}, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

type mintTicketRequest struct {
	Metadata string `json:"metadata"`
	TicketID string `json:"ticket_id,omitempty"`
}

type listTicketRequest struct {
	Price *uint64 `json:"price"`
}

type transferTicketRequest struct {
	NewOwner string `json:"new_owner"`
}

// TicketResponse is the JSON form of a ticket.
type TicketResponse struct {
	ID        domain.Identity `json:"id"`
	Owner     domain.Identity `json:"owner"`
	Metadata  string          `json:"metadata"`
	Price     uint64          `json:"price"`
	Listed    bool            `json:"listed"`
	MintedAt  time.Time       `json:"minted_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		Owner:     t.Owner,
		Metadata:  t.Metadata,
		Price:     t.Price,
		Listed:    t.Listed(),
		MintedAt:  t.MintedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
