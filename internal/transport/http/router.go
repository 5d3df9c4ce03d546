package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cimillas/ticket-resale/internal/app"
)

// RouterConfig carries the dependencies of the public API.
type RouterConfig struct {
	Tickets     *app.TicketService
	Verifier    RequestVerifier
	Health      func(ctx context.Context) error
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires the ticket routes. Mutating routes require a signed request.
func NewRouter(cfg RouterConfig) http.Handler {
	signedPost := func(h http.Handler) http.Handler {
		return requireMethod(http.MethodPost, RequireSigner(cfg.Verifier, h))
	}

	mux := http.NewServeMux()
	mux.Handle("/health", HandleHealth(cfg.Health, cfg.Logger))
	mux.Handle("/tickets", signedPost(HandleMintTicket(cfg.Tickets)))
	mux.Handle("/tickets/{id}", HandleGetTicket(cfg.Tickets))
	mux.Handle("/tickets/{id}/list", signedPost(HandleListTicket(cfg.Tickets)))
	mux.Handle("/tickets/{id}/transfer", signedPost(HandleTransferTicket(cfg.Tickets)))
	mux.Handle("/", NotFoundHandler())

	return RequestID(RequestLogger(CORS(cfg.CORSOrigins, mux), cfg.Logger))
}
