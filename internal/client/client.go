// Package client is a typed HTTP client for the ticket API. Mutating calls
// are signed with the caller's keypair.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cimillas/ticket-resale/internal/clock"
	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/signer"
	transporthttp "github.com/cimillas/ticket-resale/internal/transport/http"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// Keypair signs mutating requests. Reads work without one.
	Keypair *signer.Keypair
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Clock stamps signed requests. If nil, the system clock is used.
	Clock clock.Clock
}

type Client struct {
	baseURL    string
	keypair    *signer.Keypair
	httpClient *http.Client
	clock      clock.Clock
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keypair:    cfg.Keypair,
		httpClient: httpClient,
		clock:      clk,
	}, nil
}

// Mint creates a ticket owned by the client's keypair. A zero ticketID lets
// the server allocate one.
func (c *Client) Mint(ctx context.Context, metadata string, ticketID domain.Identity) (domain.Ticket, error) {
	req := map[string]string{"metadata": metadata}
	if !ticketID.IsZero() {
		req["ticket_id"] = ticketID.String()
	}
	return c.doTicket(ctx, http.MethodPost, "/tickets", req, true)
}

func (c *Client) GetTicket(ctx context.Context, id domain.Identity) (domain.Ticket, error) {
	return c.doTicket(ctx, http.MethodGet, "/tickets/"+id.String(), nil, false)
}

// ListForResale sets the ticket's price; zero unlists it.
func (c *Client) ListForResale(ctx context.Context, id domain.Identity, price uint64) (domain.Ticket, error) {
	req := map[string]uint64{"price": price}
	return c.doTicket(ctx, http.MethodPost, "/tickets/"+id.String()+"/list", req, true)
}

func (c *Client) Transfer(ctx context.Context, id, newOwner domain.Identity) (domain.Ticket, error) {
	req := map[string]string{"new_owner": newOwner.String()}
	return c.doTicket(ctx, http.MethodPost, "/tickets/"+id.String()+"/transfer", req, true)
}

func (c *Client) doTicket(ctx context.Context, method, path string, payload any, sign bool) (domain.Ticket, error) {
	body, err := c.doRequest(ctx, method, path, payload, sign)
	if err != nil {
		return domain.Ticket{}, err
	}
	var resp transporthttp.TicketResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Ticket{}, fmt.Errorf("client: parse ticket response: %w", err)
	}
	return domain.Ticket{
		ID:        resp.ID,
		Owner:     resp.Owner,
		Metadata:  resp.Metadata,
		Price:     resp.Price,
		MintedAt:  resp.MintedAt,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any, sign bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sign {
		if c.keypair == nil {
			return nil, fmt.Errorf("client: %s %s requires a keypair", method, path)
		}
		c.keypair.SignRequest(req, body, c.clock.Now())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}
