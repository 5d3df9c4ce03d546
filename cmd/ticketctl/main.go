// ticketctl is a command-line client for the ticket API. It signs mutating
// requests with an ed25519 keypair stored in the Solana CLI file format, so
// an existing wallet keypair can be used directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/cimillas/ticket-resale/internal/client"
	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/signer"
	transporthttp "github.com/cimillas/ticket-resale/internal/transport/http"
)

const (
	defaultServer  = "http://localhost:8080"
	requestTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return fmt.Errorf("subcommand required")
	}

	subcommand, rest := args[0], args[1:]
	switch subcommand {
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "whoami":
		return runWhoami(rest, stdout, stderr)
	case "mint":
		return runMint(ctx, rest, stdout, stderr)
	case "get":
		return runGet(ctx, rest, stdout, stderr)
	case "list":
		return runList(ctx, rest, stdout, stderr)
	case "transfer":
		return runTransfer(ctx, rest, stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: ticketctl <subcommand> [flags]

Subcommands:
  keygen      Generate a keypair file
  whoami      Print the identity of a keypair file
  mint        Mint a ticket owned by your keypair
  get         Show a ticket
  list        Set a ticket's resale price (0 unlists)
  transfer    Transfer a ticket to a new owner

Run 'ticketctl <subcommand> --help' for subcommand flags.
`)
}

// commonFlags are shared by every subcommand that reads a keypair or talks
// to the server.
type commonFlags struct {
	server  string
	keypair string
}

func (c *commonFlags) register(flags *pflag.FlagSet) {
	server := os.Getenv("TICKETCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	flags.StringVar(&c.server, "server", server, "ticket API base URL (env TICKETCTL_SERVER)")
	flags.StringVarP(&c.keypair, "keypair", "k", defaultKeypairPath(), "keypair file (env TICKETCTL_KEYPAIR)")
}

func (c *commonFlags) client(needKey bool) (*client.Client, error) {
	cfg := client.Config{BaseURL: c.server}
	if needKey {
		kp, err := signer.LoadKeypair(c.keypair)
		if err != nil {
			return nil, err
		}
		cfg.Keypair = kp
	}
	return client.New(cfg)
}

func defaultKeypairPath() string {
	if path := os.Getenv("TICKETCTL_KEYPAIR"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("ticketctl "+name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	return flags
}

// parse returns errHelp when --help was requested so callers can exit cleanly.
func parse(flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

var errHelp = errors.New("help requested")

func runKeygen(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var force bool
	flags := newFlagSet("keygen", stderr)
	common.register(flags)
	flags.BoolVar(&force, "force", false, "overwrite an existing keypair file")
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}

	if _, err := os.Stat(common.keypair); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", common.keypair)
	}
	kp, err := signer.Generate()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(common.keypair), 0o700); err != nil {
		return fmt.Errorf("create keypair directory: %w", err)
	}
	if err := kp.Save(common.keypair); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote keypair to %s\n", common.keypair)
	fmt.Fprintln(stdout, kp.Identity())
	return nil
}

func runWhoami(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	flags := newFlagSet("whoami", stderr)
	common.register(flags)
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}

	kp, err := signer.LoadKeypair(common.keypair)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, kp.Identity())
	return nil
}

func runMint(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var metadata, ticketID string
	flags := newFlagSet("mint", stderr)
	common.register(flags)
	flags.StringVarP(&metadata, "metadata", "m", "", "ticket metadata (required)")
	flags.StringVar(&ticketID, "ticket-id", "", "explicit ticket identity (default: server allocates)")
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}
	if metadata == "" {
		return fmt.Errorf("--metadata is required")
	}

	var id domain.Identity
	if ticketID != "" {
		var err error
		if id, err = domain.ParseIdentity(ticketID); err != nil {
			return fmt.Errorf("--ticket-id: %w", err)
		}
	}

	c, err := common.client(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ticket, err := c.Mint(ctx, metadata, id)
	if err != nil {
		return err
	}
	return printTicket(stdout, ticket)
}

func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	flags := newFlagSet("get", stderr)
	common.register(flags)
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}
	id, err := ticketArg(flags)
	if err != nil {
		return err
	}

	c, err := common.client(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ticket, err := c.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	return printTicket(stdout, ticket)
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var price uint64
	flags := newFlagSet("list", stderr)
	common.register(flags)
	flags.Uint64Var(&price, "price", 0, "resale price in the smallest currency unit (0 unlists)")
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}
	if !flags.Changed("price") {
		return fmt.Errorf("--price is required")
	}
	id, err := ticketArg(flags)
	if err != nil {
		return err
	}

	c, err := common.client(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ticket, err := c.ListForResale(ctx, id, price)
	if err != nil {
		return err
	}
	return printTicket(stdout, ticket)
}

func runTransfer(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var to string
	flags := newFlagSet("transfer", stderr)
	common.register(flags)
	flags.StringVar(&to, "to", "", "new owner identity (required)")
	if err := parse(flags, args); err != nil {
		return ignoreHelp(err)
	}
	if to == "" {
		return fmt.Errorf("--to is required")
	}
	newOwner, err := domain.ParseIdentity(to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	id, err := ticketArg(flags)
	if err != nil {
		return err
	}

	c, err := common.client(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ticket, err := c.Transfer(ctx, id, newOwner)
	if err != nil {
		return err
	}
	return printTicket(stdout, ticket)
}

func ticketArg(flags *pflag.FlagSet) (domain.Identity, error) {
	if flags.NArg() != 1 {
		return domain.Identity{}, fmt.Errorf("expected exactly one ticket id argument")
	}
	id, err := domain.ParseIdentity(flags.Arg(0))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("ticket id: %w", err)
	}
	return id, nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}

func printTicket(w io.Writer, t domain.Ticket) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(transporthttp.TicketResponse{
		ID:        t.ID,
		Owner:     t.Owner,
		Metadata:  t.Metadata,
		Price:     t.Price,
		Listed:    t.Listed(),
		MintedAt:  t.MintedAt,
		UpdatedAt: t.UpdatedAt,
	})
}
