package signer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"github.com/cimillas/ticket-resale/internal/clock"
	"github.com/cimillas/ticket-resale/internal/domain"
)

const (
	HeaderSigner    = "X-Signer"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// DefaultMaxSkew is how far a request timestamp may drift from the
// verifier's clock in either direction.
const DefaultMaxSkew = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrBadSignature     = errors.New("invalid request signature")
	ErrStaleSignature   = errors.New("request signature outside allowed time window")
)

// Message is the canonical byte string a request signature covers.
func Message(method, path string, timestamp int64, body []byte) []byte {
	sum := sha256.Sum256(body)
	msg := method + "\n" + path + "\n" + strconv.FormatInt(timestamp, 10) + "\n" + hex.EncodeToString(sum[:])
	return []byte(msg)
}

// SignRequest sets the signer headers on req for the given body.
func (k *Keypair) SignRequest(req *http.Request, body []byte, now time.Time) {
	ts := now.Unix()
	sig := k.Sign(Message(req.Method, req.URL.EscapedPath(), ts, body))

	req.Header.Set(HeaderSigner, k.Identity().String())
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, base58.Encode(sig))
}

type Verifier struct {
	clock   clock.Clock
	maxSkew time.Duration
}

func NewVerifier(clk clock.Clock, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Verifier{clock: clk, maxSkew: maxSkew}
}

// Verify checks the signer headers on r against body and returns the
// authenticated identity.
func (v *Verifier) Verify(r *http.Request, body []byte) (domain.Identity, error) {
	signerHeader := r.Header.Get(HeaderSigner)
	tsHeader := r.Header.Get(HeaderTimestamp)
	sigHeader := r.Header.Get(HeaderSignature)
	if signerHeader == "" || tsHeader == "" || sigHeader == "" {
		return domain.Identity{}, ErrMissingSignature
	}

	id, err := domain.ParseIdentity(signerHeader)
	if err != nil {
		return domain.Identity{}, ErrBadSignature
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return domain.Identity{}, ErrBadSignature
	}
	sig, err := base58.Decode(sigHeader)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return domain.Identity{}, ErrBadSignature
	}

	skew := v.clock.Now().Sub(time.Unix(ts, 0))
	if skew > v.maxSkew || skew < -v.maxSkew {
		return domain.Identity{}, ErrStaleSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(id[:]), Message(r.Method, r.URL.EscapedPath(), ts, body), sig) {
		return domain.Identity{}, ErrBadSignature
	}
	return id, nil
}
