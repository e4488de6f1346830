// Package server wires the label store, sequencer, broadcaster, and XRPC
// handlers into an HTTP/WebSocket service shell.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/labelmaker/broadcast"
	"github.com/teranos/labelmaker/crypto"
	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/teranos/labelmaker/errors"
	"github.com/teranos/labelmaker/logger"
	"github.com/teranos/labelmaker/sequencer"
	"github.com/teranos/labelmaker/store"
	"github.com/teranos/labelmaker/store/sqlite"
	"github.com/teranos/labelmaker/xrpc/emitevent"
	"github.com/teranos/labelmaker/xrpc/querylabels"
)

// ShutdownTimeout bounds how long shutdown waits for in-flight HTTP requests
// to drain before forcing a close.
const ShutdownTimeout = 10 * time.Second

// didResolveTimeout bounds DID-document fetches performed during JWT
// verification.
const didResolveTimeout = 5 * time.Second

// Config carries the construction-time configuration described in the
// labeler's external interfaces.
type Config struct {
	// Addr is the listen address, e.g. ":8443".
	Addr string
	// DID is the labeler's own DID (did:plc:… or did:web:…).
	DID string
	// SigningKey is the 32-byte secp256k1 private key, hex or base64.
	SigningKey string
	// StorePath is the SQLite database file backing the label log.
	StorePath string
	// Policy is the optional auth policy hook for emitEvent. Nil selects
	// the default: issuer DID must equal DID.
	Policy emitevent.PolicyFunc
}

// Server is the labeler's HTTP/WebSocket shell.
type Server struct {
	cfg Config
	log *zap.SugaredLogger

	store       store.Store
	broadcaster *broadcast.Broadcaster
	sequencer   *sequencer.Sequencer
	resolver    *crypto.Resolver

	queryHandler *querylabels.Handler
	emitHandler  *emitevent.Handler

	httpServer *http.Server
	ready      atomic.Bool
}

// New constructs a Server from cfg without starting it. The store is not
// opened until Run is called.
func New(cfg Config) (*Server, error) {
	signingKey, err := crypto.LoadSigningKey(cfg.SigningKey)
	if err != nil {
		return nil, errors.Wrap(err, "load signing key")
	}

	st := sqlite.New(cfg.StorePath, logger.Logger)
	b := broadcast.New(st)
	seq := sequencer.New(st, signingKey, cfg.DID, b)
	resolver := crypto.NewResolver(didResolveTimeout)

	s := &Server{
		cfg:          cfg,
		log:          logger.Logger,
		store:        st,
		broadcaster:  b,
		sequencer:    seq,
		resolver:     resolver,
		queryHandler: querylabels.New(st),
		emitHandler:  emitevent.New(resolver, seq, cfg.DID, cfg.Policy),
	}
	return s, nil
}

// publicKey returns the server's own signing public key, used by the health
// handler to report the labeler's did:key form.
func (s *Server) publicKey() (indigocrypto.PublicKey, error) {
	priv, err := crypto.LoadSigningKey(s.cfg.SigningKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

// Run opens the store, starts listening, and blocks until ctx is
// cancelled, at which point it drains in-flight HTTP requests and returns.
// Upgraded WebSocket connections are not waited for. The service refuses
// traffic until store initialization completes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.store.Init(ctx); err != nil {
		return errors.Wrap(err, "initialize store")
	}
	defer s.store.Close()

	s.ready.Store(true)
	s.log.Infow("labeler store ready", "path", s.cfg.StorePath, "did", s.cfg.DID)

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("labeler listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	s.log.Infow("labeler shutting down")
	s.ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warnw("forced shutdown after timeout", "error", err)
		return s.httpServer.Close()
	}
	return nil
}
