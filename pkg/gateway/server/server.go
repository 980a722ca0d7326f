// Package server wires the gateway's handlers, middleware chain, and
// upstream HTTP client into a single http.Handler.
package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/fleetvoice/fleetvoice/pkg/gateway/config"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/handlers"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/mw"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/store"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	audit      store.Store
	issuer     handlers.CardIssuer
	httpClient *http.Client
}

func New(cfg config.Config, logger *slog.Logger, audit store.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = store.Noop{}
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.UpstreamConnectTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.UpstreamResponseHeaderTimeout,
		},
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		audit:      audit,
		issuer:     buildIssuer(cfg),
		httpClient: httpClient,
	}

	s.routes()
	return s
}

func buildIssuer(cfg config.Config) handlers.CardIssuer {
	if cfg.StripeAPIKey != "" && cfg.StripeCardholderID != "" {
		return handlers.StripeIssuer{
			Client:     stripe.NewClient(cfg.StripeAPIKey),
			Cardholder: cfg.StripeCardholderID,
		}
	}
	return handlers.SyntheticIssuer{}
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})

	s.mux.Handle("/session", handlers.SessionHandler{
		Config:     s.cfg,
		HTTPClient: s.httpClient,
		Logger:     s.logger,
	})
	s.mux.Handle("/api/tools", handlers.ToolsHandler{
		Config: s.cfg,
		Store:  s.audit,
		Issuer: s.issuer,
		Logger: s.logger,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
