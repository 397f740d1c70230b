package server

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/providers"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/storage"
)

// Server coordinates the authorization code flow between a Gateway and the
// state and token stores.
type Server struct {
	gateway    providers.Gateway
	stateStore storage.AuthStateStore
	tokenStore storage.TokenStore
	pkce       *security.PKCEGenerator

	// exchanges collapses concurrent callbacks for the same state value
	exchanges singleflight.Group

	Auditor *security.Auditor
	Logger  *slog.Logger
	Config  *Config

	instrumentation *instrumentation.Instrumentation
}

// New creates a new server
func New(
	gateway providers.Gateway,
	stateStore storage.AuthStateStore,
	tokenStore storage.TokenStore,
	config *Config,
	logger *slog.Logger,
) (*Server, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if stateStore == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if tokenStore == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	config = applyDefaults(config)
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Server{
		gateway:    gateway,
		stateStore: stateStore,
		tokenStore: tokenStore,
		pkce:       security.NewPKCEGenerator(),
		Config:     config,
		Logger:     logger,
	}, nil
}

// SetAuditor sets the security auditor
func (s *Server) SetAuditor(aud *security.Auditor) {
	s.Auditor = aud
}

// SetPKCEGenerator replaces the PKCE generator
func (s *Server) SetPKCEGenerator(g *security.PKCEGenerator) {
	s.pkce = g
}

// SetInstrumentation sets OpenTelemetry instrumentation for the server
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.instrumentation = inst
}

// Gateway returns the identity provider gateway
func (s *Server) Gateway() providers.Gateway {
	return s.gateway
}

// Instrumentation returns the configured instrumentation, possibly nil
func (s *Server) Instrumentation() *instrumentation.Instrumentation {
	return s.instrumentation
}
