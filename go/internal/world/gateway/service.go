package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Service is the spectator gateway. It serves the live world over WebSocket
// and the latest snapshot over HTTP.
type Service struct {
	connectionManager *ConnectionManager
	feed              *Feed
}

// Config holds configuration for the spectator gateway
type Config struct {
	Addr             string
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8081",
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

func NewService(config Config, clock clockwork.Clock) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, clock)
	return &Service{
		connectionManager: cm,
		feed:              NewFeed(cm),
	}
}

// Feed is the observer to hand to the world controller
func (s *Service) Feed() *Feed {
	return s.feed
}

// Start runs the broadcaster until ctx is done
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting spectator gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("spectator gateway stopped")
}

// RegisterRoutes registers the gateway routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/world", s.HandleWorldConnection)
	mux.HandleFunc("/ws/stats", s.HandleConnectionStats)
	mux.HandleFunc("/api/world/state", s.HandleGetWorldState)
	mux.HandleFunc("/health", s.HandleHealth)
}

// Handler returns the full HTTP handler with CORS and cleartext HTTP/2
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}
