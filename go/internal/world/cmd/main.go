package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/config"
	"github.com/mcdev12/ballbattle/go/internal/room/natsroom"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/gateway"
	"github.com/mcdev12/ballbattle/go/internal/world/scene"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the world YAML config")
	demoPlayers := flag.Int("mem", 0, "run an in-process demo room with this many players instead of NATS")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gatewayCfg := cfg.ToGateway()
	gw := gateway.NewService(gatewayCfg, clockwork.NewRealClock())
	go gw.Start(ctx)

	server := &http.Server{
		Addr:              gatewayCfg.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if *demoPlayers > 0 {
		err = runDemo(ctx, cfg, gw.Feed(), *demoPlayers)
	} else {
		err = runRoom(ctx, cfg, gw.Feed())
	}
	if err != nil {
		log.Error().Err(err).Msg("world stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("world shutdown complete")
}

// runRoom plays one session in a NATS hosted room
func runRoom(ctx context.Context, cfg *config.Config, observer controller.Observer) error {
	participantID := cfg.Room.Participant
	if participantID == "" {
		participantID = uuid.New().String()
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	spawn := authority.NewRandomPositions(cfg.ToController().Bounds, rng).RandomPosition()

	room, err := natsroom.Connect(ctx, cfg.ToNATSRoom(participantID), natsroom.WithPosition(spawn))
	if err != nil {
		return err
	}

	ctrl := controller.New(room, scene.NewLogScene(participantID), observer, cfg.ToController())
	if err := ctrl.Start(ctx); err != nil {
		room.Close()
		return err
	}

	runErr := ctrl.Run(ctx, room.Notifications())

	if ctrl.State() != controller.StateEnded {
		leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := room.LeaveRoom(leaveCtx); err != nil {
			log.Warn().Err(err).Msg("failed to leave room cleanly")
		}
	}
	return runErr
}
