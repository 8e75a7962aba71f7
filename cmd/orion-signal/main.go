// Command orion-signal runs the peer signaling relay: a WebSocket rendezvous
// that authenticates two devices of the same user, pairs them into a room and
// relays their WebRTC negotiation messages.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/orionhq/orion-signal/internal/auth"
	"github.com/orionhq/orion-signal/internal/config"
	"github.com/orionhq/orion-signal/internal/httpserver"
	"github.com/orionhq/orion-signal/internal/pairing"
	"github.com/orionhq/orion-signal/internal/room"
	"github.com/orionhq/orion-signal/internal/signaling"
)

// Set via -ldflags at release build time.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		stderr := zerolog.New(os.Stderr)
		stderr.Fatal().Err(err).Msg("invalid configuration")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newPairingStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("pairing store init failed")
	}
	defer cleanup()

	signalServer := signaling.NewServer(signaling.Config{
		Verifier:             auth.NewVerifier(cfg.JWTSecret),
		Authorizer:           pairing.NewAuthorizer(store, cfg.Store.Timeout),
		Rooms:                room.NewRegistry(),
		IdleTimeout:          cfg.WS.IdleTimeout,
		PingInterval:         cfg.WS.PingInterval,
		MaxMessageBytes:      cfg.WS.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.WS.MaxMessagesPerSecond,
		Logger:               log,
	})

	httpServer := httpserver.New(httpserver.Config{
		Signal: signalServer,
		Build:  buildInfo(),
		Logger: log,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.ListenAddr).Msg("listen failed")
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(ln) }()

	log.Info().
		Str("version", version).
		Str("addr", cfg.ListenAddr).
		Str("store", cfg.Store.Backend).
		Msg("signaling relay started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = httpServer.Close()
	}
	log.Info().Msg("signaling relay stopped")
}

func newPairingStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (pairing.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		store, err := pairing.OpenPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return pairing.NewDynamoStore(client, cfg.Store.DynamoTable), func() {}, nil

	default:
		// Pairings vanish on restart; acceptable only outside production.
		log.Warn().Msg("using in-memory pairing store")
		return pairing.NewMemoryStore(), func() {}, nil
	}
}

func buildInfo() httpserver.BuildInfo {
	info := httpserver.BuildInfo{Version: version, Commit: "unknown"}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Commit = s.Value
				break
			}
		}
	}
	return info
}
