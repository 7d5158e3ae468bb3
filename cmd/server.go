package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TheCodeDaniel/voiceSync/internal/server"
)

var (
	flagPort int
	flagHost string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the VoiceSync signaling server",
	Long: `Run the signaling server that brokers rooms and relays WebRTC
negotiation between clients. No audio passes through it.

Examples:
  voicesync server
  voicesync server -p 8080 -H 127.0.0.1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	serverCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (default 3000)")
	serverCmd.Flags().StringVarP(&flagHost, "host", "H", "", "listen host (default 0.0.0.0)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}

	gin.SetMode(cfg.Mode)

	hub := server.NewHub()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.NewRouter(hub, cfg, time.Now()),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("module", "server").Str("addr", cfg.Addr()).Msg("VoiceSync signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Str("module", "server").Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "server").Msg("forced shutdown")
	}
	log.Info().Str("module", "server").Msg("server exited gracefully")
	return nil
}
