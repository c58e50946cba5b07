package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/portal-chat/internal/config"
	"github.com/gosuda/portal-chat/internal/controller"
	"github.com/gosuda/portal-chat/internal/history"
	"github.com/gosuda/portal-chat/internal/identity"
	"github.com/gosuda/portal-chat/internal/render"
	"github.com/gosuda/portal-chat/internal/transport"
	"github.com/gosuda/portal-chat/internal/web"
)

var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Group chat client with local history replay",
	RunE:  runChat,
}

var (
	cfg     config.Config
	loadErr error
)

func init() {
	cfg, loadErr = config.Load()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "chat coordinator websocket URL (env CHAT_SERVER_URL)")
	flags.StringVar(&cfg.DataPath, "data-path", cfg.DataPath, "optional directory to persist chat history via PebbleDB (env CHAT_DATA_PATH)")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "optional local HTTP port serving the transcript (negative to disable)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file instead of stderr")
	flags.BoolVar(&cfg.Plain, "plain", cfg.Plain, "line-oriented mode instead of the full-screen UI")
	flags.StringSliceVar(&cfg.Relays, "relay", cfg.Relays, "optional portal relay URL(s) publishing the transcript; repeat or comma-separated (env CHAT_RELAY)")
	flags.StringVar(&cfg.RelayName, "relay-name", cfg.RelayName, "name the transcript is published under on the relay")
	flags.StringVar(&cfg.CredKey, "cred-key", cfg.CredKey, "optional relay credential key (base64 encoded)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chat command")
	}
}

type historyCache interface {
	controller.Cache
	web.History
}

func runChat(cmd *cobra.Command, args []string) error {
	if loadErr != nil {
		return loadErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile, cfg.Plain)
	if err != nil {
		return err
	}
	defer closeLog()

	// Cancellation context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional: open persistent store
	var cache historyCache = history.NewMemory()
	var store *history.Store
	if cfg.DataPath != "" {
		s, err := history.Open(cfg.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("[chat] open store failed; running in memory only")
		} else {
			store = s
			cache = s
		}
	}
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("[chat] store close error")
			}
		}
	}()

	client, err := transport.Dial(ctx, cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()
	log.Info().Str("client", client.ID()).Str("url", cfg.ServerURL).Msg("[chat] connected")

	transcript := render.NewLog()
	var view render.Renderer = transcript
	if cfg.Plain {
		view = render.Multi{render.NewText(os.Stdout, 0), transcript}
	}
	ctrl := controller.New(client, identity.New(), cache, view)
	ctrl.Start()

	handler := web.NewHandler(cfg.ServerURL, transcript, cache)

	// Optional local transcript server on --port, loopback only
	var httpSrv *http.Server
	if cfg.Port >= 0 {
		httpSrv = newLocalServer(cfg.Port, handler)
		log.Info().Msgf("[chat] transcript at http://%s", httpSrv.Addr)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("[chat] local http stopped")
			}
		}()
	}

	// Optional: publish the transcript through portal relays
	closeRelays, err := serveRelays(ctx, relayURLs(cfg.Relays), cfg.RelayName, cfg.CredKey, handler)
	if err != nil {
		return err
	}
	defer closeRelays()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	disconnected := make(chan error, 1)
	go func() {
		err := client.Run(runCtx)
		if err != nil {
			log.Warn().Err(err).Msg("[chat] connection lost")
		}
		disconnected <- err
	}()

	if cfg.Plain {
		err = runPlain(runCtx, ctrl, os.Stdin, disconnected)
	} else {
		err = runTUI(runCtx, ctrl, transcript, disconnected)
	}
	cancel()

	if httpSrv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("[chat] http server shutdown error")
		}
	}
	log.Info().Msg("[chat] shutdown complete")
	return err
}

// newLocalServer serves handler on the loopback interface only; the
// transcript and history are never exposed to the network this way.
func newLocalServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
