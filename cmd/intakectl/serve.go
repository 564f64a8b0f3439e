package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbxark/intakeform/httpapi"
	"github.com/tbxark/intakeform/voice"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose intake conversations over HTTP",
	Long: `Serve runs the HTTP API. Without voice, clients recognize speech
themselves and post transcripts; with voice enabled they upload audio and the
server transcribes it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	capturer := func(string) voice.Capturer { return voice.NewRelay() }
	if a.transcriber != nil {
		capturer = func(string) voice.Capturer {
			return voice.NewUploadCapturer(a.transcriber, a.log)
		}
	}
	sessions := a.sessions(capturer)
	defer sessions.Shutdown()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	api := httpapi.NewServer(sessions,
		httpapi.WithParser(a.parser),
		httpapi.WithMaxAudioBytes(a.cfg.Server.MaxAudioBytes),
		httpapi.WithLogger(a.log),
	)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Routes(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
