// Command fake-oura serves canned Oura usercollection responses for local
// runs of the bridge against OURA_API_HOST=http://localhost:9081.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ourabridge/internal/fakeoura"
	"github.com/okian/ourabridge/pkg/logger"
)

// Default configuration constants.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", ":9081", "Listen address")
		token     = flag.String("token", "", "Require this bearer token (empty accepts any)")
		randomIDs = flag.Bool("random-ids", false, "Give every served record a fresh id")
		verbose   = flag.Bool("verbose", false, "Log every request")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("fake-oura")

	opts := []fakeoura.Option{fakeoura.WithLogger(log)}
	if *token != "" {
		opts = append(opts, fakeoura.WithToken(*token))
	}
	if *randomIDs {
		opts = append(opts, fakeoura.WithRandomIDs())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fakeoura.New(opts...),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving canned Oura API", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
}
