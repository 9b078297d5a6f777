package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/adapter/driven/identity/static"
	relaymem "github.com/sorenkv/glance/internal/adapter/driven/relay/memory"
	storemem "github.com/sorenkv/glance/internal/adapter/driven/store/memory"
	handler "github.com/sorenkv/glance/internal/adapter/driving/http"
	"github.com/sorenkv/glance/internal/core/service"
)

const defaultAddr = ":8080"

func main() {
	addr := flag.String("http.addr", defaultAddr, "HTTP listen address")
	tokenFile := flag.String("tokens", "", "path to the token table (one \"token user-id\" per line)")
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	log.Logger = l

	if *tokenFile == "" {
		l.Fatal().Msg("-tokens is required")
	}
	resolver, err := static.LoadFile(*tokenFile)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to load token table")
	}

	store := storemem.NewStore()
	relay := relaymem.NewRelay()

	callService := service.NewCallService(store, relay)
	relayService := service.NewRelayService(store, relay)
	h := handler.NewHandler(callService, relayService, resolver)

	srv := &http.Server{
		Addr:    *addr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", *addr).Msg("Starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	l.Info().Msg("Server exited")
}
