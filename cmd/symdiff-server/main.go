// Command symdiff-server exposes problem evaluation over HTTP.
//
// Usage:
//
//	symdiff-server -config symdiff.toml -addr :8080
//
// Evaluate endpoint:   POST /evaluate
// Derivative endpoint: POST /derivative
// Health endpoint:     GET  /health
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/internal/config"
	"github.com/njchilds90/symdiff/internal/server"
)

func main() {
	cfgFile := flag.String("config", "", "TOML configuration file")
	addr := flag.String("addr", "", "address to listen on (overrides the configuration)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logrus.WithError(err).Fatal("symdiff-server: configuration")
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	log := cfg.Log.Logger()
	symdiff.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.New(cfg, log).ListenAndServe(ctx); err != nil {
		log.WithError(err).Fatal("symdiff-server: serve")
	}
}
