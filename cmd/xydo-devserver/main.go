package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xydo.org/internal/config"
	"xydo.org/internal/devserver"
	"xydo.org/internal/obs"
)

var version = "0.1.0"

func main() {
	log.SetFlags(0)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	var (
		addr   = flag.String("addr", cfg.DevAddr, "listen address")
		verify = flag.Bool("require-verification", cfg.DevRequireVerification, "refuse logins until /api/auth/verify is called")
		seed   = flag.Bool("seed", false, "create demo accounts and weekly content")
	)
	flag.Parse()

	obs.SetOutput(os.Stdout)
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	obs.Init()
	obs.InitBuildInfo("xydo-devserver", version)

	dir := devserver.NewDirectory()
	if *seed {
		if err := devserver.Seed(context.Background(), dir); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}
	api, err := devserver.New(dir, devserver.Options{
		Version:             version,
		Secret:              cfg.DevSecret,
		TokenTTL:            cfg.DevTokenTTL,
		RequireVerification: *verify,
		RateBurst:           cfg.DevRateBurst,
		RatePerSecond:       cfg.DevRateLimit,
	})
	if err != nil {
		log.Fatalf("devserver: %v", err)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Info("starting", map[string]any{"service": "xydo-devserver", "version": version, "addr": srv.Addr})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	obs.Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	obs.Info("stopped", nil)
}
