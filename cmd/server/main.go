package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/sync/errgroup"

	"social-tippster/backend/internal/app"
	"social-tippster/backend/internal/config"
)

const (
	healthInterval  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = a.Close(context.Background())
		log.Fatalf("listen: %v", err)
	}

	s := a.NewGRPCServer()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("gRPC server listening on %s", lis.Addr())
		return s.Serve(lis)
	})
	g.Go(func() error { return a.RunSweeper(gctx) })
	g.Go(func() error { return a.Checker.Run(gctx, healthInterval) })
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down gRPC server...")
		a.Checker.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			log.Println("graceful stop timed out; forcing")
			s.Stop()
		}
		return nil
	})

	err = g.Wait()
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := a.Close(closeCtx); cerr != nil {
		log.Printf("close: %v", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("server: %v", err)
		memguard.SafeExit(1)
	}
	log.Println("gRPC server stopped")
}
