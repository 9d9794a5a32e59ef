package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/auth"
	"github.com/kspeckhals01/browser-tab-manager/internal/server"
)

func runServe(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("serve", "serve [options]\n\nRun the WebSocket bridge the extension popup talks to.", stderr)
	addr := fs.String("addr", "", "Address to listen on (default: bridge_addr from config, 127.0.0.1:7171)")
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		listen := rt.cfg.BridgeAddr
		if *addr != "" {
			listen = *addr
		}

		tokens := auth.NewTokenValidator(rt.cfg.BridgeTokenHash, rt.logger)
		if !tokens.Enabled() {
			rt.logger.Warn("bridge_token_hash not set; bridge accepts unauthenticated connections")
		}

		// Each request gets an adapter for the tier in effect right now.
		factory := func(ctx context.Context) (server.Storage, error) {
			a, err := rt.adapter(ctx)
			if err != nil {
				return nil, err
			}
			return a, nil
		}

		srv := server.NewServer(listen, factory,
			server.WithTokenValidator(tokens),
			server.WithRateLimit(server.DefaultRateLimit, server.DefaultRateBurst),
			server.WithLogger(rt.logger))

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := <-srv.StartAsync(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Bridge listening on ws://%s/ws\n", srv.Addr())

		<-ctx.Done()
		rt.logger.Info("shutting down")

		if err := srv.Stop(); err != nil {
			rt.logger.Warn("failed to stop bridge", zap.Error(err))
		}
		return 0
	})
}
