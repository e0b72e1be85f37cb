package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/julianne-789/tech-ga-analytics/internal/heatmap"
	"github.com/julianne-789/tech-ga-analytics/internal/mcp"
)

func runServe(args []string) error {
	var addr string
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--addr"); ok {
			addr = v
			continue
		}
		if v, ok := takeValue(args, &i, "--port"); ok {
			addr = "127.0.0.1:" + strings.TrimPrefix(v, ":")
			continue
		}
		return fmt.Errorf("unexpected argument: %s", args[i])
	}

	cfg, err := resolveConfig(addr)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "galign heatmap: http://%s\n", cfg.Addr.Value)
	logger.Info("starting heatmap server",
		zap.String("addr", cfg.Addr.Value),
		zap.String("addr_source", string(cfg.Addr.Source)),
		zap.String("db", cfg.DBPath.Value),
	)
	return heatmap.Serve(ctx, heatmap.ServerConfig{
		Store:  s,
		Addr:   cfg.Addr.Value,
		Fields: cfg.Fields(),
		Logger: logger,
	})
}

func runMCP(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: galign mcp")
	}
	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	// zap writes to stderr; stdout carries the protocol.
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("starting MCP server on stdio", zap.String("db", cfg.DBPath.Value))
	return mcp.ServeStdio(mcp.ServerConfig{
		Store:   s,
		Version: version,
		Fields:  cfg.Fields(),
		Logger:  logger,
	})
}
