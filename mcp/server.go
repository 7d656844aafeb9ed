// Package mcp serves the taskboard SDK as Model Context Protocol tools over
// stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client"
	"github.com/taskboard/taskboard/internal/config"
	"github.com/taskboard/taskboard/mcp/internal/handlers"
)

// serverConfig holds the MCP-specific settings, read from TASKBOARD_MCP_*.
type serverConfig struct {
	ServerName       string        `envconfig:"SERVER_NAME" default:"taskboard-mcp-server"`
	ServerVersion    string        `envconfig:"SERVER_VERSION" default:"0.1.0"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8001"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	HTTPIdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	HeartbeatSeconds int           `envconfig:"HEARTBEAT_SECONDS" default:"30"`
}

// loadConfig loads configuration from environment variables and flags
func loadConfig() (*config.Config, *serverConfig, error) {
	base, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	var sc serverConfig
	if err := envconfig.Process(config.Prefix+"_MCP", &sc); err != nil {
		return nil, nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// Command line flags (will override env vars)
	flag.StringVar(&base.APIURL, "service-url", base.APIURL, "Base URL of the task service")
	flag.StringVar(&base.LogLevel, "log-level", base.LogLevel, "Log level: debug|info|warn|error")
	flag.StringVar(&sc.HTTPAddr, "http-addr", sc.HTTPAddr, "Listen address for the streamable HTTP transport")
	flag.Parse()

	return base, &sc, nil
}

type toolRegisterer interface {
	RegisterTools(s *server.MCPServer) error
}

// NewServer builds an MCP server whose tools act through c.
func NewServer(c *client.Client, name, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)
	for _, h := range []struct {
		name string
		reg  toolRegisterer
	}{
		{"session", handlers.NewSessionHandler(c)},
		{"project", handlers.NewProjectHandler(c)},
		{"task", handlers.NewTaskHandler(c)},
		{"team", handlers.NewTeamHandler(c)},
	} {
		if err := h.reg.RegisterTools(s); err != nil {
			return nil, fmt.Errorf("register %s tools: %w", h.name, err)
		}
	}
	return s, nil
}

// RunMCPServer starts the MCP server with the environment's configuration.
func RunMCPServer() error {
	cfg, sc, err := loadConfig()
	if err != nil {
		return err
	}
	config.InitLogger()
	config.SetLogLevel(cfg.Level())

	store, err := client.OpenTokenStore(cfg.TokenStore, cfg.TokenPath)
	if err != nil {
		return err
	}
	log.Info().Str("service_url", cfg.APIURL).Str("token_store", cfg.TokenStore).Msg("creating client")
	sdk := client.New(cfg.APIURL,
		client.WithHTTPTimeout(cfg.HTTPTimeout),
		client.WithRetry(cfg.FetchRetries),
		client.WithTokenStore(store),
		client.WithUserAgent(sc.ServerName+"/"+sc.ServerVersion),
	)
	defer func() { _ = sdk.Close() }()

	restoreCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	snap, err := sdk.Restore(restoreCtx)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("session restore failed; tools will ask for login")
	} else {
		log.Info().Str("session", snap.Status.String()).Msg("session restored")
	}

	s, err := NewServer(sdk, sc.ServerName, sc.ServerVersion)
	if err != nil {
		return err
	}

	// Auto-detect transport method
	if shouldUseStdio() {
		log.Info().Msg("Starting taskboard MCP server (stdio transport)")
		return server.ServeStdio(s)
	}
	return serveHTTP(s, sc)
}

func serveHTTP(s *server.MCPServer, sc *serverConfig) error {
	log.Info().Str("addr", sc.HTTPAddr).Msg("Starting taskboard MCP server (Streamable HTTP)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	streamSrv := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(time.Duration(sc.HeartbeatSeconds)*time.Second),
	)
	srv := &http.Server{
		Addr:         sc.HTTPAddr,
		Handler:      streamSrv,
		ReadTimeout:  sc.HTTPReadTimeout, // Keep short for request parsing
		WriteTimeout: 0,                  // No deadline - required for SSE streaming
		IdleTimeout:  sc.HTTPIdleTimeout,
	}

	shutdownComplete := make(chan struct{})
	go func() {
		defer close(shutdownComplete)
		sig, ok := <-sigChan
		if !ok {
			return
		}
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP server shutdown")
		}
		if err := streamSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during MCP server shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownComplete
	log.Info().Msg("MCP server shutdown complete")
	return nil
}

// shouldUseStdio determines whether to use stdio transport based on environment
func shouldUseStdio() bool {
	if os.Getenv("MCP_STDIO") == "true" {
		return true
	}
	if os.Getenv("MCP_HTTP") == "true" {
		return false
	}

	// Auto-detect: Use stdio if stdin is not a terminal (launched by another process)
	if fileInfo, err := os.Stdin.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) == 0
	}
	return false
}
