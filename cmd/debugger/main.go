package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/tb0hdan/remote-debugger-mcp/pkg/security"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/server"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/tools"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/tools/sshexec"
)

const (
	ServerName      = "remote-debugger-mcp"
	ServiceName     = "Remote Command Execution MCP Connector"
	ShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

func main() {
	var (
		debug        bool
		bindAddr     string
		printVersion bool
	)
	flag.BoolVar(&debug, "debug", false, "debug mode")
	flag.StringVar(&bindAddr, "bind", "localhost:8899", "bind address (host:port)")
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.Parse()

	version := strings.TrimSpace(Version)
	if printVersion {
		fmt.Printf("%s Version: %s", ServiceName, version)
		os.Exit(0)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger.Debug().Msg("debug mode enabled")
	}

	impl := &mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}

	srv := server.NewServer(impl)
	toolList := []tools.Tool{
		sshexec.New(logger),
	}
	for _, tool := range toolList {
		tool.Register(srv)
		if s, ok := tool.(interface{ SecurityInfo() security.Info }); ok {
			info := s.SecurityInfo()
			logger.Info().
				Str("mode", info.Mode).
				Bool("case_sensitive", info.CaseSensitive).
				Int("blacklist_count", info.BlacklistCount).
				Int("whitelist_count", info.WhitelistCount).
				Msg("command safety gate configured")
		}
	}

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return &srv.Server
	}, nil)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Any("/mcp", echo.WrapHandler(mcpHandler))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service": ServiceName,
			"version": version,
			"endpoints": map[string]string{
				"mcp":     "/mcp",
				"healthz": "/healthz",
			},
		})
	})

	logger.Info().Msgf("%s starting on address %s", ServiceName, bindAddr)
	logger.Info().Msgf("MCP endpoint available at: http://%s/mcp", bindAddr)

	go func() {
		if err := e.Start(bindAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("%s failed to start: %v", ServerName, err)
		}
	}()

	<-signalCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Msgf("%s http shutdown error: %v", ServiceName, err)
	}
	for _, tool := range toolList {
		if c, ok := tool.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				logger.Error().Msgf("%s tool shutdown error: %v", ServiceName, err)
			}
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Msgf("%s shutdown error: %v", ServiceName, err)
	} else {
		logger.Info().Msgf("%s shutdown complete", ServiceName)
	}
}
