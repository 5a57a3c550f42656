package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gochat/internal/config"
	"github.com/Tyrowin/gochat/internal/credentials"
	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/metrics"
	"github.com/Tyrowin/gochat/internal/server"
)

var (
	portFlag        int
	credentialsFlag string
	logLevelFlag    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat server",
	Long: `Start the chat server in the foreground.

The credential file is read once at startup; the server refuses to start if it
cannot be read. SIGINT or SIGTERM stops accepting connections, closes every
session and waits up to shutdown_timeout for them to finish.

Examples:
  # Start with defaults (port 12345, users.txt)
  gochat start

  # Start with a config file and a different port
  gochat start --config /etc/gochat/config.yaml --port 4000

  # Start with environment variable overrides
  GOCHAT_LOGGING_LEVEL=DEBUG gochat start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "TCP port for the chat listener (overrides chat.port)")
	startCmd.Flags().StringVar(&credentialsFlag, "credentials", "", "credential file (overrides chat.credentials_file)")
	startCmd.Flags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides logging.level)")
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Chat.Port = portFlag
	}
	if flags.Changed("credentials") {
		cfg.Chat.CredentialsFile = credentialsFlag
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.ToUpper(logLevelFlag)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flag value: %w", err)
	}
	return nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("GoChat starting", "version", Version, "commit", Commit)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	store, stats, err := credentials.Load(cfg.Chat.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	logger.Info("Credentials loaded", "file", cfg.Chat.CredentialsFile, "users", store.Len())
	if len(stats.Duplicates) > 0 {
		logger.Warn("Duplicate usernames in credential file; last entry wins", "users", stats.Duplicates)
	}
	if len(stats.Malformed) > 0 {
		logger.Warn("Ignored credential lines without a colon", "lines", stats.Malformed)
	}

	var m *metrics.Chat
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if !cfg.HTTP.Enabled {
			logger.Warn("Metrics are enabled but the HTTP server is disabled; /metrics is not exposed")
		}
	}

	chat := server.New(server.OptionsFromConfig(cfg), store, m)

	ln, err := net.Listen("tcp", cfg.Chat.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Chat.ListenAddress(), err)
	}

	chatDone := make(chan error, 1)
	go func() {
		chatDone <- chat.Serve(ln)
	}()

	var httpServer *http.Server
	httpDone := make(chan error, 1)
	if cfg.HTTP.Enabled {
		httpServer = server.CreateServer(cfg.HTTP.Address, server.SetupRoutes(chat, m))
		go func() {
			httpDone <- server.StartServer(httpServer)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown", "signal", sig.String())
	case err := <-chatDone:
		chatDone <- err
		runErr = fmt.Errorf("chat listener failed: %w", err)
	case err := <-httpDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	if httpServer != nil {
		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil && runErr == nil {
			runErr = err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := chat.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("chat server shutdown: %w", err)
	}
	if err := <-chatDone; err != nil && !errors.Is(err, server.ErrServerClosed) && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		logger.Error("Server stopped with error", "error", runErr)
		return runErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}
