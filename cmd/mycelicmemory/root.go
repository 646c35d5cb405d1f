package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MycelicMemory/mycelicmemory/internal/logging"
	"github.com/MycelicMemory/mycelicmemory/internal/mcp"
	"github.com/MycelicMemory/mycelicmemory/internal/storage"
	"github.com/MycelicMemory/mycelicmemory/internal/usecase"
	"github.com/MycelicMemory/mycelicmemory/pkg/config"
)

var (
	// Version is set during build
	Version = mcp.ServerVersion

	// Global flags
	cfgFile  string
	logLevel string
	mcpMode  bool
	quiet    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mycelicmemory",
	Short: "Persistent knowledge-memory MCP server for AI coding assistants",
	Long: `MycelicMemory stores typed notes (tech, project-tech, domain, workflow,
decision) in a local SQLite database with full-text search, and serves
them to AI agents over the Model Context Protocol.

Run with --mcp to serve the remember and recall tools on stdio:

  mycelicmemory --mcp
  mycelicmemory --mcp --config ./config.toml
  mycelicmemory --mcp --log_level debug

Configuration is read from ./config.toml or ~/.kiro/config.toml; missing
files fall back to built-in defaults.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		if mcpMode {
			runMCPServer()
		} else {
			_ = cmd.Help()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&mcpMode, "mcp", false, "run as MCP server (JSON-RPC over stdin/stdout)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress the startup banner")
}

// runMCPServer starts the MCP server mode. Any startup failure exits
// non-zero before serving.
func runMCPServer() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if logLevel == "" {
		logLevel = cfg.Logging.Level
	}
	logging.Init(logging.Config{
		Level:  logLevel,
		Format: cfg.Logging.Format,
	})

	engine, err := storage.Open(cfg.Memory.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	repo := storage.NewSQLiteRepository(engine)
	svc := usecase.NewService(repo, cfg.ProjectConfig())
	server := mcp.NewServer(svc, cfg)

	if quiet {
		logging.Debug(server.Banner())
	} else {
		fmt.Fprintln(os.Stderr, server.Banner())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	if err := server.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
