package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/tabwarden/internal/config"
	"github.com/lazypower/tabwarden/internal/engine"
	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/server"
	"github.com/lazypower/tabwarden/internal/store"
	"github.com/spf13/cobra"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tabwarden daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "config file (default ~/.tabwarden/config.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := serveConfigPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	// ANTHROPIC_API_KEY is the conventional name; map it into the viper env
	// namespace before loading.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && os.Getenv("TABWARDEN_LLM_ANTHROPIC_KEY") == "" {
		os.Setenv("TABWARDEN_LLM_ANTHROPIC_KEY", key)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Watch()

	settings := cfg.Get()

	dbPath := settings.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	bridge := host.NewBridge()

	eng := engine.New(db, bridge, bridge, bridge)
	eng.Sampler = bridge
	eng.Settings = cfg.Get
	eng.StartSweepTimer()
	defer eng.Stop()

	srv := server.New(db, eng, bridge, cfg, VersionString())
	addr := settings.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "tabwarden serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", settings.LLM.Provider, settings.LLM.Model)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
