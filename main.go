package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollisb/patter/internal/config"
	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/emit"
	"github.com/hollisb/patter/internal/hub"
	"github.com/hollisb/patter/internal/llm"
	"github.com/hollisb/patter/internal/logger"
	"github.com/hollisb/patter/internal/policy"
	"github.com/hollisb/patter/internal/service"
	"github.com/hollisb/patter/internal/store"
	"github.com/hollisb/patter/internal/tools"
	transport "github.com/hollisb/patter/internal/transport/http"
)

const version = "0.1.0"

var log = logger.Named("main")

var (
	configPath  string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:     "patter",
	Short:   "Streaming tool-calling agent orchestrator",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Run one exchange and stream its events to stdout as JSON lines",
	Long: `Run a single exchange against the model and print every outbound event
as one JSON document per line, flushed as it is produced.

Pass --session to continue a saved session; the updated snapshot is written
back to the same file when the exchange succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tool manifests",
	RunE:  runTools,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	chatCmd.Flags().StringVar(&sessionPath, "session", "", "path to a session snapshot to continue and update")
	rootCmd.AddCommand(serveCmd, chatCmd, toolsCmd)
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}

// buildRegistry opens the store, seeds the corpus, and registers the
// built-in tools. The caller owns closing the returned store.
func buildRegistry(ctx context.Context, cfg *config.Config) (store.Store, *tools.Registry, error) {
	st, err := store.NewSQLiteStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	docs := store.DefaultCorpus()
	if cfg.CorpusPath != "" {
		docs, err = store.LoadCorpusFile(cfg.CorpusPath)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	if err := st.ReplaceCorpus(ctx, docs); err != nil {
		st.Close()
		return nil, nil, err
	}

	registry := tools.NewRegistry()
	runner := tools.NewCodeRunner(cfg.RunnerCommand, cfg.RunnerTimeout)
	if err := tools.RegisterBuiltins(registry, st, runner); err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, registry, nil
}

// buildService wires the exchange service, validating credentials up front.
func buildService(ctx context.Context, cfg *config.Config, registry *tools.Registry) (*service.Service, error) {
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := policy.NewEngineFromFile(ctx, cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	return service.New(llmClient, registry, engine, cfg), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := buildService(ctx, cfg, registry)
	if err != nil {
		return err
	}

	h := hub.NewHub()
	go h.Run(ctx)

	server := transport.NewServer(svc, registry, h)

	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()
	log.Infof("listening on %s (model %s)", cfg.HTTPAddr, cfg.Model)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("graceful shutdown failed: %v", err)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := buildService(ctx, cfg, registry)
	if err != nil {
		return err
	}

	var sess *domain.Session
	if sessionPath != "" {
		sess, err = loadSession(sessionPath)
		if err != nil {
			return err
		}
	}

	updated, err := svc.RunExchange(ctx, sess, args[0], emit.NewLineWriter(os.Stdout))
	if err != nil {
		return err
	}

	if sessionPath != "" {
		if err := saveSession(sessionPath, updated); err != nil {
			return err
		}
	}
	return nil
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, registry, err := buildRegistry(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.Manifests())
}

// loadSession reads a session snapshot. A missing file starts fresh.
func loadSession(path string) (*domain.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &sess, nil
}

// saveSession writes the updated snapshot back to disk.
func saveSession(path string, sess *domain.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
