// Package main is the entry point for the VaaniAgent application.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vaaniagent/internal/agent"
	"vaaniagent/internal/client"
	"vaaniagent/internal/config"
	"vaaniagent/internal/credential"
	"vaaniagent/internal/dispatch"
	"vaaniagent/internal/journal"
	"vaaniagent/internal/logger"
	"vaaniagent/internal/login"
	"vaaniagent/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/VaaniAgent"

func main() {
	var (
		configPath  = flag.String("config", "conf/VaaniAgent/VaaniAgent.json", "Path to main configuration file")
		loggingPath = flag.String("logging", "conf/VaaniAgent/Logging.json", "Path to logging configuration file")
		syncOnce    = flag.Bool("sync", false, "Authenticate, sync system info once and exit")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("VaaniAgent %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// A Windows service starts in System32. An absolute config path
	// (<base>/conf/VaaniAgent/VaaniAgent.json) makes <base> the working
	// directory so relative log paths land next to the install.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(filepath.Dir(*configPath)))
		if err := os.Chdir(basePath); err != nil {
			fail(fmt.Errorf("failed to chdir to %s: %w", basePath, err))
		}
	}

	svcCheck := service.NewService(nil)
	interactive := !svcCheck.IsService()
	if !interactive {
		logger.SetServiceMode(true)
	}

	cfg, lc, err := config.LoadAll(*configPath, *loggingPath)
	if err != nil {
		fail(err)
	}

	if err := logger.Init(*lc); err != nil {
		fail(fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("config", *configPath).
		Str("logging", *loggingPath).
		Str("server", cfg.ServerURL).
		Msg("Starting VaaniAgent")

	stopWatcher := startLoggingWatcher(*loggingPath)
	defer stopWatcher()

	if *syncOnce {
		if err := syncSystemInfo(context.Background(), cfg, interactive); err != nil {
			log.Error().Err(err).Msg("System info sync failed")
			logger.Close()
			os.Exit(1)
		}
		return
	}

	svc := service.NewService(func(ctx context.Context) error {
		return run(ctx, cfg, interactive)
	})

	if err := svc.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("VaaniAgent exited with error")
		service.ReportStartupError(service.Name, err)
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		stopWatcher()
		logger.Close()
		os.Exit(1)
	}

	log.Info().Msg("VaaniAgent stopped")
}

// fail reports an error raised before the logger is usable and exits.
func fail(err error) {
	service.ReportStartupError(service.Name, err)
	service.WriteStartupErrorFile(startupErrorLogDir, err)
	fmt.Fprintf(os.Stderr, "VaaniAgent failed to start: %v\n", err)
	os.Exit(1)
}

// startLoggingWatcher hot-reloads Logging.json. The returned function stops
// the watcher and is safe to call more than once.
func startLoggingWatcher(loggingPath string) func() {
	log := logger.WithComponent("main")

	var mu sync.Mutex
	watcher, err := config.NewLoggingWatcher(loggingPath, func(newLC *logger.Config) {
		mu.Lock()
		defer mu.Unlock()

		if err := logger.Init(*newLC); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		updated := logger.WithComponent("main")
		updated.Info().Str("level", newLC.Level).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
		return func() {}
	}
	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher, hot reload disabled")
		watcher.Stop()
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := watcher.Stop(); err != nil {
				log.Error().Err(err).Msg("Error stopping logging watcher")
			}
		})
	}
}

// components holds everything built from the configuration.
type components struct {
	agent   *agent.Agent
	journal *journal.Journal
	client  *client.Client
}

func (c *components) Close() {
	log := logger.WithComponent("main")
	c.client.Close()
	if err := c.journal.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing journal")
	}
}

func setup(cfg *config.Config, interactive bool) (*components, error) {
	log := logger.WithComponent("main")

	agentID := config.GetAgentID(cfg)
	hostname := config.GetHostname()

	tokenPath, err := config.ResolveTokenPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token path: %w", err)
	}

	api, err := client.New(client.Options{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
		SOCKS:   cfg.SOCKSProxy,
	})
	if err != nil {
		return nil, err
	}
	if cfg.SOCKSProxy.Enabled() {
		log.Info().
			Str("socks_host", cfg.SOCKSProxy.Host).
			Int("socks_port", cfg.SOCKSProxy.Port).
			Msg("SOCKS proxy configured")
	}

	sink, err := journal.NewSink(cfg.Journal, agentID)
	if err != nil {
		api.Close()
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	jrnl := journal.New(sink, agentID, hostname)
	log.Info().Str("journal", cfg.Journal.Type).Msg("Journal configured")

	store := credential.NewStore(tokenPath)
	signals := []login.Signal{login.NewFileSignal(tokenPath, store)}
	if interactive {
		signals = append(signals, login.NewConsoleSignal(os.Stdin, os.Stdout))
	}
	flow := login.NewFlow(api.LoginURL(), store, login.Any(signals...))

	dispatcher := dispatch.New(jrnl)
	dispatcher.Register(dispatch.CommandStartApp, dispatch.StartApp(cfg.Commands.StartApp))
	dispatcher.Register(dispatch.CommandReadLog, dispatch.ReadLog(cfg.Commands.ReadLog))

	ag := agent.New(agent.Options{
		API:              api,
		Store:            store,
		Login:            flow,
		Dispatcher:       dispatcher,
		Journal:          jrnl,
		PollInterval:     cfg.PollInterval,
		MaxLoginAttempts: cfg.MaxLoginAttempts,
		SyncOnStart:      cfg.SyncOnStart,
	})
	dispatcher.Register(dispatch.CommandSyncSystemInfo, ag.SyncSystemInfo)

	log.Info().
		Str("agent_id", agentID).
		Str("hostname", hostname).
		Str("token_path", tokenPath).
		Strs("commands", dispatcher.Commands()).
		Msg("Agent initialized")

	return &components{agent: ag, journal: jrnl, client: api}, nil
}

func run(ctx context.Context, cfg *config.Config, interactive bool) error {
	c, err := setup(cfg, interactive)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.agent.Run(ctx)
}

func syncSystemInfo(ctx context.Context, cfg *config.Config, interactive bool) error {
	c, err := setup(cfg, interactive)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.agent.Authenticate(ctx); err != nil {
		return err
	}
	return c.agent.SyncSystemInfo(ctx)
}
