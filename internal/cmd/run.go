package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tunneltap/internal/adapter/datacache"
	"tunneltap/internal/adapter/downloader"
	"tunneltap/internal/adapter/extractor"
	"tunneltap/internal/adapter/logger"
	"tunneltap/internal/adapter/platform"
	"tunneltap/internal/adapter/release"
	"tunneltap/internal/adapter/toolcache"
	"tunneltap/internal/adapter/tunnel"
	"tunneltap/internal/app"
	"tunneltap/internal/config"
)

const defaultConfigFile = ".tunneltap.yaml"

func newRunCmd() *cobra.Command {
	var (
		name        string
		connectMins int
		sessionMins int
		keepAlive   int
		noWatch     bool
		actor       string
		dataDir     string
		cacheRoot   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision the tunnel CLI and run a supervised session",
		Long: `Run resolves the latest stable tunnel CLI version, downloads and caches the
binary for this platform if needed, then launches a tunnel session.

The session fails if no client connects within --connection-timeout, and is
terminated once --session-timeout elapses after the first connection. With
--no-watch, no output watching happens and --keep-alive alone bounds the
session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = defaultConfigFile
			}
			file, err := config.Load(path)
			if err != nil {
				return err
			}
			cfg := config.Resolve(file)

			flags := cmd.Flags()
			if flags.Changed("name") {
				cfg.TunnelName = name
			}
			if flags.Changed("connection-timeout") {
				cfg.ConnectTimeout = time.Duration(connectMins) * time.Minute
			}
			if flags.Changed("session-timeout") {
				cfg.SessionTimeout = time.Duration(sessionMins) * time.Minute
			}
			if flags.Changed("keep-alive") {
				cfg.KeepAlive = time.Duration(keepAlive) * time.Second
			}
			if flags.Changed("actor") {
				cfg.Actor = actor
			}
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("cache-root") {
				cfg.CacheRoot = cacheRoot
			}
			cfg.Watch = !noWatch
			cfg.Verbose = verbose

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTunnel(cfg)
		},
	}

	cmd.Flags().StringVar(&name, "name", config.DefaultTunnelName, "tunnel name (max 20 characters)")
	cmd.Flags().IntVar(&connectMins, "connection-timeout", config.DefaultConnectMinutes, "minutes to wait for the first client connection")
	cmd.Flags().IntVar(&sessionMins, "session-timeout", config.DefaultSessionMinutes, "maximum session length in minutes once connected")
	cmd.Flags().IntVar(&keepAlive, "keep-alive", config.DefaultKeepAliveSecs, "total runtime in seconds with --no-watch")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "skip connection watching; bound the session with --keep-alive only")
	cmd.Flags().StringVar(&actor, "actor", "", "invoking identity keying the persisted data directory")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "tunnel CLI data directory (default <home>/.tunneltap/data)")
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "tool/data cache root (default <home>/.tunneltap)")

	return cmd
}

// runTunnel wires the adapters and hands off to the application service.
func runTunnel(cfg config.Config) error {
	log := logger.New(cfg.Verbose)

	plat, err := platform.New()
	if err != nil {
		return err
	}
	target, err := plat.Resolve()
	if err != nil {
		return err
	}

	cacheRoot := cfg.CacheRoot
	if cacheRoot == "" {
		cacheRoot = plat.CacheRoot()
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = plat.DataDir()
	}

	svc := app.NewService(
		release.NewResolver(log),
		downloader.NewHTTP(log),
		extractor.New(log),
		toolcache.New(filepath.Join(cacheRoot, "tools"), log),
		datacache.New(filepath.Join(cacheRoot, "data"), log),
		app.NewSupervisor(tunnel.NewRunner(log), log),
		log,
	)

	return svc.Run(app.Config{
		Target:   target,
		ActorKey: app.ActorKey(cfg.Actor),
		Supervise: app.SuperviseConfig{
			DataDir:        dataDir,
			TunnelName:     cfg.TunnelName,
			Verbose:        cfg.Verbose,
			Watch:          cfg.Watch,
			ConnectTimeout: cfg.ConnectTimeout,
			SessionTimeout: cfg.SessionTimeout,
			KeepAlive:      cfg.KeepAlive,
		},
	})
}
