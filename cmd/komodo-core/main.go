package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/config"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/exec"
	"github.com/komodo-io/komodo-core/internal/journal"
	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/komodo-io/komodo-core/internal/pullcache"
	"github.com/komodo-io/komodo-core/internal/registryauth"
	"github.com/komodo-io/komodo-core/internal/server"
	"github.com/komodo-io/komodo-core/internal/store"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "komodo-core",
	Short:   "Komodo Core - build and deployment control plane",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("komodo-core version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(deployCmd)
}

// loadAndInit reads the flag-named config file, applies environment
// overrides, and initializes the global logger from it (spec §2
// [AMBIENT]). Every subcommand calls this first.
func loadAndInit(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(logging.Config{Level: cfg.LoggingLevel(), JSONOutput: cfg.LogJSON})
	return cfg, nil
}

// buildEngine wires every process-wide singleton spec §5 names (store,
// action-state registry, pull cache, registry-auth resolver, cloud
// builders) into one exec.Engine, the same "construct before first
// request" discipline the teacher's manager.NewManager uses for its own
// singletons. No AlertSink is attached, so alerts go to the log.
func buildEngine(cfg config.Config) (*exec.Engine, *store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "komodo.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	box, err := store.NewSecretBox(cfg.SecretPassphrase)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("init secret box: %w", err)
	}
	st = st.WithSecretBox(box)

	broker := journal.NewBroker()
	j := journal.New(st, broker)
	as := actionstate.NewRegistry()
	pc := pullcache.New()
	ra := registryauth.NewResolver(cfg.Accounts())

	engine := exec.New(st, j, as, pc, ra)
	engine.ImagePrefix = exec.ImagePrefixConfig{
		Domain:       cfg.ImagePrefixDomain,
		Organization: cfg.ImagePrefixOrganization,
	}

	var ec2Builder exec.CloudBuilder
	if cfg.EnableEC2Builder {
		b, err := exec.NewEC2Builder(context.Background())
		if err != nil {
			logging.Logger.Warn().Err(err).Msg("EC2 builder requested but could not be initialized, continuing without it")
		} else {
			ec2Builder = b
		}
	}
	var hetznerBuilder exec.CloudBuilder
	if cfg.EnableHetznerBuilder {
		hetznerBuilder = exec.NewHetznerBuilder(cfg.HetznerToken)
	}
	engine.WithCloudBuilders(ec2Builder, hetznerBuilder)

	return engine, st, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Core HTTP surface (webhooks, health, metrics) and serve operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndInit(cmd)
		if err != nil {
			return err
		}

		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := &server.Server{Store: st, Engine: engine, WebhookSecret: cfg.WebhookSecret}
		httpServer := &http.Server{
			Addr:              cfg.ListenAddress,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Logger.Info().Str("address", cfg.ListenAddress).Msg("komodo-core listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logging.Logger.Info().Msg("shutting down")
		case err := <-errCh:
			logging.Logger.Error().Err(err).Msg("server error")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync NAME",
	Short: "Run a resource sync once and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndInit(cmd)
		if err != nil {
			return err
		}
		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sync, err := st.GetResourceSyncByName(args[0])
		if err != nil {
			return fmt.Errorf("resolve resource sync %q: %w", args[0], err)
		}
		u, err := engine.RunSync(sync.Id, "cli")
		if err != nil {
			return err
		}
		return printUpdate(u)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build NAME",
	Short: "Run a build once and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndInit(cmd)
		if err != nil {
			return err
		}
		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := st.GetBuildByName(args[0])
		if err != nil {
			return fmt.Errorf("resolve build %q: %w", args[0], err)
		}
		u, err := engine.RunBuild(b.Id, "cli")
		if err != nil {
			return err
		}
		return printUpdate(u)
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy NAME",
	Short: "Deploy a Deployment or Stack once and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndInit(cmd)
		if err != nil {
			return err
		}
		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if d, err := st.GetDeploymentByName(args[0]); err == nil {
			u, err := engine.Deploy(d.Id, "cli")
			if err != nil {
				return err
			}
			return printUpdate(u)
		}
		s, err := st.GetStackByName(args[0])
		if err != nil {
			return fmt.Errorf("resolve deployment or stack %q: %w", args[0], err)
		}
		u, err := engine.DeployStack(s.Id, "cli")
		if err != nil {
			return err
		}
		return printUpdate(u)
	},
}

// printUpdate prints an Update's log stages to stdout and returns a non-nil
// error if the operation failed, so the process exits non-zero.
func printUpdate(u *domain.Update) error {
	for _, l := range u.Logs {
		if l.Stdout != "" {
			fmt.Printf("[%s] %s\n", l.Stage, l.Stdout)
		}
		if l.Stderr != "" {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", l.Stage, l.Stderr)
		}
	}
	if !u.Success {
		return fmt.Errorf("%s %s failed", u.Operation, u.Target.Id)
	}
	fmt.Printf("%s %s succeeded\n", u.Operation, u.Target.Id)
	return nil
}
