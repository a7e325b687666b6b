package cmd

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/premai-io/mii-serve/internal/config"
	"github.com/premai-io/mii-serve/internal/launcher"
	"github.com/premai-io/mii-serve/internal/logging"
	"github.com/premai-io/mii-serve/internal/mii"
)

// cfg is loaded in PersistentPreRunE before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mii-serve --uri <model>",
	Short: "Serve a model over REST with DeepSpeed-MII",
	Long: "mii-serve starts a DeepSpeed-MII deployment of the given model with its REST API on 0.0.0.0:8080 " +
		"and keeps it running until the process is stopped with SIGINT or SIGTERM.",
	Args:              cobra.NoArgs,
	PersistentPreRunE: initConfig,
	RunE:              runServe,
}

// newServer builds the serve entry point for a launch. Tests replace it.
var newServer = func(cfg *config.Config, launchID string) mii.Server {
	opts := mii.DefaultOptions()
	opts.Python = cfg.Python
	opts.ScriptDir = cfg.DataDir
	opts.GRPCPort = cfg.GRPCPort
	opts.StartupTimeout = cfg.StartupTimeout
	opts.StopTimeout = cfg.StopTimeout
	opts.Env = []string{"MII_LAUNCH_ID=" + launchID}
	return mii.NewProcessServer(opts)
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().String("uri", "", "Model URI e.g. microsoft/phi-1_5")
	rootCmd.MarkFlagRequired("uri")

	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func initConfig(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(file)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		loaded.LogLevel = level
	}
	logging.InitLogger(loaded.LogLevel, loaded.LogFormat)
	cfg = loaded
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	uri, _ := cmd.Flags().GetString("uri")
	if uri == "" {
		return launcher.ErrMissingModelURI
	}
	// Past this point errors are runtime failures, not usage mistakes.
	cmd.SilenceUsage = true

	if err := config.EnsureDirs(cfg); err != nil {
		return err
	}

	launchID := uuid.NewString()
	l := launcher.New(cfg, newServer(cfg, launchID), launchID)
	l.SetVersion(version)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return l.Run(ctx, uri)
}
