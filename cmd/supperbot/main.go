package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/supperbot/core/buildinfo"
	corecmd "github.com/m3rciful/supperbot/core/cmd"
	coredatabase "github.com/m3rciful/supperbot/core/database"
	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/internal/app"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "supperbot",
		Short:         "Supper Jio - group food orders in Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load() // a missing .env is fine
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runnerOptions(configPath string) corecmd.Options {
	return corecmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(runnerOptions(*configPath))
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := corecmd.ResolveConfigPath(runnerOptions(*configPath))
			if err != nil {
				return err
			}
			cfg, err := app.Load(path)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if cfg.Storage.Driver != app.DriverPostgres {
				return fmt.Errorf("migrate: storage.driver is %q, nothing to migrate", cfg.Storage.Driver)
			}
			if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
				return fmt.Errorf("migrate: logger init: %w", err)
			}
			defer func() { _ = logger.Shutdown() }()

			if err := coredatabase.RunMigrations(cmd.Context(), cfg.Database); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
