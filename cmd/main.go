package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mundotango/citygroups/config"
	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/server"
)

var (
	envFile     string
	triggeredBy string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "citygroups",
	Short: "Tango city groups service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error loading %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = config.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled compliance auditor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg, logger)
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run one compliance audit and print the stored result",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		auditor, err := server.NewAuditor(db, cfg, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := auditor.EnsureSchema(ctx); err != nil {
			return err
		}
		entry, err := auditor.Refresh(ctx, triggeredBy)
		if printErr := printJSON(cmd, entry); printErr != nil {
			return printErr
		}
		return err
	},
}

var slugCmd = &cobra.Command{
	Use:   "slug <location>",
	Short: "Show how a free-text location maps to a city group slug",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, ok := helpers.ParseLocationString(args[0])
		if !ok {
			return fmt.Errorf("could not determine a city from %q", args[0])
		}
		return printJSON(cmd, map[string]string{
			"city":    loc.City,
			"country": loc.Country,
			"name":    helpers.CityGroupName(loc.City, loc.Country),
			"slug":    helpers.GenerateCityGroupSlug(loc.City, loc.Country),
		})
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the environment file")
	auditCmd.Flags().StringVar(&triggeredBy, "triggered-by", "cli", "recorded as the audit's trigger")

	rootCmd.AddCommand(serveCmd, auditCmd, slugCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
