package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/catalog"
	"github.com/David-Botos/warehouse-ingress/pkg/config"
	"github.com/David-Botos/warehouse-ingress/pkg/logging"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
)

var (
	cfgFile string
	envFile string

	// Set by the root command before any sub-command runs
	cfg       *config.Config
	logger    *zap.Logger
	syncLogs  func() error
	configErr error
)

var RootCmd = &cobra.Command{
	Use:   "warehouse-ingress",
	Short: "Load CRM and ERP extracts into the bronze and silver layers",
	Long: `warehouse-ingress captures raw CSV extracts into append-only bronze
tables, conforms them (types, trimming, code dictionaries, business
rules, deduplication) and replaces the silver tables with the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}

		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		logger, syncLogs, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("Using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if syncLogs != nil {
			_ = syncLogs()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./warehouse-ingress.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	flags.String("data-dir", "", "directory holding source_crm/ and source_erp/")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("paths.data_dir", flags.Lookup("data-dir"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))

	config.SetDefaults(viper.GetViper())
}

// initConfig reads the dotenv file, the config file and the environment
func initConfig() {
	if err := config.LoadEnvFile(envFile); err != nil {
		configErr = err
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("warehouse-ingress")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			configErr = fmt.Errorf("failed to read config: %w", err)
		}
	}
}

// loadEntities returns the built-in entities with the catalog file applied
func loadEntities() ([]pipeline.EntityPipeline, error) {
	entities := catalog.Builtin(nil)
	if cfg.Paths.CatalogFile == "" {
		return entities, nil
	}

	overrides, err := catalog.LoadFile(cfg.Paths.CatalogFile)
	if err != nil {
		return nil, err
	}
	return overrides.Apply(entities)
}
