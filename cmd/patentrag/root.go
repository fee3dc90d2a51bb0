package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"patentrag/internal/config"
	"patentrag/internal/logging"
)

var version = "dev"

var (
	cfgFile       string
	envFile       string
	cfgPathUsed   string
	currentConfig *config.AppConfig
	logger        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "patentrag",
	Short:         "Research assistant over internal patent documents",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyOverrides(cfg)
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		currentConfig = cfg

		logger, err = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format, viper.GetBool("no_color"))
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("PATENTRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.config/patentrag/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("corpus", "", "directory of patent documents")
	flags.String("persist-dir", "", "directory of the persisted index")
	flags.Int("max-turns", 0, "maximum reasoning turns per query")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("no_color", flags.Lookup("no-color"))
	_ = viper.BindPFlag("index.corpus_dir", flags.Lookup("corpus"))
	_ = viper.BindPFlag("index.persist_dir", flags.Lookup("persist-dir"))
	_ = viper.BindPFlag("agent.max_turns", flags.Lookup("max-turns"))

	rootCmd.AddCommand(serveCmd, indexCmd, askCmd, chatCmd, configCmd)
}

func loadConfig() (*config.AppConfig, error) {
	if cfgFile == "" {
		cfg, path, err := config.LoadDefault()
		cfgPathUsed = path
		return cfg, err
	}
	cfgPathUsed = cfgFile
	return config.Load(cfgFile)
}

// applyOverrides layers PATENTRAG_* environment variables and flags over the file.
func applyOverrides(cfg *config.AppConfig) {
	str := func(key string, dst *string) {
		if viper.IsSet(key) && viper.GetString(key) != "" {
			*dst = viper.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if viper.IsSet(key) && viper.GetInt(key) != 0 {
			*dst = viper.GetInt(key)
		}
	}
	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
	str("index.corpus_dir", &cfg.Index.CorpusDir)
	str("index.persist_dir", &cfg.Index.PersistDir)
	str("index.format", &cfg.Index.Format)
	str("server.addr", &cfg.Server.Addr)
	str("llm.model", &cfg.LLM.Model)
	str("llm.base_url", &cfg.LLM.BaseURL)
	str("embedder.type", &cfg.Embedder.Type)
	str("vector_store.type", &cfg.VectorStore.Type)
	str("tracing.endpoint", &cfg.Tracing.Endpoint)
	num("agent.max_turns", &cfg.Agent.MaxTurns)
	num("agent.top_k", &cfg.Agent.TopK)
	num("server.request_timeout_secs", &cfg.Server.RequestTimeoutSecs)
}
