package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-rank-agent"
)

type Config struct {
	Gemini  *GeminiConfig  `mapstructure:"gemini"`
	Ranking *RankingConfig `mapstructure:"ranking"`
	Crawler *CrawlerConfig `mapstructure:"crawler"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	EmbeddingModel    string  `mapstructure:"embedding-model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxRetries        int     `mapstructure:"max-retries"`
	RequestsPerMinute int     `mapstructure:"requests-per-minute"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type RankingConfig struct {
	LLMOnlyThreshold int `mapstructure:"llm-only-threshold"`
	LLMTopN          int `mapstructure:"llm-top-n"`
	MaxJobs          int `mapstructure:"max-jobs"`
	Concurrency      int `mapstructure:"concurrency"`
}

type CrawlerConfig struct {
	UserAgent         string        `mapstructure:"user-agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-rank-agent ranks a CV against job posting URLs using Gemini and cosine similarity",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// An explicitly requested config must parse.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// The default config is optional; everything has a built-in default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Ranking == nil {
		config.Ranking = &RankingConfig{}
	}
	if config.Crawler == nil {
		config.Crawler = &CrawlerConfig{}
	}

	return config, nil
}
