package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"cv-rank-agent/internal/crawler"
	"cv-rank-agent/internal/docload"
	"cv-rank-agent/internal/extract"
	"cv-rank-agent/internal/gemini"
	"cv-rank-agent/internal/logger"
	"cv-rank-agent/internal/match"
	"cv-rank-agent/internal/report"
	"cv-rank-agent/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultRunTimeout = 10 * time.Minute
)

var errAborted = errors.New("aborted by user")

var runCmd = &cobra.Command{
	Use:   "run <cv-file> <jobs-file>",
	Short: "Rank the CV against the job URLs listed in the jobs file",
	Long: "Rank a CV (PDF, DOCX or plain text) against job posting URLs. " +
		"The jobs file is JSON or YAML with a single \"jobs\" key holding a list of URLs.",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before spending LLM scoring calls")
	runCmd.Flags().StringP("excel", "o", "", "export the ranked results to the given .xlsx file")
	runCmd.Flags().Duration("run-timeout", defaultRunTimeout, "overall deadline for the whole run")
}

// run is the main command for the cli.
func run(cmd *cobra.Command, cvPath, jobsPath string) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the cv-rank-agent", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	maxJobs := config.Ranking.MaxJobs
	if maxJobs <= 0 {
		maxJobs = match.DefaultMaxJobs
	}

	urls, err := loadJobURLs(jobsPath, maxJobs)
	if err != nil {
		log.Fatal("loading job URLs", zap.Error(err))
	}

	log.Info("inputs resolved", zap.String("cv", cvPath), zap.Int("jobs", len(urls)), zap.String("jobs_file", jobsPath))

	apiKey, err := secrets.Load("gemini api key", config.Gemini.APIKey, config.Gemini.APIKeyFile)
	if err != nil {
		log.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'gemini.api-key-file' key in the configuration file"),
		)
	}

	timeout, err := cmd.Flags().GetDuration("run-timeout")
	if err != nil || timeout <= 0 {
		timeout = defaultRunTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:            apiKey,
		Model:             config.Gemini.Model,
		EmbeddingModel:    config.Gemini.EmbeddingModel,
		Temperature:       config.Gemini.Temperature,
		MaxRetries:        config.Gemini.MaxRetries,
		RequestsPerMinute: config.Gemini.RequestsPerMinute,
		MaxLogLength:      config.Gemini.MaxLogLength,
	}, log)
	if err != nil {
		log.Fatal("creating gemini client", zap.Error(err))
	}

	structurer := extract.NewStructurer(client, log)

	pipeline, err := match.New(match.Config{
		LLMOnlyThreshold: config.Ranking.LLMOnlyThreshold,
		LLMTopN:          config.Ranking.LLMTopN,
		MaxJobs:          config.Ranking.MaxJobs,
		Concurrency:      config.Ranking.Concurrency,
	}, match.Deps{
		Loader: docload.New(log),
		Crawler: crawler.New(crawler.Config{
			UserAgent:         config.Crawler.UserAgent,
			Timeout:           config.Crawler.Timeout,
			RequestsPerSecond: config.Crawler.RequestsPerSecond,
		}, log),
		CV:       structurer,
		Jobs:     structurer,
		Embedder: client,
		Scorer:   extract.NewScorer(client, log),
		Logger:   log,
		Confirm:  confirmScoring(cmd, client.Model()),
	})
	if err != nil {
		log.Fatal("building pipeline", zap.Error(err))
	}

	result, err := pipeline.Run(ctx, match.Input{CVPath: cvPath, JobURLs: urls})
	if err != nil {
		if errors.Is(err, errAborted) {
			log.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
		log.Fatal("pipeline failed", zap.Error(err))
	}

	report.Render(os.Stdout, result)

	if excelPath, _ := cmd.Flags().GetString("excel"); excelPath != "" {
		if err := report.ExportExcel(result, excelPath); err != nil {
			log.Fatal("exporting excel report", zap.Error(err))
		}
		log.Info("excel report written", zap.String("path", excelPath))
	}
}

// confirmScoring asks before the scoring stage spends one LLM call per
// job. The --yes flag skips the prompt for unattended runs.
func confirmScoring(cmd *cobra.Command, model string) func(jobs int) error {
	return func(jobs int) error {
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			return nil
		}

		prompt := promptui.Select{
			Label: fmt.Sprintf("About to score %d job(s) with %s. Proceed?", jobs, model),
			Items: []string{PromptYes, PromptNo},
		}

		_, answer, err := prompt.Run()
		if err != nil {
			return err
		}
		if answer != PromptYes {
			return errAborted
		}
		return nil
	}
}

func fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}
