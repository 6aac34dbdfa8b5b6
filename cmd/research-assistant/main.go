// Command research-assistant runs automated literature research: it
// classifies a topic, optionally asks clarifying questions, plans and
// executes searches, ranks the findings, and writes a report.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joelkehle/research-assistant/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Automated literature research pipeline",
	Long: `research-assistant turns a research topic into a literature review:
ambiguity analysis, optional clarifying questions, a search plan executed
against arXiv and the web, relevance ranking, gap analysis, and a final
Markdown report.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./research-assistant.yaml)")
	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("RESEARCH")
	viper.AutomaticEnv()

	// Credentials keep their conventional names alongside the prefixed ones.
	_ = viper.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY", "RESEARCH_ANTHROPIC_API_KEY")
	_ = viper.BindEnv("tavily_api_key", "TAVILY_API_KEY", "RESEARCH_TAVILY_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Config{
		AnthropicAPIKey:    viper.GetString("anthropic_api_key"),
		Model:              viper.GetString("model"),
		TavilyAPIKey:       viper.GetString("tavily_api_key"),
		ArxivBaseURL:       viper.GetString("arxiv_base_url"),
		TavilyBaseURL:      viper.GetString("tavily_base_url"),
		UserAgent:          viper.GetString("user_agent"),
		MaxResultsPerQuery: viper.GetInt("max_results_per_query"),
		RankBatchSize:      viper.GetInt("rank_batch_size"),
		GapTopK:            viper.GetInt("gap_top_k"),
		TopN:               viper.GetInt("top_n"),
		DBPath:             viper.GetString("db_path"),
		ListenAddr:         viper.GetString("listen_addr"),
		ReportDir:          viper.GetString("report_dir"),
		OTLPEndpoint:       viper.GetString("otlp_endpoint"),
		RunTimeout:         viper.GetDuration("run_timeout"),
	}
	cfg.ApplyDefaults()
	if cfg.ReportDir == "" {
		cfg.ReportDir = "reports"
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
