package main

import (
	"net/http"
	"time"

	"github.com/joelkehle/research-assistant/internal/clarify"
	"github.com/joelkehle/research-assistant/internal/config"
	"github.com/joelkehle/research-assistant/internal/gaps"
	"github.com/joelkehle/research-assistant/internal/llm"
	"github.com/joelkehle/research-assistant/internal/plan"
	"github.com/joelkehle/research-assistant/internal/rank"
	"github.com/joelkehle/research-assistant/internal/report"
	"github.com/joelkehle/research-assistant/internal/runstore"
	"github.com/joelkehle/research-assistant/internal/search"
	"github.com/joelkehle/research-assistant/internal/workflow"
)

// buildOrchestrator assembles the pipeline from config. The store is
// passed in so callers control its lifetime.
func buildOrchestrator(cfg config.Config, store workflow.Store) (*workflow.Orchestrator, error) {
	caller, err := llm.NewAnthropicCaller(cfg.AnthropicAPIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	exec := llm.NewExecutor(caller)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	searcher := search.NewSearcher(
		&search.ArxivBackend{
			BaseURL:   cfg.ArxivBaseURL,
			Client:    httpClient,
			UserAgent: cfg.UserAgent,
		},
		&search.WebBackend{
			APIKey:        cfg.TavilyAPIKey,
			TavilyBaseURL: cfg.TavilyBaseURL,
			DDGBaseURL:    "https://api.duckduckgo.com",
			Client:        httpClient,
			UserAgent:     cfg.UserAgent,
		},
	)

	return &workflow.Orchestrator{
		Clarifier: clarify.New(exec),
		Planner:   plan.New(exec, cfg.MaxResultsPerQuery),
		Searcher:  searcher,
		Ranker:    rank.New(exec, cfg.RankBatchSize),
		Gaps:      gaps.New(exec, cfg.GapTopK),
		Reporter:  report.New(exec),
		Store:     store,
		TopN:      cfg.TopN,
	}, nil
}

func openStore(cfg config.Config) (*runstore.Store, error) {
	return runstore.Open(cfg.DBPath)
}
