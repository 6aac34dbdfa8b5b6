package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelkehle/research-assistant/internal/clarify"
	"github.com/joelkehle/research-assistant/internal/report"
	"github.com/joelkehle/research-assistant/internal/telemetry"
	"github.com/joelkehle/research-assistant/internal/workflow"
)

var (
	runSkipClarification bool
	runInteractive       bool
	runWriteHTML         bool
	runWritePDF          bool
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run one research pipeline for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		shutdown, err := telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		orch, err := buildOrchestrator(cfg, store)
		if err != nil {
			return err
		}
		if runInteractive {
			orch.Ask = promptAnswers
		}

		ctx := cmd.Context()
		if cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
			defer cancel()
		}

		state, err := orch.Run(ctx, workflow.Request{
			Topic:             topic,
			SkipClarification: runSkipClarification,
		})
		if err != nil {
			return err
		}

		writer := report.NewArtifactWriter(cfg.ReportDir)
		mdPath, err := writer.WriteMarkdown(state.RunID, state.Report)
		if err != nil {
			return err
		}
		if runWriteHTML {
			if p, err := writer.WriteHTML(state.RunID, state.Report); err != nil {
				fmt.Fprintln(os.Stderr, "html rendition failed:", err)
			} else {
				fmt.Println("html:", p)
			}
		}
		if runWritePDF {
			if p, err := writer.WritePDF(ctx, state.RunID, state.Report); err != nil {
				fmt.Fprintln(os.Stderr, "pdf rendition failed:", err)
			} else {
				fmt.Println("pdf:", p)
			}
		}

		res := state.Project(cfg.TopN)
		fmt.Printf("run %s finished: %d sources found, %d stage errors\n",
			res.RunID, res.TotalFound, len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintln(os.Stderr, "degraded:", e)
		}
		fmt.Println("report:", mdPath)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSkipClarification, "skip-clarification", false, "never ask clarifying questions")
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "prompt for answers to clarifying questions on stdin")
	runCmd.Flags().BoolVar(&runWriteHTML, "html", false, "also write an HTML rendition of the report")
	runCmd.Flags().BoolVar(&runWritePDF, "pdf", false, "also write a PDF rendition of the report (needs Chromium)")
}

// promptAnswers collects answers on stdin. Blank answers leave the
// question unanswered; the synthesizer handles partial sets.
func promptAnswers(_ context.Context, questions []clarify.Question) (clarify.AnswerSet, error) {
	reader := bufio.NewReader(os.Stdin)
	answers := clarify.AnswerSet{}
	fmt.Println("The topic needs clarification. Press enter to skip a question.")
	for _, q := range questions {
		fmt.Printf("\n[%s/%s] %s\n", q.Category, q.Priority, q.Text)
		if q.ExampleAnswer != "" {
			fmt.Printf("  e.g. %s\n", q.ExampleAnswer)
		}
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return answers, err
		}
		if answer := strings.TrimSpace(line); answer != "" {
			answers[q.ID] = answer
		}
	}
	return answers, nil
}
