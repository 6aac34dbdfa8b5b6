package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ArtifactWriter persists a rendered report as Markdown, and optionally as
// HTML and PDF renditions, under a single directory.
type ArtifactWriter struct {
	Dir        string
	ChromePath string
}

func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{Dir: dir, ChromePath: detectChromePath()}
}

// WriteMarkdown writes the report text and returns the file path.
func (w *ArtifactWriter) WriteMarkdown(runID string, rep Report) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := filepath.Join(w.Dir, runID+".md")
	if err := os.WriteFile(path, []byte(rep.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// WriteHTML converts the Markdown to a standalone HTML document.
func (w *ArtifactWriter) WriteHTML(runID string, rep Report) (string, error) {
	doc, err := buildHTML(rep)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := filepath.Join(w.Dir, runID+".html")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("writing html: %w", err)
	}
	return path, nil
}

// WritePDF renders the HTML rendition to PDF through headless Chromium.
// It fails cleanly when no browser is installed; the Markdown artifact is
// the canonical one.
func (w *ArtifactWriter) WritePDF(ctx context.Context, runID string, rep Report) (string, error) {
	doc, err := buildHTML(rep)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if w.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(w.ChromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(doc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return "", fmt.Errorf("pdf render: %w", err)
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := filepath.Join(w.Dir, runID+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("writing pdf: %w", err)
	}
	return path, nil
}

func buildHTML(rep Report) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(rep.Markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Research Report</title>" +
		"<style>" +
		"body{font-family:Georgia,serif;max-width:800px;margin:0 auto;padding:1rem;color:#1c1917;line-height:1.5;}" +
		"h1,h2{font-family:Helvetica,Arial,sans-serif;}" +
		"h2{border-bottom:1px solid #d6d3d1;padding-bottom:0.2rem;}" +
		"a{color:#1d4ed8;}" +
		"@media print{@page{size:auto;margin:12mm;}}" +
		"</style></head><body>" +
		content.String() +
		"</body></html>", nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
