package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/enrich"
	"github.com/dgallion1/notepress/internal/formatter"
	"github.com/dgallion1/notepress/internal/parser"
)

// Analyzer produces an analysis of document text.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Publisher writes a block tree to the destination workspace.
type Publisher interface {
	PublishPage(ctx context.Context, parentPageID, title string, bs []blocks.Block) (string, error)
}

// Worker processes a single document job.
type Worker struct {
	analyzer Analyzer
	pub      Publisher
	stats    *enrich.LLMStats
	dedup    *DedupIndex
	log      *slog.Logger

	parentPageID string
	policy       formatter.Policy
	legacyPolicy formatter.Policy
	pdfFallback  bool
}

func NewWorker(analyzer Analyzer, pub Publisher, stats *enrich.LLMStats, dedup *DedupIndex, log *slog.Logger, parentPageID string, compact, legacy formatter.Policy) *Worker {
	return &Worker{
		analyzer:     analyzer,
		pub:          pub,
		stats:        stats,
		dedup:        dedup,
		log:          log,
		parentPageID: parentPageID,
		policy:       compact,
		legacyPolicy: legacy,
	}
}

// SetPDFFallback enables shelling out to pdftotext when the Go PDF
// library fails.
func (w *Worker) SetPDFFallback(enabled bool) {
	w.pdfFallback = enabled
}

// Process runs the full pipeline for a job: parse, dedup, analyze,
// format, publish.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse.
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallback
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := job.EnsureTitle(doc.Title)
	if doc.Text == "" {
		log.Warn("no extractable content")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 1.5: Dedup check on the parsed text.
	hash := ContentHashHex([]byte(doc.Text))
	job.SetContentHash(hash)
	if pageID, ok := w.dedup.Lookup(hash); ok {
		log.Info("duplicate document, skipping", "existing_page_id", pageID)
		job.SetResult(pageID, 0, nil)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Analyze with retry on transient failures.
	job.SetStatus(StatusAnalyzing, "analyzing")
	prompt := enrich.BuildAnalysisPrompt(title, job.ContentType, doc.Text)
	analysis, err := w.analyzeWithRetry(ctx, log, prompt)
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(fmt.Sprintf("analyze: %s", err))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	assessment := enrich.AssessAnalysis(analysis)
	job.SetQuality(assessment.Score)
	if len(assessment.Issues) > 0 {
		log.Warn("analysis quality issues", "score", assessment.Score, "issues", assessment.Issues)
	}

	// Phase 3: Format into blocks.
	job.SetStatus(StatusFormatting, "formatting")
	pol := w.legacyPolicy
	if job.Compact {
		pol = w.policy
	}
	score := assessment.Score
	result := formatter.Format(formatter.Input{
		Text:         analysis,
		ContentType:  job.ContentType,
		Title:        title,
		QualityScore: &score,
		SourceURL:    job.SourceURL,
	}, pol)
	log.Info("formatted analysis",
		"blocks", result.Report.TotalBlocks,
		"dropped", len(result.Report.DroppedSections),
		"gated", result.Report.QualityGated)

	// Phase 4: Publish.
	job.SetStatus(StatusPublishing, "publishing")
	pageID, err := w.publishWithRetry(ctx, log, title, result.Blocks)
	if err != nil {
		if pageID != "" {
			// The page exists but an overflow batch failed.
			log.Error("publish incomplete", "page_id", pageID, "error", err)
			job.AddError(fmt.Sprintf("publish: %s", err))
			job.SetResult(pageID, 0, &result.Report)
			job.SetStatus(StatusPartial, "publishing")
			return
		}
		log.Error("publish failed", "error", err)
		job.AddError(fmt.Sprintf("publish: %s", err))
		job.SetStatus(StatusFailed, "publishing")
		return
	}

	w.dedup.Record(hash, pageID)
	job.SetResult(pageID, result.Report.TotalBlocks, &result.Report)
	job.SetStatus(StatusCompleted, "done")
	log.Info("published page", "page_id", pageID, "blocks", result.Report.TotalBlocks)
}

func (w *Worker) analyzeWithRetry(ctx context.Context, log *slog.Logger, prompt string) (string, error) {
	var lastErr error
	for attempt := range MaxRetries {
		start := time.Now()
		analysis, err := w.analyzer.Analyze(ctx, prompt)
		if err == nil {
			w.stats.Record(time.Since(start).Milliseconds())
			return analysis, nil
		}
		w.stats.RecordFailure()
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		log.Warn("retryable analysis error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (w *Worker) publishWithRetry(ctx context.Context, log *slog.Logger, title string, bs []blocks.Block) (string, error) {
	var lastErr error
	var pageID string
	for attempt := range MaxRetries {
		id, err := w.pub.PublishPage(ctx, w.parentPageID, title, bs)
		if id != "" {
			pageID = id
		}
		if err == nil {
			return id, nil
		}
		lastErr = err
		if pageID != "" || !IsRetryable(err) {
			// Never retry after page creation: reissuing the create
			// would duplicate the page.
			break
		}
		log.Warn("retryable publish error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return pageID, ctx.Err()
		}
	}
	return pageID, lastErr
}
