package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/enrich"
	"github.com/dgallion1/notepress/internal/formatter"
)

const cannedAnalysis = `## Executive Summary

The document lays out the migration plan for the billing service. The plan is feasible within the quarter.

## Key Findings

- The legacy schema has 14 tables.
- Read traffic peaks at 2k requests per second.

## Recommendations

- Freeze schema changes during cutover.
`

type fakeAnalyzer struct {
	text string
	err  error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakePublisher struct {
	calls  int
	titles []string
	counts []int
	err    error
}

func (f *fakePublisher) PublishPage(ctx context.Context, parentPageID, title string, bs []blocks.Block) (string, error) {
	f.calls++
	f.titles = append(f.titles, title)
	f.counts = append(f.counts, blocks.Count(bs))
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("page-%d", f.calls), nil
}

func newTestWorker(a Analyzer, p Publisher) (*Worker, *DedupIndex) {
	dedup := NewDedupIndex()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := enrich.NewLLMStats(time.Hour)
	w := NewWorker(a, p, stats, dedup, log, "parent-page", formatter.CompactPolicy(), formatter.LegacyPolicy())
	return w, dedup
}

func newTestJob(filename, content string) *Job {
	job := &Job{
		ID:          NewID(),
		DocID:       NewID(),
		Status:      StatusQueued,
		Filename:    filename,
		ContentType: "report",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	job.SetFileData([]byte(content))
	return job
}

func TestWorker_ProcessPublishesDocument(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	job := newTestJob("plan.txt", "The billing service migration plan.\n\nDetails follow.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %q (errors: %v)", snap.Status, snap.Errors)
	}
	if snap.PageID != "page-1" {
		t.Errorf("expected page id page-1, got %q", snap.PageID)
	}
	if snap.BlocksPublished == 0 {
		t.Error("expected published block count recorded")
	}
	if snap.Report == nil {
		t.Fatal("expected allocation report on job")
	}
	if snap.QualityScore < 0.4 {
		t.Errorf("expected passing quality score, got %f", snap.QualityScore)
	}
	if pub.calls != 1 {
		t.Errorf("expected 1 publish call, got %d", pub.calls)
	}
	if pub.titles[0] != "plan" {
		t.Errorf("expected title derived from filename, got %q", pub.titles[0])
	}
}

func TestWorker_StatusPollDuringProcessing(t *testing.T) {
	// A status handler can call Snapshot at any point while the worker
	// runs; every field the worker touches mid-flight (title, content
	// hash) must go through the locked setters. Run with -race.
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	job := newTestJob("plan.txt", "The billing service migration plan.\n\nDetails follow.")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				job.Snapshot()
			}
		}
	}()

	w.Process(context.Background(), job)
	close(stop)
	<-done

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %q (errors: %v)", snap.Status, snap.Errors)
	}
	if snap.Title != "plan" {
		t.Errorf("expected title set during processing, got %q", snap.Title)
	}
}

func TestWorker_ProcessSkipsDuplicateContent(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	first := newTestJob("a.txt", "Identical body text.")
	w.Process(context.Background(), first)
	if first.Snapshot().Status != StatusCompleted {
		t.Fatalf("first job should complete, got %q", first.Snapshot().Status)
	}

	second := newTestJob("b.txt", "Identical body text.")
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %q", snap.Status)
	}
	if snap.PageID != "page-1" {
		t.Errorf("expected existing page id, got %q", snap.PageID)
	}
	if pub.calls != 1 {
		t.Errorf("expected no second publish, got %d calls", pub.calls)
	}
}

func TestWorker_ProcessFailsOnUnsupportedFormat(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	job := newTestJob("binary.exe", "not parseable")
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failed, got %q", job.Snapshot().Status)
	}
	if pub.calls != 0 {
		t.Errorf("expected no publish for failed parse, got %d", pub.calls)
	}
}

func TestWorker_ProcessFailsOnEmptyDocument(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	job := newTestJob("empty.txt", "   \n\n   ")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if len(snap.Errors) == 0 || snap.Errors[0] != "no extractable content" {
		t.Errorf("expected no-content error, got %v", snap.Errors)
	}
}

func TestWorker_ProcessFailsOnAnalysisError(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(&fakeAnalyzer{err: errors.New("model refused")}, pub)

	job := newTestJob("doc.txt", "Some document body.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if snap.Phase != "analyzing" {
		t.Errorf("expected failure in analyzing phase, got %q", snap.Phase)
	}
	if pub.calls != 0 {
		t.Errorf("expected no publish after analysis failure, got %d", pub.calls)
	}
}

func TestWorker_ProcessFailsOnPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("workspace unreachable")}
	w, dedup := newTestWorker(&fakeAnalyzer{text: cannedAnalysis}, pub)

	job := newTestJob("doc.txt", "Some document body.")
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failed, got %q", job.Snapshot().Status)
	}
	// Failed publishes must not poison the dedup index.
	if _, ok := dedup.Lookup(job.ContentHash); ok {
		t.Error("expected failed publish to stay out of dedup index")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&enrich.RetryableError{StatusCode: 529}) {
		t.Error("expected enrich retryable error to be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("expected plain error to be non-retryable")
	}
	wrapped := fmt.Errorf("analyze: %w", &enrich.RetryableError{StatusCode: 500})
	if !IsRetryable(wrapped) {
		t.Error("expected wrapped retryable error to be retryable")
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap+jitter", attempt, d)
		}
	}
}
