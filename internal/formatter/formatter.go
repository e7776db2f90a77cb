package formatter

import (
	"fmt"

	"github.com/dgallion1/notepress/internal/allocate"
	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/segment"
)

// Input is the contract consumed from the enrichment pipeline: the
// model's analysis text plus the metadata that feeds the anchors.
type Input struct {
	Text        string
	ContentType string
	Title       string
	// QualityScore is optional. Values above 1 are assumed to be on a
	// 0-10 scale and normalized.
	QualityScore *float64
	// SourceURL must appear verbatim in the source-reference anchor.
	SourceURL string
}

// Policy is the explicit per-call-site configuration replacing the
// source system's environment-driven formatter switching.
type Policy struct {
	BlockCap       int     `yaml:"block_cap"`
	AnchorsLast    bool    `yaml:"anchors_last"`
	GateThreshold  float64 `yaml:"gate_threshold"`
	MaxFragmentLen int     `yaml:"max_fragment_len"`
	MaxRunLen      int     `yaml:"max_run_len"`
}

// CompactPolicy is the tightly-budgeted variant used for incremental
// page updates.
func CompactPolicy() Policy {
	return Policy{
		BlockCap:       15,
		GateThreshold:  0.4,
		MaxFragmentLen: blocks.MaxTextLength,
		MaxRunLen:      blocks.MaxTextLength,
	}
}

// LegacyPolicy is the unconstrained variant used for full-page
// publishes, bounded only by the product's structural limits.
func LegacyPolicy() Policy {
	return Policy{
		BlockCap:       0,
		GateThreshold:  0.4,
		MaxFragmentLen: blocks.MaxTextLength,
		MaxRunLen:      blocks.MaxTextLength,
	}
}

// Result pairs the final block list with its allocation report. The
// caller inspects the report to decide whether to log a compliance
// warning; nothing in here is an error.
type Result struct {
	Blocks []blocks.Block
	Report allocate.Report
}

// Format runs the full engine: segmentation, chunking, tokenization and
// budget allocation. It is a pure function of its inputs and safe to
// call from concurrent workers.
func Format(in Input, pol Policy) Result {
	sections := segment.Segment(in.Text)
	anchors := buildAnchors(in, pol)
	quality := normalizeQuality(in.QualityScore)

	out, report := allocate.Allocate(sections, anchors, quality, allocate.Config{
		BlockCap:       pol.BlockCap,
		MaxFragmentLen: pol.MaxFragmentLen,
		MaxRunLen:      pol.MaxRunLen,
		AnchorsLast:    pol.AnchorsLast,
		GateThreshold:  pol.GateThreshold,
	})
	return Result{Blocks: out, Report: report}
}

// buildAnchors constructs the required anchor blocks: a one-block
// status header and a one-block source-reference link. When anchors
// trail the content, a divider separates them from it; the divider is
// part of the anchor group so the allocator reserves budget for it.
func buildAnchors(in Input, pol Policy) []blocks.Block {
	status := statusLine(in)
	header := blocks.Block{
		Type: blocks.Callout,
		Runs: []blocks.StyledRun{blocks.Plain(status)},
	}
	source := blocks.Block{
		Type: blocks.Paragraph,
		Runs: []blocks.StyledRun{
			blocks.Plain("Source: "),
			{Text: in.SourceURL, LinkURL: in.SourceURL},
		},
	}
	if in.SourceURL == "" {
		source.Runs = []blocks.StyledRun{blocks.Plain("Source: not provided")}
	}

	anchors := []blocks.Block{header, source}
	if pol.AnchorsLast {
		anchors = append([]blocks.Block{{Type: blocks.Divider}}, anchors...)
	}
	return anchors
}

func statusLine(in Input) string {
	label := in.ContentType
	if label == "" {
		label = "document"
	}
	if q := normalizeQuality(in.QualityScore); q != nil {
		return fmt.Sprintf("Automated %s analysis · quality %.2f", label, *q)
	}
	return fmt.Sprintf("Automated %s analysis", label)
}

// normalizeQuality maps caller-defined 0-10 scores onto the 0-1 scale
// the gate threshold uses.
func normalizeQuality(q *float64) *float64 {
	if q == nil {
		return nil
	}
	v := *q
	if v > 1 {
		v = v / 10
	}
	if v < 0 {
		v = 0
	}
	return &v
}
