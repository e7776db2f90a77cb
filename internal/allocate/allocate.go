package allocate

import (
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/segment"
)

// Config is the explicit allocation policy. Callers pass it per
// invocation; nothing here is read from ambient state.
type Config struct {
	// BlockCap is the hard ceiling on emitted block objects per call.
	// Zero or negative means unbounded (the legacy variant).
	BlockCap int
	// MaxFragmentLen caps fragment text length; defaults to the
	// product's per-text-object limit.
	MaxFragmentLen int
	// MaxRunLen caps individual styled runs; never above MaxFragmentLen.
	MaxRunLen int
	// AnchorsLast places required anchors after the content instead of
	// before it.
	AnchorsLast bool
	// GateThreshold is the quality score below which content is
	// withheld and replaced with a warning callout. Compared on the
	// same scale the caller supplies the score in.
	GateThreshold float64
}

// Report describes one allocation outcome. Budget exhaustion is a
// normal documented path, not an error: the caller inspects the report
// to decide whether to log a warning.
type Report struct {
	TotalBlocks     int      `json:"total_blocks"`
	BudgetExceeded  bool     `json:"budget_exceeded"`
	QualityGated    bool     `json:"quality_gated"`
	DroppedSections []string `json:"dropped_sections"`
	AnchorsPresent  bool     `json:"anchors_present"`
}

// Allocate selects, truncates, or drops sections to fit the block cap,
// always keeping the required anchors. quality is optional; when
// supplied and below the gate threshold, content is replaced by a
// single warning callout.
//
// The returned block count never exceeds the cap. Nested children
// (table rows, toggle items) count toward it, since the downstream API
// counts every block object in an update payload.
func Allocate(sections []segment.Section, anchors []blocks.Block, quality *float64, cfg Config) ([]blocks.Block, Report) {
	cfg = withDefaults(cfg)

	report := Report{AnchorsPresent: true}
	anchorCost := blocks.Count(anchors)

	budget := math.MaxInt / 2
	if cfg.BlockCap > 0 {
		budget = cfg.BlockCap - anchorCost
		if budget < 0 {
			// Anchors alone overflow the cap. They are emitted anyway:
			// anchor presence outranks the budget by contract.
			budget = 0
			report.BudgetExceeded = true
		}
	}

	if quality != nil && *quality < cfg.GateThreshold {
		return allocateGated(sections, anchors, *quality, budget, cfg, report)
	}

	// Render every section at full fidelity, then decide inclusion in
	// priority order.
	candidates := make([][]blocks.Block, len(sections))
	for i, sec := range sections {
		candidates[i] = renderSection(sec, cfg.MaxFragmentLen, cfg.MaxRunLen)
	}

	order := make([]int, len(sections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sections[order[a]].Priority > sections[order[b]].Priority
	})

	included := make([][]blocks.Block, len(sections))
	dropped := make([]bool, len(sections))
	remaining := budget

	for _, idx := range order {
		cand := candidates[idx]
		if len(cand) == 0 {
			continue
		}
		cost := blocks.Count(cand)
		switch {
		case cost <= remaining:
			included[idx] = cand
			remaining -= cost
		case remaining >= sections[idx].MinBlocks:
			trimmed := truncateBlocks(cand, remaining)
			if len(trimmed) == 0 {
				dropped[idx] = true
				continue
			}
			included[idx] = trimmed
			// Only one section gets a truncated slot; everything after
			// it in priority order is dropped.
			remaining = 0
			report.BudgetExceeded = true
		default:
			dropped[idx] = true
		}
	}

	// Presentation keeps the original document order; the priority sort
	// only decided inclusion.
	var content []blocks.Block
	for i := range sections {
		content = append(content, included[i]...)
		if dropped[i] {
			report.DroppedSections = append(report.DroppedSections, sections[i].ID)
			report.BudgetExceeded = true
		}
	}

	out := placeAnchors(content, anchors, cfg.AnchorsLast)
	report.TotalBlocks = blocks.Count(out)
	return out, report
}

// allocateGated emits only the anchors plus a single warning callout.
// This is the documented quality-gate short-circuit, not an error path.
func allocateGated(sections []segment.Section, anchors []blocks.Block, score float64, budget int, cfg Config, report Report) ([]blocks.Block, Report) {
	report.QualityGated = true
	for _, sec := range sections {
		report.DroppedSections = append(report.DroppedSections, sec.ID)
	}

	var content []blocks.Block
	if budget >= 1 {
		content = []blocks.Block{{
			Type: blocks.Callout,
			Runs: []blocks.StyledRun{blocks.Plain(fmt.Sprintf(
				"Analysis quality score %.2f is below the publishing threshold %.2f; content withheld.",
				score, cfg.GateThreshold,
			))},
		}}
	}

	out := placeAnchors(content, anchors, cfg.AnchorsLast)
	report.TotalBlocks = blocks.Count(out)
	return out, report
}

// truncateBlocks keeps a prefix of cand costing at most budget block
// objects, descending into container children (table rows, toggle
// items) when the cut lands inside one. Containers left empty by the
// cut are discarded rather than emitted hollow.
func truncateBlocks(cand []blocks.Block, budget int) []blocks.Block {
	var out []blocks.Block
	remaining := budget
	for _, b := range cand {
		if remaining == 0 {
			break
		}
		need := 1 + blocks.Count(b.Children)
		if need <= remaining {
			out = append(out, b)
			remaining -= need
			continue
		}
		if len(b.Children) > 0 && remaining >= 2 {
			trimmed := b
			trimmed.Children = truncateBlocks(b.Children, remaining-1)
			if len(trimmed.Children) > 0 {
				out = append(out, trimmed)
			}
		}
		break
	}
	return out
}

func placeAnchors(content, anchors []blocks.Block, last bool) []blocks.Block {
	if last {
		return append(append([]blocks.Block{}, content...), anchors...)
	}
	return append(append([]blocks.Block{}, anchors...), content...)
}

func withDefaults(cfg Config) Config {
	if cfg.MaxFragmentLen <= 0 {
		cfg.MaxFragmentLen = blocks.MaxTextLength
	}
	if cfg.MaxRunLen <= 0 || cfg.MaxRunLen > cfg.MaxFragmentLen {
		cfg.MaxRunLen = cfg.MaxFragmentLen
	}
	return cfg
}
