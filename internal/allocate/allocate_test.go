package allocate

import (
	"strings"
	"testing"

	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/segment"
)

func testAnchors() []blocks.Block {
	return []blocks.Block{
		{Type: blocks.Callout, Runs: []blocks.StyledRun{blocks.Plain("Status: published")}},
		{Type: blocks.Paragraph, Runs: []blocks.StyledRun{{Text: "source", LinkURL: "https://example.com/doc"}}},
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestAllocate_BudgetRespectedWithPrioritySelection(t *testing.T) {
	// Cap 4 with two anchors: the summary beats the risks list.
	input := "# Executive Summary\n\nRevenue grew 20%.\n\n# Risks\n\n- Risk A\n- Risk B\n- Risk C"
	sections := segment.Segment(input)

	out, report := Allocate(sections, testAnchors(), nil, Config{BlockCap: 4})

	if got := blocks.Count(out); got > 4 {
		t.Fatalf("block cap violated: %d > 4", got)
	}
	if !report.AnchorsPresent {
		t.Errorf("expected anchors present")
	}
	if report.TotalBlocks != blocks.Count(out) {
		t.Errorf("report count %d does not match output %d", report.TotalBlocks, blocks.Count(out))
	}

	// Both anchors, then the summary heading + paragraph.
	if len(out) != 4 {
		t.Fatalf("expected 4 top-level blocks, got %d", len(out))
	}
	if out[0].Type != blocks.Callout {
		t.Errorf("expected status anchor first, got %q", out[0].Type)
	}
	if out[2].Type != blocks.Heading1 || blocks.JoinRuns(out[2].Runs) != "Executive Summary" {
		t.Errorf("expected summary heading, got %q %q", out[2].Type, blocks.JoinRuns(out[2].Runs))
	}
	if out[3].Type != blocks.Paragraph {
		t.Errorf("expected summary paragraph, got %q", out[3].Type)
	}

	// Risks (heading + 3 items) cannot fit in 0 remaining slots.
	if len(report.DroppedSections) == 0 {
		t.Errorf("expected risks section dropped, got none")
	}
	if !report.BudgetExceeded {
		t.Errorf("expected budgetExceeded when a section is dropped")
	}
}

func TestAllocate_EverythingFitsInLooseBudget(t *testing.T) {
	input := "# Executive Summary\n\nRevenue grew 20%.\n\n# Risks\n\n- Risk A\n- Risk B"
	sections := segment.Segment(input)

	out, report := Allocate(sections, testAnchors(), nil, Config{BlockCap: 20})

	if len(report.DroppedSections) != 0 {
		t.Errorf("expected no drops, got %v", report.DroppedSections)
	}
	if report.BudgetExceeded {
		t.Errorf("expected budget not exceeded")
	}
	// 2 anchors + summary (2) + risks heading + 2 items = 7.
	if got := blocks.Count(out); got != 7 {
		t.Errorf("expected 7 blocks, got %d", got)
	}
}

func TestAllocate_UnboundedLegacyVariant(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("# Section\n\nBody text for the section.\n\n")
	}
	sections := segment.Segment(sb.String())

	out, report := Allocate(sections, testAnchors(), nil, Config{BlockCap: 0})

	if len(report.DroppedSections) != 0 {
		t.Errorf("expected no drops with unbounded cap, got %d", len(report.DroppedSections))
	}
	if report.BudgetExceeded {
		t.Errorf("expected no budget pressure with unbounded cap")
	}
	// 30 sections x (heading + paragraph) + 2 anchors.
	if got := blocks.Count(out); got != 62 {
		t.Errorf("expected 62 blocks, got %d", got)
	}
}

func TestAllocate_PresentationKeepsDocumentOrder(t *testing.T) {
	// Low-priority section first in the document, high-priority second.
	// Both fit; output must keep document order.
	input := "# Appendix\n\nDetails here.\n\n# Executive Summary\n\nThe short version."
	sections := segment.Segment(input)

	out, _ := Allocate(sections, nil, nil, Config{BlockCap: 10})

	if len(out) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(out))
	}
	if blocks.JoinRuns(out[0].Runs) != "Appendix" {
		t.Errorf("expected appendix first in presentation order, got %q", blocks.JoinRuns(out[0].Runs))
	}
	if blocks.JoinRuns(out[2].Runs) != "Executive Summary" {
		t.Errorf("expected summary second, got %q", blocks.JoinRuns(out[2].Runs))
	}
}

func TestAllocate_PriorityDecidesInclusionNotOrder(t *testing.T) {
	// Appendix comes first in the document but loses the budget race to
	// the summary.
	input := "# Appendix\n\nDetails here.\n\n# Executive Summary\n\nThe short version."
	sections := segment.Segment(input)

	out, report := Allocate(sections, nil, nil, Config{BlockCap: 2})

	if len(out) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out))
	}
	if blocks.JoinRuns(out[0].Runs) != "Executive Summary" {
		t.Errorf("expected the summary to win the budget, got %q", blocks.JoinRuns(out[0].Runs))
	}
	if len(report.DroppedSections) != 1 || !strings.Contains(report.DroppedSections[0], "appendix") {
		t.Errorf("expected appendix dropped, got %v", report.DroppedSections)
	}
}

func TestAllocate_TruncationTakesFirstPermissibleBlocks(t *testing.T) {
	input := "# Risks\n\n- one\n- two\n- three\n- four\n- five"
	sections := segment.Segment(input)

	out, report := Allocate(sections, nil, nil, Config{BlockCap: 3})

	if got := blocks.Count(out); got != 3 {
		t.Fatalf("expected exactly 3 blocks, got %d", got)
	}
	if out[0].Type != blocks.Heading1 {
		t.Errorf("expected heading kept, got %q", out[0].Type)
	}
	if out[1].Type != blocks.BulletedListItem || out[2].Type != blocks.BulletedListItem {
		t.Errorf("expected first two items kept")
	}
	if blocks.JoinRuns(out[1].Runs) != "one" || blocks.JoinRuns(out[2].Runs) != "two" {
		t.Errorf("expected items in order, got %q, %q", blocks.JoinRuns(out[1].Runs), blocks.JoinRuns(out[2].Runs))
	}
	if !report.BudgetExceeded {
		t.Errorf("expected budgetExceeded after truncation")
	}
}

func TestAllocate_TruncationTrimsTableRows(t *testing.T) {
	input := "# Metrics\n\n| metric | value |\n| --- | --- |\n| revenue | 12M |\n| margin | 40% |\n| churn | 2% |"
	sections := segment.Segment(input)

	out, _ := Allocate(sections, nil, nil, Config{BlockCap: 4})

	// heading (1) + table (1) + as many rows as fit (2).
	if got := blocks.Count(out); got != 4 {
		t.Fatalf("expected 4 blocks, got %d", got)
	}
	if len(out) != 2 || out[1].Type != blocks.Table {
		t.Fatalf("expected heading + table, got %d blocks", len(out))
	}
	if len(out[1].Children) != 2 {
		t.Errorf("expected 2 surviving rows, got %d", len(out[1].Children))
	}
}

func TestAllocate_AnchorsAlwaysPresent(t *testing.T) {
	sections := segment.Segment("# A\n\nbody\n\n# B\n\nbody")
	for _, cap := range []int{2, 3, 4, 8, 0} {
		out, report := Allocate(sections, testAnchors(), nil, Config{BlockCap: cap})
		if !report.AnchorsPresent {
			t.Errorf("cap %d: anchors missing from report", cap)
		}
		if len(out) < 2 {
			t.Fatalf("cap %d: anchors missing from output", cap)
		}
		found := 0
		for _, b := range out {
			if blocks.JoinRuns(b.Runs) == "Status: published" || blocks.JoinRuns(b.Runs) == "source" {
				found++
			}
		}
		if found != 2 {
			t.Errorf("cap %d: expected both anchors in output, found %d", cap, found)
		}
		if cap > 0 && blocks.Count(out) > cap {
			t.Errorf("cap %d: violated with %d blocks", cap, blocks.Count(out))
		}
	}
}

func TestAllocate_EmptyInputEmitsOnlyAnchors(t *testing.T) {
	out, report := Allocate(nil, testAnchors(), nil, Config{BlockCap: 15})
	if len(out) != 2 {
		t.Fatalf("expected only the 2 anchors, got %d blocks", len(out))
	}
	if report.BudgetExceeded || len(report.DroppedSections) != 0 {
		t.Errorf("expected clean report for empty input, got %+v", report)
	}
}

func TestAllocate_QualityGateShortCircuit(t *testing.T) {
	sections := segment.Segment("# Summary\n\nGood content here.")
	out, report := Allocate(sections, testAnchors(), floatPtr(0.2), Config{BlockCap: 15, GateThreshold: 0.4})

	if !report.QualityGated {
		t.Errorf("expected quality-gated report")
	}
	if len(out) != 3 {
		t.Fatalf("expected anchors + warning callout, got %d blocks", len(out))
	}
	warning := out[2]
	if warning.Type != blocks.Callout {
		t.Errorf("expected warning callout, got %q", warning.Type)
	}
	if !strings.Contains(blocks.JoinRuns(warning.Runs), "below the publishing threshold") {
		t.Errorf("unexpected warning text: %q", blocks.JoinRuns(warning.Runs))
	}
	if len(report.DroppedSections) != 1 {
		t.Errorf("expected the withheld section recorded, got %v", report.DroppedSections)
	}
	if report.BudgetExceeded {
		t.Errorf("quality gating is not budget exhaustion")
	}
}

func TestAllocate_QualityAboveGatePassesThrough(t *testing.T) {
	sections := segment.Segment("# Summary\n\nGood content here.")
	out, report := Allocate(sections, testAnchors(), floatPtr(0.9), Config{BlockCap: 15, GateThreshold: 0.4})

	if report.QualityGated {
		t.Errorf("expected no gating at score 0.9")
	}
	if len(out) != 4 {
		t.Errorf("expected anchors + heading + paragraph, got %d", len(out))
	}
}

func TestAllocate_AnchorsLastPlacement(t *testing.T) {
	sections := segment.Segment("# Summary\n\nBody.")
	out, _ := Allocate(sections, testAnchors(), nil, Config{BlockCap: 10, AnchorsLast: true})

	if len(out) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(out))
	}
	if out[0].Type != blocks.Heading1 {
		t.Errorf("expected content first, got %q", out[0].Type)
	}
	if blocks.JoinRuns(out[2].Runs) != "Status: published" {
		t.Errorf("expected anchors appended last")
	}
}

func TestAllocate_ListOverflowFoldsIntoToggle(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Items\n\n")
	for i := 0; i < 12; i++ {
		sb.WriteString("- item\n")
	}
	sections := segment.Segment(sb.String())

	out, _ := Allocate(sections, nil, nil, Config{BlockCap: 0})

	// heading + 7 visible items + toggle holding the remaining 5.
	if len(out) != 9 {
		t.Fatalf("expected 9 top-level blocks, got %d", len(out))
	}
	toggle := out[8]
	if toggle.Type != blocks.Toggle {
		t.Fatalf("expected trailing toggle, got %q", toggle.Type)
	}
	if len(toggle.Children) != 5 {
		t.Errorf("expected 5 overflow items in toggle, got %d", len(toggle.Children))
	}
}

func TestAllocate_KeyValueRendersAsCallout(t *testing.T) {
	sections := segment.Segment("# Meta\n\nauthor: model\nconfidence: high")
	out, _ := Allocate(sections, nil, nil, Config{BlockCap: 10})

	if len(out) != 2 {
		t.Fatalf("expected heading + callout, got %d", len(out))
	}
	if out[1].Type != blocks.Callout {
		t.Errorf("expected callout, got %q", out[1].Type)
	}
	text := blocks.JoinRuns(out[1].Runs)
	if !strings.Contains(text, "author: ") || !strings.Contains(text, "high") {
		t.Errorf("unexpected callout text %q", text)
	}
}

func TestAllocate_RunLengthsNeverExceedCap(t *testing.T) {
	long := strings.Repeat("verylongword", 600) // 7200 chars, no spaces
	sections := segment.Segment("# Big\n\n" + long)

	out, _ := Allocate(sections, nil, nil, Config{BlockCap: 0})

	var walk func([]blocks.Block)
	walk = func(bs []blocks.Block) {
		for _, b := range bs {
			for _, r := range b.Runs {
				if r.Len() > blocks.MaxTextLength {
					t.Errorf("run of %d chars exceeds product cap", r.Len())
				}
			}
			walk(b.Children)
		}
	}
	walk(out)
}
