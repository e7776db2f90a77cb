package allocate

import (
	"regexp"
	"strings"

	"github.com/dgallion1/notepress/internal/blocks"
	"github.com/dgallion1/notepress/internal/chunk"
	"github.com/dgallion1/notepress/internal/inline"
	"github.com/dgallion1/notepress/internal/segment"
)

var (
	bulletMarker = regexp.MustCompile(`^\s*[-*+•]\s+`)
	numberMarker = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	tableDivider = regexp.MustCompile(`^[\s|:-]+$`)
)

// renderSection produces the full-fidelity block sequence for one
// section: an optional heading block followed by the body rendered
// according to its kind. The allocator's budget walk counts and trims
// this sequence; it never grows afterwards.
func renderSection(sec segment.Section, maxFragmentLen, maxRunLen int) []blocks.Block {
	var out []blocks.Block
	if sec.Title != "" {
		out = append(out, blocks.Block{
			Type: headingType(sec.HeadingLevel),
			Runs: inline.Tokenize(sec.Title, maxRunLen),
		})
	}

	switch sec.Kind {
	case segment.KindHeading:
		// Title only.
	case segment.KindList:
		out = append(out, renderList(sec, maxFragmentLen, maxRunLen)...)
	case segment.KindTable:
		out = append(out, renderTable(sec, maxRunLen)...)
	case segment.KindKeyValue:
		out = append(out, renderKeyValue(sec, maxRunLen))
	default:
		out = append(out, renderParagraphs(sec, maxFragmentLen, maxRunLen)...)
	}
	return out
}

func headingType(level int) blocks.Type {
	switch level {
	case 1:
		return blocks.Heading1
	case 3:
		return blocks.Heading3
	default:
		return blocks.Heading2
	}
}

func renderParagraphs(sec segment.Section, maxFragmentLen, maxRunLen int) []blocks.Block {
	body := strings.Join(sec.BodyLines, "\n")
	var out []blocks.Block
	for _, frag := range chunk.Split(body, maxFragmentLen) {
		out = append(out, blocks.Block{
			Type: blocks.Paragraph,
			Runs: inline.Tokenize(frag.Text, maxRunLen),
		})
	}
	return out
}

// renderList emits one item block per list line. When the section's
// item cap is exceeded, the overflow items are preserved as children of
// a trailing toggle rather than dropped, keeping the block count at the
// cap without losing content.
func renderList(sec segment.Section, maxFragmentLen, maxRunLen int) []blocks.Block {
	itemType := blocks.BulletedListItem
	var items []blocks.Block
	for _, line := range sec.BodyLines {
		text, numbered, ok := stripItemMarker(line)
		if !ok {
			continue
		}
		if numbered && len(items) == 0 {
			itemType = blocks.NumberedListItem
		}
		for _, frag := range chunk.Split(text, maxFragmentLen) {
			items = append(items, blocks.Block{
				Type: itemType,
				Runs: inline.Tokenize(frag.Text, maxRunLen),
			})
		}
	}

	limit := sec.MaxBlocks
	if limit <= 0 || len(items) <= limit {
		return items
	}

	visible := items[:limit-1]
	overflow := items[limit-1:]
	if len(overflow) > blocks.MaxChildren {
		overflow = overflow[:blocks.MaxChildren]
	}
	toggle := blocks.Block{
		Type:     blocks.Toggle,
		Runs:     []blocks.StyledRun{blocks.Plain("More items")},
		Children: overflow,
	}
	return append(append([]blocks.Block{}, visible...), toggle)
}

func stripItemMarker(line string) (text string, numbered bool, ok bool) {
	if m := bulletMarker.FindString(line); m != "" {
		return strings.TrimSpace(line[len(m):]), false, true
	}
	if m := numberMarker.FindString(line); m != "" {
		return strings.TrimSpace(line[len(m):]), true, true
	}
	return "", false, false
}

// renderTable builds a single table block whose rows are children.
// Pipe-delimited lines become cell rows; colon key/value lines become
// two-column rows. Rows beyond the section cap are dropped, matching
// the segmenter's maxBlocks contract.
func renderTable(sec segment.Section, maxRunLen int) []blocks.Block {
	var rows []blocks.Block
	for _, line := range sec.BodyLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || tableDivider.MatchString(trimmed) {
			continue
		}
		var cells [][]blocks.StyledRun
		if strings.Contains(trimmed, "|") {
			for _, c := range splitPipeRow(trimmed) {
				cells = append(cells, inline.Tokenize(c, maxRunLen))
			}
		} else if k, v, found := strings.Cut(trimmed, ":"); found {
			cells = [][]blocks.StyledRun{
				inline.Tokenize(strings.TrimSpace(k), maxRunLen),
				inline.Tokenize(strings.TrimSpace(v), maxRunLen),
			}
		} else {
			cells = [][]blocks.StyledRun{inline.Tokenize(trimmed, maxRunLen)}
		}
		rows = append(rows, blocks.Block{Type: blocks.TableRow, Cells: cells})
		if sec.MaxBlocks > 0 && len(rows) == sec.MaxBlocks {
			break
		}
	}
	if len(rows) == 0 {
		return nil
	}
	normalizeRowWidths(rows)
	return []blocks.Block{{Type: blocks.Table, Children: rows}}
}

func splitPipeRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// normalizeRowWidths pads short rows so every table_row has the same
// cell count, which the downstream API requires.
func normalizeRowWidths(rows []blocks.Block) {
	width := 0
	for _, r := range rows {
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}
	for i := range rows {
		for len(rows[i].Cells) < width {
			rows[i].Cells = append(rows[i].Cells, []blocks.StyledRun{})
		}
	}
}

// renderKeyValue folds the key/value lines into one callout block with
// bold keys, one line per pair.
func renderKeyValue(sec segment.Section, maxRunLen int) blocks.Block {
	var runs []blocks.StyledRun
	for i, line := range sec.BodyLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if i > 0 && len(runs) > 0 {
			runs = append(runs, blocks.Plain("\n"))
		}
		k, v, found := strings.Cut(trimmed, ":")
		if !found {
			runs = append(runs, inline.Tokenize(trimmed, maxRunLen)...)
			continue
		}
		runs = append(runs, blocks.StyledRun{Text: strings.TrimSpace(k) + ": ", Bold: true})
		runs = append(runs, inline.Tokenize(strings.TrimSpace(v), maxRunLen)...)
	}
	return blocks.Block{Type: blocks.Callout, Runs: runs}
}
