package blocks

import "unicode/utf8"

// Hard limits imposed by the Notion API. Exceeding either is a
// programming error in the formatter, not a runtime condition.
const (
	MaxTextLength = 2000 // characters per rich-text object
	MaxChildren   = 100  // direct children per container block
)

// Type identifies a Notion block variant.
type Type string

const (
	Heading1         Type = "heading_1"
	Heading2         Type = "heading_2"
	Heading3         Type = "heading_3"
	Paragraph        Type = "paragraph"
	BulletedListItem Type = "bulleted_list_item"
	NumberedListItem Type = "numbered_list_item"
	Toggle           Type = "toggle"
	Table            Type = "table"
	TableRow         Type = "table_row"
	Callout          Type = "callout"
	Divider          Type = "divider"
)

// StyledRun is one contiguous span of text sharing a style set.
// The run sequence of a block, concatenated, reproduces the source
// text with style markers stripped.
type StyledRun struct {
	Text    string
	Bold    bool
	Italic  bool
	Code    bool
	LinkURL string // non-empty for link runs
}

// Plain returns an unstyled run.
func Plain(text string) StyledRun {
	return StyledRun{Text: text}
}

// Len returns the run's length in characters (runes), which is what
// the per-text-object limit counts.
func (r StyledRun) Len() int {
	return utf8.RuneCountInString(r.Text)
}

// Block is one structural unit of the output document.
// Children is used by toggle and table blocks; Cells only by table_row.
type Block struct {
	Type     Type
	Runs     []StyledRun
	Children []Block
	Cells    [][]StyledRun
}

// Count returns the number of block objects in the subtree rooted at b,
// including b itself. Nested rows and toggle children count because the
// downstream API counts every block object in an update payload.
func Count(bs []Block) int {
	n := 0
	for _, b := range bs {
		n += 1 + Count(b.Children)
	}
	return n
}

// JoinRuns concatenates the visible text of a run sequence.
func JoinRuns(runs []StyledRun) string {
	var out []byte
	for _, r := range runs {
		out = append(out, r.Text...)
	}
	return string(out)
}
