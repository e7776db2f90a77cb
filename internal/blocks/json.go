package blocks

import "encoding/json"

// Wire schema for the Notion API. Blocks marshal to the shape expected
// by PATCH /v1/blocks/{id}/children and POST /v1/pages.

type richText struct {
	Type        string       `json:"type"`
	Text        textContent  `json:"text"`
	Annotations *annotations `json:"annotations,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
	Link    *link  `json:"link,omitempty"`
}

type link struct {
	URL string `json:"url"`
}

type annotations struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
	Code   bool `json:"code,omitempty"`
}

// MarshalJSON renders the run as a Notion rich-text object.
func (r StyledRun) MarshalJSON() ([]byte, error) {
	rt := richText{
		Type: "text",
		Text: textContent{Content: r.Text},
	}
	if r.LinkURL != "" {
		rt.Text.Link = &link{URL: r.LinkURL}
	}
	if r.Bold || r.Italic || r.Code {
		rt.Annotations = &annotations{Bold: r.Bold, Italic: r.Italic, Code: r.Code}
	}
	return json.Marshal(rt)
}

// MarshalJSON renders the block as a Notion block object. The payload
// key is the block type itself, so this builds a small map per block.
func (b Block) MarshalJSON() ([]byte, error) {
	body := map[string]any{}

	switch b.Type {
	case Divider:
		// Divider has an empty payload.
	case Table:
		width := 0
		for _, row := range b.Children {
			if len(row.Cells) > width {
				width = len(row.Cells)
			}
		}
		body["table_width"] = width
		body["has_column_header"] = true
		body["children"] = marshalableBlocks(b.Children)
	case TableRow:
		cells := b.Cells
		if cells == nil {
			cells = [][]StyledRun{}
		}
		body["cells"] = cells
	case Callout:
		body["rich_text"] = runsOrEmpty(b.Runs)
		body["icon"] = map[string]any{"type": "emoji", "emoji": "ℹ️"}
	default:
		body["rich_text"] = runsOrEmpty(b.Runs)
		if len(b.Children) > 0 {
			body["children"] = marshalableBlocks(b.Children)
		}
	}

	return json.Marshal(map[string]any{
		"object":       "block",
		"type":         string(b.Type),
		string(b.Type): body,
	})
}

func runsOrEmpty(runs []StyledRun) []StyledRun {
	if runs == nil {
		return []StyledRun{}
	}
	return runs
}

func marshalableBlocks(bs []Block) []Block {
	if bs == nil {
		return []Block{}
	}
	return bs
}
