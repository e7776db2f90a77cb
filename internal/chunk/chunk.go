package chunk

import (
	"strings"
	"unicode/utf8"
)

// Fragment is a piece of a section body sized to fit within the
// per-text-object character cap. HardCut marks pieces that had to be
// cut mid-word because no separator existed below the cap.
type Fragment struct {
	Text    string
	Length  int // characters (runes)
	HardCut bool
}

// A separator class splits text into candidate pieces. Classes are
// tried in order; a piece still over the cap recurses into the next
// class. The order is the chunking policy and tests assert against it.
type separatorClass struct {
	name string
	// split breaks text into ordered pieces with the separator removed.
	split func(string) []string
	// joiner reassembles adjacent small pieces when packing.
	joiner string
	// pack re-accumulates pieces greedily up to the cap. Paragraph
	// breaks do not pack: each paragraph renders as its own block.
	pack bool
}

var separatorClasses = []separatorClass{
	{name: "paragraph", split: splitParagraphs},
	{name: "line", split: splitLines, joiner: "\n", pack: true},
	{name: "sentence", split: splitSentences, joiner: " ", pack: true},
	{name: "word", split: splitWords, joiner: " ", pack: true},
}

// Split breaks body into ordered fragments, each at most maxLen
// characters, using the separator class chain. Fragment order
// reconstructs the original reading order; separators consumed by a
// split are not re-inserted. An empty body yields no fragments and a
// body already within the cap is returned whole.
func Split(body string, maxLen int) []Fragment {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = 2000
	}
	if n := utf8.RuneCountInString(body); n <= maxLen {
		return []Fragment{{Text: body, Length: n}}
	}

	var frags []Fragment
	descend(body, maxLen, 0, &frags)
	return frags
}

// descend applies separator class level to text, recursing into the
// next class for any piece still over the cap. Past the last class the
// piece is hard-cut at the cap.
func descend(text string, maxLen, level int, out *[]Fragment) {
	if level >= len(separatorClasses) {
		hardCut(text, maxLen, out)
		return
	}

	cls := separatorClasses[level]
	pieces := trimNonEmpty(cls.split(text))
	if len(pieces) <= 1 {
		// This class found no boundary; try the next one.
		descend(text, maxLen, level+1, out)
		return
	}

	if !cls.pack {
		for _, p := range pieces {
			emitOrRecurse(p, maxLen, level, out)
		}
		return
	}

	// Greedy packing: accumulate pieces up to the cap, flushing the
	// buffer whenever the next piece would overflow it.
	var buf strings.Builder
	bufRunes := 0
	flush := func() {
		if bufRunes > 0 {
			*out = append(*out, Fragment{Text: buf.String(), Length: bufRunes})
			buf.Reset()
			bufRunes = 0
		}
	}
	joinerRunes := utf8.RuneCountInString(cls.joiner)

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if n > maxLen {
			flush()
			descend(p, maxLen, level+1, out)
			continue
		}
		cost := n
		if bufRunes > 0 {
			cost += joinerRunes
		}
		if bufRunes+cost > maxLen {
			flush()
			cost = n
		}
		if bufRunes > 0 {
			buf.WriteString(cls.joiner)
		}
		buf.WriteString(p)
		bufRunes += cost
	}
	flush()
}

func emitOrRecurse(piece string, maxLen, level int, out *[]Fragment) {
	if n := utf8.RuneCountInString(piece); n <= maxLen {
		*out = append(*out, Fragment{Text: piece, Length: n})
		return
	}
	descend(piece, maxLen, level+1, out)
}

// hardCut is the last-resort split for a single run of characters with
// no usable boundary, e.g. a very long URL.
func hardCut(text string, maxLen int, out *[]Fragment) {
	for text != "" {
		cut := len(text)
		count := 0
		for idx := range text {
			if count == maxLen {
				cut = idx
				break
			}
			count++
		}
		piece := text[:cut]
		*out = append(*out, Fragment{
			Text:    piece,
			Length:  utf8.RuneCountInString(piece),
			HardCut: true,
		})
		text = text[cut:]
	}
}

func splitParagraphs(text string) []string {
	// A paragraph break is a newline followed by a blank (or
	// whitespace-only) line.
	var pieces []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// splitSentences breaks on sentence-ending punctuation followed by
// whitespace. Trailing text without terminal punctuation is kept as a
// final sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func splitWords(text string) []string {
	return strings.Fields(text)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimNonEmpty(pieces []string) []string {
	out := pieces[:0]
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
