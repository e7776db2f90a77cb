package inline

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/notepress/internal/blocks"
)

// Tokenize parses markdown-like inline spans (link, bold, italic, code)
// in a fragment's text into an ordered run sequence. Every run is at
// most maxRunLen characters. Unterminated or malformed markers are kept
// as literal text: the input comes from an uncontrolled generator, so
// robustness beats strictness here.
//
// Joining the returned run texts in order reproduces the input with
// only the style markers removed.
func Tokenize(text string, maxRunLen int) []blocks.StyledRun {
	if maxRunLen <= 0 {
		maxRunLen = blocks.MaxTextLength
	}
	if text == "" {
		return nil
	}

	var runs []blocks.StyledRun
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			runs = appendCapped(runs, blocks.Plain(plain.String()), maxRunLen)
			plain.Reset()
		}
	}

	i := 0
	for i < len(text) {
		run, next, ok := matchAt(text, i)
		if ok {
			flush()
			runs = appendCapped(runs, run, maxRunLen)
			i = next
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		plain.WriteString(text[i : i+size])
		i += size
	}
	flush()

	return runs
}

// matchAt tries the four span patterns at position i in a fixed
// precedence order: link, bold, italic, code. The first match wins,
// which resolves overlapping markers deterministically.
func matchAt(text string, i int) (blocks.StyledRun, int, bool) {
	if run, next, ok := matchLink(text, i); ok {
		return run, next, true
	}
	if run, next, ok := matchPaired(text, i, "**", blocks.StyledRun{Bold: true}); ok {
		return run, next, true
	}
	if run, next, ok := matchPaired(text, i, "__", blocks.StyledRun{Bold: true}); ok {
		return run, next, true
	}
	if run, next, ok := matchPaired(text, i, "*", blocks.StyledRun{Italic: true}); ok {
		return run, next, true
	}
	if run, next, ok := matchPaired(text, i, "_", blocks.StyledRun{Italic: true}); ok {
		return run, next, true
	}
	if run, next, ok := matchPaired(text, i, "`", blocks.StyledRun{Code: true}); ok {
		return run, next, true
	}
	return blocks.StyledRun{}, 0, false
}

// matchLink recognizes [label](url). Nested markers inside the label
// are treated as literal label text.
func matchLink(text string, i int) (blocks.StyledRun, int, bool) {
	if text[i] != '[' {
		return blocks.StyledRun{}, 0, false
	}
	close := strings.IndexByte(text[i+1:], ']')
	if close < 0 {
		return blocks.StyledRun{}, 0, false
	}
	labelEnd := i + 1 + close
	if labelEnd+1 >= len(text) || text[labelEnd+1] != '(' {
		return blocks.StyledRun{}, 0, false
	}
	urlEnd := strings.IndexByte(text[labelEnd+2:], ')')
	if urlEnd < 0 {
		return blocks.StyledRun{}, 0, false
	}
	label := text[i+1 : labelEnd]
	url := text[labelEnd+2 : labelEnd+2+urlEnd]
	if label == "" || url == "" {
		return blocks.StyledRun{}, 0, false
	}
	return blocks.StyledRun{Text: label, LinkURL: url}, labelEnd + 2 + urlEnd + 1, true
}

// matchPaired recognizes marker...marker spans with non-empty content.
func matchPaired(text string, i int, marker string, style blocks.StyledRun) (blocks.StyledRun, int, bool) {
	if !strings.HasPrefix(text[i:], marker) {
		return blocks.StyledRun{}, 0, false
	}
	start := i + len(marker)
	close := strings.Index(text[start:], marker)
	if close <= 0 {
		// Unterminated or empty span: literal text.
		return blocks.StyledRun{}, 0, false
	}
	style.Text = text[start : start+close]
	return style, start + close + len(marker), true
}

// appendCapped appends run, splitting it into consecutive runs with
// identical style flags whenever it exceeds maxRunLen characters. No
// characters are dropped: cuts land after a space when one exists in
// the window, otherwise on a rune boundary at the cap.
func appendCapped(runs []blocks.StyledRun, run blocks.StyledRun, maxRunLen int) []blocks.StyledRun {
	for run.Len() > maxRunLen {
		cut := cutIndex(run.Text, maxRunLen)
		head := run
		head.Text = run.Text[:cut]
		runs = append(runs, head)
		run.Text = run.Text[cut:]
	}
	return append(runs, run)
}

// cutIndex returns the byte offset at which to split text so the head
// holds at most maxRunes characters, preferring the position just after
// the last space in that window.
func cutIndex(text string, maxRunes int) int {
	limit := len(text)
	count := 0
	for idx := range text {
		if count == maxRunes {
			limit = idx
			break
		}
		count++
	}
	if sp := strings.LastIndexByte(text[:limit], ' '); sp > 0 {
		return sp + 1
	}
	return limit
}
