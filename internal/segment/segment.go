package segment

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies the shape of a section body.
type Kind string

const (
	KindHeading   Kind = "heading" // title only, no body
	KindTable     Kind = "table"
	KindList      Kind = "list"
	KindKeyValue  Kind = "keyvalue"
	KindParagraph Kind = "paragraph"
)

// Section is one logically coherent region of the input, bounded by
// headings or blank-line runs. Immutable after creation; the allocator
// consumes it.
type Section struct {
	ID           string
	Kind         Kind
	Title        string
	HeadingLevel int // 1-3, 0 when untitled
	BodyLines    []string
	Priority     float64
	MinBlocks    int
	MaxBlocks    int // 0 means bounded only by chunking
}

// maxItemBlocks caps how many item/row blocks a list or table section
// may render.
const maxItemBlocks = 8

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletPattern  = regexp.MustCompile(`^\s*[-*+•]\s+\S`)
	numberPattern  = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	keyValPattern  = regexp.MustCompile(`^\s*[^:\s][^:]*:\s*\S`)
	slugPattern    = regexp.MustCompile(`[^a-z0-9]+`)
)

// classifier is one step of the body-shape heuristic chain. The chain
// is ordered; the first match wins. Keeping it as a table makes the
// decision order itself reviewable and testable.
type classifier struct {
	name  string
	kind  Kind
	match func(lines []string) bool
}

var bodyClassifiers = []classifier{
	{name: "table-like", kind: KindTable, match: isTableLike},
	{name: "list-like", kind: KindList, match: isListLike},
	{name: "keyvalue-like", kind: KindKeyValue, match: isKeyValueLike},
}

// priorityRule maps title keywords to an inclusion weight. First match
// wins; titles matching nothing get defaultPriority.
type priorityRule struct {
	keywords []string
	weight   float64
}

var priorityRules = []priorityRule{
	{[]string{"executive", "summary", "overview", "tl;dr"}, 1.0},
	{[]string{"key finding", "finding", "highlight", "conclusion", "takeaway"}, 0.9},
	{[]string{"risk", "recommendation", "action", "next step"}, 0.8},
	{[]string{"metadata", "footer", "disclaimer", "appendix", "glossary", "about this"}, 0.2},
}

const defaultPriority = 0.5

// Segment splits raw analysis text into ordered typed sections. Lines
// before the first heading form an untitled leading section. Empty or
// unparseable input yields zero sections, never an error: the allocator
// then emits only its required anchors.
func Segment(text string) []Section {
	var sections []Section

	var title string
	var level int
	var body []string

	flush := func() {
		sec, ok := buildSection(len(sections), title, level, body)
		if ok {
			sections = append(sections, sec)
		}
		title, level, body = "", 0, nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if m := headingPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			title = strings.TrimSpace(m[2])
			level = len(m[1])
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

func buildSection(index int, title string, level int, body []string) (Section, bool) {
	lines := trimBody(body)
	if title == "" && len(lines) == 0 {
		return Section{}, false
	}

	sec := Section{
		ID:           sectionID(index, title),
		Title:        title,
		HeadingLevel: clampLevel(level),
		BodyLines:    lines,
		Priority:     priorityFor(title),
		MinBlocks:    1,
	}

	if len(lines) == 0 {
		sec.Kind = KindHeading
		sec.MaxBlocks = 1
		return sec, true
	}

	sec.Kind = KindParagraph
	for _, c := range bodyClassifiers {
		if c.match(lines) {
			sec.Kind = c.kind
			break
		}
	}

	switch sec.Kind {
	case KindList:
		sec.MaxBlocks = min(countMatching(lines, isItemLine), maxItemBlocks)
	case KindTable:
		sec.MaxBlocks = min(len(lines), maxItemBlocks)
	case KindKeyValue:
		sec.MaxBlocks = 2
	}
	return sec, true
}

// isTableLike: a column-separator character on at least two lines, or
// at least three colon-delimited key/value lines.
func isTableLike(lines []string) bool {
	pipes := 0
	colons := 0
	for _, l := range lines {
		if strings.Contains(l, "|") {
			pipes++
		}
		if keyValPattern.MatchString(l) {
			colons++
		}
	}
	return pipes >= 2 || colons >= 3
}

// isListLike: at least two bullet or enumerated item lines.
func isListLike(lines []string) bool {
	return countMatching(lines, isItemLine) >= 2
}

// isKeyValueLike: two to five lines, each a key: value pair. Larger
// colon-heavy bodies were already claimed by the table classifier.
func isKeyValueLike(lines []string) bool {
	nonEmpty := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nonEmpty++
		if !keyValPattern.MatchString(l) {
			return false
		}
	}
	return nonEmpty >= 2 && nonEmpty <= 5
}

func isItemLine(line string) bool {
	return bulletPattern.MatchString(line) || numberPattern.MatchString(line)
}

func countMatching(lines []string, match func(string) bool) int {
	n := 0
	for _, l := range lines {
		if match(l) {
			n++
		}
	}
	return n
}

func priorityFor(title string) float64 {
	t := strings.ToLower(title)
	if t == "" {
		return defaultPriority
	}
	for _, rule := range priorityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.weight
			}
		}
	}
	return defaultPriority
}

func sectionID(index int, title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return fmt.Sprintf("%02d-%s", index, slug)
}

func clampLevel(level int) int {
	if level <= 0 {
		return 0
	}
	if level > 3 {
		return 3
	}
	return level
}

// trimBody drops leading and trailing blank lines but keeps interior
// ones: they are paragraph boundaries for the chunker.
func trimBody(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return nil
	}
	return lines[start:end]
}
