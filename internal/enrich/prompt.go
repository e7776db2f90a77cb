package enrich

import (
	"fmt"
	"strings"
)

const analysisPrompt = `You are analyzing a document for publication to a knowledge base. Write a structured analysis of the document below.

Structure the analysis as markdown with these sections, in order:

## Executive Summary
Two or three sentences capturing what the document is and what it concludes.

## Key Findings
A bulleted list of the most important concrete points. One finding per bullet.

## Risks
Anything in the document that represents a risk, caveat, or open problem. Skip this section if there are none.

## Recommendations
Concrete next steps a reader should take. Skip this section if the document suggests none.

## Metadata
Key: value lines for document attributes worth recording (author, date, scope).

Rules:
- Stay factual. Report what the document says, not your opinion of it.
- Use **bold** for terms of art and ` + "`code`" + ` for identifiers.
- Keep bullets under 200 characters each.
- Preserve any table data as pipe-delimited rows.

Respond with ONLY the markdown analysis, no preamble.`

// BuildAnalysisPrompt assembles the full prompt for a document,
// including its title and declared content type.
func BuildAnalysisPrompt(docTitle, contentType, text string) string {
	var sb strings.Builder
	sb.WriteString(analysisPrompt)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Document: %q\n", docTitle))
	if contentType != "" {
		sb.WriteString(fmt.Sprintf("Content type: %s\n", contentType))
	}
	sb.WriteString("---\n")
	sb.WriteString(text)
	return sb.String()
}
