package generator

import (
	"fmt"
	"strings"
)

var titleGeneralRules = []string{
	"Titles must be in English",
	"Each title should be on a new line",
	"No empty lines between titles",
	"No extra spaces at the beginning or end of titles",
	"Do not use numbering or bullet points",
	"Only return a list of titles",
	"Each title must be unique without repetition",
}

func titlePrompt(t TitleType, count int) string {
	points := []string{
		"Each title must be completely unique",
		"Titles should be between 3-8 words",
		"They must be engaging and clickable",
	}
	points = append(points, t.Focus...)
	points = append(points, "Avoid clichés", "Each title should focus on a different topic")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d creative and engaging article titles about %s.\n", count, t.Subject)
	if len(t.PromptKeywords) > 0 {
		fmt.Fprintf(&sb, "%s: %s\n", t.Label, strings.Join(t.PromptKeywords, ", "))
	}
	sb.WriteString("\nKey points:\n")
	writeNumbered(&sb, points)
	sb.WriteString("\nGeneral rules:\n")
	writeNumbered(&sb, titleGeneralRules)
	return sb.String()
}

func writeNumbered(sb *strings.Builder, lines []string) {
	for i, line := range lines {
		fmt.Fprintf(sb, "%d. %s\n", i+1, line)
	}
}

const articlePromptTemplate = `%s

Topic: %s
Length: %d words
Tone: %s

The article should include the following sections, starting each section with ##:

## Introduction and Key Points
## Current State Analysis
## Expert Opinions and Data
## Future Impacts
## Practical Recommendations

Key considerations:
1. Use a fluent and clear language
2. Include specific examples and data
3. Incorporate expert quotes and opinions
4. Provide actionable recommendations
5. Maintain a professional yet approachable tone
6. Focus on practical applications
7. Conclude with clear takeaways

Write the article in English and return it in markdown format.`

func articlePrompt(req ArticleRequest) string {
	return fmt.Sprintf(articlePromptTemplate, articlePromptPrefix(req.Topic), req.Topic, req.Length, req.Tone)
}

func articlePromptPrefix(topic string) string {
	lower := strings.ToLower(topic)
	switch {
	case strings.Contains(lower, "elon musk") || strings.Contains(lower, "jeff bezos"):
		return "Write an article about technology leaders and their impact on the tech world."
	case strings.Contains(lower, "crypto") || strings.Contains(lower, "investment"):
		return "Write an analytical article about investment opportunities and market trends."
	case strings.Contains(lower, "growth") || strings.Contains(lower, "career"):
		return "Write an inspiring article about personal and professional growth."
	default:
		return "Write an informative article about technology trends and innovations."
	}
}

const humanizePromptTemplate = `Please make the following text more natural, fluid, and human-like.
Preserve the markdown format but make the language more conversational.
Keep technical terms but explain them in a more understandable way.
Follow these rules:

1. Soften formal language while maintaining professionalism
2. Explain technical terms but don't remove them
3. Make paragraphs shorter and more readable
4. Make transitions and connections more natural
5. Preserve markdown formatting
6. Don't change the content, only the style of presentation

Here's the text:

%s`

func humanizePrompt(text string) string {
	return fmt.Sprintf(humanizePromptTemplate, text)
}
