package summarizer

import "strings"

const promptHeader = `Please analyze this meeting transcript segment and extract structured information.

Extract the following information in JSON format:
{
  "summary": "Brief 2-3 sentence summary of this segment",
  "key_points": ["List of 2-4 key discussion points"],
  "decisions_made": ["List of concrete decisions made"],
  "action_items": ["List of specific actions to be taken"],
  "speakers_mentioned": ["List of people who spoke"],
  "topics_discussed": ["List of main topics covered"]
}

Guidelines:
- Only include information explicitly mentioned in the transcript
- Action items should be specific and actionable
- Decisions should be concrete outcomes, not just discussions
- Use exact names when mentioned
- Focus on substantive content, not casual remarks
`

// BuildPrompt returns the chunk prompt. previousContext is omitted when empty.
func BuildPrompt(content, previousContext string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n")

	if previousContext != "" {
		b.WriteString("Previous context for continuity:\n")
		b.WriteString(previousContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Transcript segment to analyze:\n")
	b.WriteString(content)
	b.WriteString("\n\nPlease provide only the JSON response without additional commentary:")
	return b.String()
}

// ContextTail returns the last n words of content, used as continuity
// context for the following chunk.
func ContextTail(content string, n int) string {
	words := strings.Fields(content)
	if n <= 0 || len(words) == 0 {
		return ""
	}
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
