package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/journalit/ai"
)

const journalPromptTemplate = `You are analyzing a personal journal entry.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment.
Start your response directly with the opening brace { and end with the closing brace }.

TASK:
1. Create a concise summary, shorter than 70%% of the original.
2. Extract structured metadata.

Return JSON in this format:
{
  "summary": "short summary",
  "metadata": {
    "date": "YYYY-MM-DD if explicitly mentioned, else null",
    "mood": "overall tone, one word such as %s",
    "people": ["up to %d important names"],
    "tags": ["main topics, themes, or activities"],
    "emotions": ["up to %d emotions"],
    "stress_level": "%s"
  }
}

Rules:
- Use lowercase for mood, tags and emotions.
- Only include people, dates and emotions that are explicitly mentioned or clearly implied. Do not hallucinate.
- The JSON must parse without errors; no trailing commas, no extra keys.`

const conversationPromptTemplate = `You are summarizing a single conversation turn between a user and an AI therapist.
Combine the user message and the AI response into a concise summary (max 50 words).

Output ONLY valid JSON in this format:
{
  "summary": "...",
  "metadata": {
    "mood": "overall emotional tone",
    "topics": ["max %d main topics"],
    "emotions": ["max %d main emotions"],
    "stress_level": "%s"
  }
}

Use lowercase for mood, topics and emotions. No trailing commas, no extra keys.`

const filterPromptTemplate = `You turn a search over someone's personal journal into attribute filters.

Output ONLY valid JSON in this format:
{
  "people": ["names mentioned in the query"],
  "emotions": ["emotions the query asks about"],
  "tags": ["topics, themes, or activities the query asks about"],
  "date": "YYYY-MM-DD if the query names an exact date, else null",
  "mood": "one word mood if the query asks about one, else empty",
  "stress_level": "%s, or empty"
}

Rules:
- Leave a field empty when the query does not mention it. Never guess.
- Use lowercase for every value except dates.
- The JSON must parse without errors; no trailing commas, no extra keys.

Example:
Input: "when did I feel anxious about work with Sam"
Output:
{"people":["sam"],"emotions":["anxiety"],"tags":["work"],"date":null,"mood":"","stress_level":""}

Example:
Input: "what did I write yesterday"
Output:
{"people":[],"emotions":[],"tags":[],"date":null,"mood":"","stress_level":""}`

func buildJournalPrompt(maxItems int) string {
	return fmt.Sprintf(journalPromptTemplate,
		strings.Join(ai.Moods[:6], ", "),
		maxItems, maxItems,
		strings.Join(ai.StressLevels, ", or "))
}

func buildConversationPrompt(maxItems int) string {
	return fmt.Sprintf(conversationPromptTemplate,
		maxItems, maxItems,
		strings.Join(ai.StressLevels, ", "))
}

func buildFilterPrompt() string {
	return fmt.Sprintf(filterPromptTemplate, strings.Join(ai.StressLevels, ", "))
}

func buildConversationInput(userMessage, aiResponse string) string {
	return fmt.Sprintf("User: %q\nAI: %q", userMessage, aiResponse)
}
