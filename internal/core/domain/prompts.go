package domain

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptDistill turns a conversation transcript into a memory section.
	// The template expects one %s placeholder for the transcript.
	PromptDistill = "distill"

	// PromptHeartbeat asks the agent to review the heartbeat checklist.
	// The template expects %s (current date/time) and %s (checklist).
	PromptHeartbeat = "heartbeat"
)

// DefaultPrompts holds the built-in prompt templates.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptDistill: `You are summarizing a conversation for a personal assistant's memory.
Extract the key information:

1. Key facts and decisions made
2. Action items or tasks mentioned
3. Important dates or deadlines
4. People or projects discussed
5. Any preferences or opinions expressed

Format as a concise markdown section with bullet points.
Include a one-line summary at the top.
Keep it under 500 words.

Conversation to summarize:
%s`,

	PromptHeartbeat: `You are a proactive personal assistant. Below is a checklist of things to check.
Review each item and report only if there's something actionable or noteworthy.

Rules:
- If there is nothing to report, respond with exactly: HEARTBEAT_OK
- If there IS something to report, be concise (max 500 characters)
- Don't repeat yourself, only report new or changed information
- Use the current date/time to determine which checks apply (every/daily/weekly)
- Be helpful but not annoying, only message if it's worth interrupting the user

Current date/time: %s

Checklist:
%s`,
}
