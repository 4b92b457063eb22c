package hints

import (
	"fmt"
	"strings"
)

func SystemPrompt() string {
	return `You write short example sentences for language learners.

RULES:
- Write ONE natural English sentence of 6 to 16 words that uses the given word in its given meaning.
- Use simple everyday vocabulary around the word.
- Translate the sentence into Persian.
- Do not define the word and do not add commentary.

OUTPUT FORMAT:
Return only JSON: {"sentence": "...", "translation": "..."}`
}

// BuildUserPrompt asks for an example of source. The quoted source must
// come first in the prompt.
func BuildUserPrompt(source, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Word: %q\n", strings.TrimSpace(source))
	if t := strings.TrimSpace(target); t != "" {
		fmt.Fprintf(&b, "Meaning (Persian): %s\n", t)
	}
	b.WriteString("Write one example sentence.")
	return b.String()
}
