package hints

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSentenceLen = 300

type Example struct {
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
}

// ParseExample decodes a model response into an Example. Code fences
// around the JSON are tolerated.
func ParseExample(responseBody string) (*Example, error) {
	cleaned := stripCodeFences(responseBody)

	var ex Example
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	ex.Sentence = strings.TrimSpace(ex.Sentence)
	ex.Translation = strings.TrimSpace(ex.Translation)
	switch {
	case ex.Sentence == "":
		return nil, fmt.Errorf("example has no sentence")
	case utf8.RuneCountInString(ex.Sentence) > maxSentenceLen:
		return nil, fmt.Errorf("example sentence too long: %d runes", utf8.RuneCountInString(ex.Sentence))
	}
	return &ex, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
