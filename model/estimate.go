package model

import "strings"

// specialChars is the character set the estimator counts on top of plain
// words.
const specialChars = ",.'\"!@#$%^&*()_+-=[]{}|;:,.<>?/`~"

// countWordsAndSpecialChars approximates token count as word count plus
// the count of characters in specialChars, over a single rendered string.
func countWordsAndSpecialChars(text string) int {
	count := len(strings.Fields(text))
	for _, r := range text {
		if strings.ContainsRune(specialChars, r) {
			count++
		}
	}
	return count
}

// EstimateLength is the fallback estimator used when a model has no
// tokenizer: the sum, over all messages, of countWordsAndSpecialChars(str(msg)).
func EstimateLength(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += countWordsAndSpecialChars(m.String())
	}
	return total
}
