package domain

import "unicode/utf8"

// ApproxTokenCount estimates the token count of text using the
// CharsPerTokenGuess ratio. This mirrors the accounting used when the
// context budget was tuned; it intentionally avoids a tokenizer dependency.
func ApproxTokenCount(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	count := n / CharsPerTokenGuess
	if count == 0 {
		count = 1
	}
	return count
}
