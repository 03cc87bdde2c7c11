package translate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const translationPrompt = `You are a translation engine embedded in a documentation pipeline. Translate the text the user sends from %s to %s.

Rules:
- Output ONLY the translation, with no preamble, notes or quotes
- Keep line breaks exactly where they are in the input
- Leave code identifiers, URLs, file paths and version numbers untranslated
- Keep punctuation appropriate to the target language
- If the text is already in %s, return it unchanged`

// BuildSystemPrompt renders the translation instructions for a language pair.
func BuildSystemPrompt(langs Languages) string {
	target := languageName(langs.Target)
	return fmt.Sprintf(translationPrompt, languageName(langs.Source), target, target)
}

func languageName(tag language.Tag) string {
	if tag == language.Und {
		return "the detected source language"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// EstimateTokens gives a rough token count. Words count about 1.33 tokens
// each; CJK characters count one token apiece.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	for _, r := range text {
		if isWide(r) {
			tokens++
		}
	}
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// maxTokensFor sizes the completion budget for translating text.
func maxTokensFor(text string) int {
	n := 2*EstimateTokens(text) + 256
	if n > 8192 {
		n = 8192
	}
	return n
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
