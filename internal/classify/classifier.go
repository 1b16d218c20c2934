package classify

import (
	"strings"
)

// Category rappresenta la categoria di una domanda
type Category string

const (
	CategoryMathematical Category = "mathematical"
	CategoryFactual      Category = "factual"
	CategoryExplanatory  Category = "explanatory"
	CategoryCreative     Category = "creative"
	CategoryAnalytical   Category = "analytical"
	CategoryGeneral      Category = "general"
)

// categoryKeywords mappa ogni categoria ai suoi indicatori,
// valutate in ordine: la prima che matcha vince
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryMathematical, []string{"+", "-", "*", "/", "calculate", "math", "equation", "solve"}},
	{CategoryFactual, []string{"what is", "who is", "when was", "where is", "how many"}},
	{CategoryExplanatory, []string{"how does", "why does", "explain", "describe"}},
	{CategoryCreative, []string{"create", "write", "generate", "design", "imagine"}},
	{CategoryAnalytical, []string{"analyze", "compare", "evaluate", "assess"}},
}

// Classify determina la categoria di una domanda tramite euristiche
// keyword. È una funzione pura e totale: qualsiasi input, incluso
// quello vuoto, produce una categoria (default general).
func Classify(text string) Category {
	lower := strings.ToLower(text)

	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				return ck.category
			}
		}
	}

	return CategoryGeneral
}
