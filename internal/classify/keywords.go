package classify

import (
	"strings"

	"golang.org/x/text/language"
)

// essayKeywords are the markers teachers write instead of an answer key
// for subjective questions: solution, reference, essay, discuss, grading
// criteria, outline, explain.
var essayKeywords = map[language.Tag][]string{
	language.Korean: {
		"풀이", "해설", "참고", "서술", "논술", "채점기준", "채점 기준", "개요", "설명", "모범답안",
	},
	language.English: {
		"solution", "reference", "refer to", "essay", "discuss", "grading criteria", "rubric", "outline", "explain",
	},
}

// Languages returns the languages with a built-in essay keyword set.
func Languages() []language.Tag {
	return []language.Tag{language.Korean, language.English}
}

func keywordsFor(tags []language.Tag) []string {
	var out []string
	for _, tag := range tags {
		base, _ := tag.Base()
		for known, words := range essayKeywords {
			if kb, _ := known.Base(); kb == base {
				for _, w := range words {
					out = append(out, strings.ToLower(w))
				}
			}
		}
	}
	return out
}

// circled maps circled-digit glyphs to the option number they stand for.
var circled = map[rune]int{
	'①': 1, '②': 2, '③': 3, '④': 4, '⑤': 5,
	'➀': 1, '➁': 2, '➂': 3, '➃': 4, '➄': 5,
	'❶': 1, '❷': 2, '❸': 3, '❹': 4, '❺': 5,
}

// circledGlyph is the canonical glyph used when rendering choices.
var circledGlyph = [...]string{"", "①", "②", "③", "④", "⑤"}

var oMarks = map[string]bool{
	"O": true, "o": true, "○": true, "◯": true, "〇": true, "⭕": true,
}

var xMarks = map[string]bool{
	"X": true, "x": true, "×": true, "✕": true, "✖": true, "✗": true, "❌": true,
}
