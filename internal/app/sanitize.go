package app

import (
	"strings"

	"golang.org/x/net/html"
)

// maxTextRunes caps every submitted text field.
const maxTextRunes = 5000

// sanitizeText strips HTML markup from user input, trims whitespace and
// caps the length. Script and style bodies are dropped entirely.
func sanitizeText(s string) string {
	s = stripTags(s)
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxTextRunes {
		s = strings.TrimSpace(string(runes[:maxTextRunes]))
	}
	return s
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	tz := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch tz.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(tz.Text())
			}
		case html.StartTagToken:
			if name, _ := tz.TagName(); isHiddenElement(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tz.TagName(); isHiddenElement(string(name)) && skip > 0 {
				skip--
			}
		}
	}
}

func isHiddenElement(name string) bool {
	return name == "script" || name == "style"
}
