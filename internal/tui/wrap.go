package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText wraps text at word boundaries so each line fits the given
// display width. Words wider than the width are broken mid-word.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, width)...)
	}
	return strings.Join(lines, "\n")
}

func wrapParagraph(paragraph string, width int) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := ""
	currentWidth := 0
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)
		if wordWidth > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
				currentWidth = 0
			}
			lines = append(lines, breakWord(word, width)...)
			continue
		}
		if current == "" {
			current = word
			currentWidth = wordWidth
			continue
		}
		if currentWidth+1+wordWidth <= width {
			current += " " + word
			currentWidth += 1 + wordWidth
		} else {
			lines = append(lines, current)
			current = word
			currentWidth = wordWidth
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func breakWord(word string, width int) []string {
	var lines []string
	current := ""
	currentWidth := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if currentWidth+rw > width && current != "" {
			lines = append(lines, current)
			current = ""
			currentWidth = 0
		}
		current += string(r)
		currentWidth += rw
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
