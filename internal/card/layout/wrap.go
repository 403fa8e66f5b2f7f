package layout

import (
	"strings"

	"github.com/rivo/uniseg"
)

// wrapLines разбивает текст на строки не шире maxWidth, разрывая между графемами.
// Явные переводы строк сохраняются; пробел в начале перенесённой строки отбрасывается.
func wrapLines(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string

	for _, para := range strings.Split(text, "\n") {
		if maxWidth <= 0 {
			lines = append(lines, para)
			continue
		}

		var line strings.Builder
		graphemes := uniseg.NewGraphemes(para)
		for graphemes.Next() {
			g := graphemes.Str()
			if line.Len() > 0 && measure(line.String()+g) > maxWidth {
				lines = append(lines, strings.TrimRight(line.String(), " "))
				line.Reset()
				if strings.TrimSpace(g) == "" {
					continue
				}
			}
			line.WriteString(g)
		}
		lines = append(lines, line.String())
	}

	return lines
}
