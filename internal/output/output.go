// Package output renders search results for the CLI with optional color.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/baheth/baheth/internal/search"
)

// Color palette. Single accent color, muted secondary text.
const (
	colorAccent = "43"  // teal
	colorWhite  = "255" // headers
	colorGray   = "245" // labels, scores
	colorYellow = "220" // warnings
)

// Styles holds the render styles.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Score   lipgloss.Style
	Warning lipgloss.Style
}

func colorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
	}
}

func plainStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Title:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
	}
}

// Writer renders search responses.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer, enabling color when out is a terminal.
func New(out io.Writer) *Writer {
	styles := plainStyles()
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		styles = colorStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Response renders a full search response.
func (w *Writer) Response(resp *search.Response) {
	if len(resp.Ayahs) > 0 {
		w.section("Quran")
		for i, hit := range resp.Ayahs {
			w.result(i+1, fmt.Sprintf("%d:%d %s", hit.Surah, hit.Ayah, hit.SurahName),
				excerpt(hit.Snippet, hit.Text), hit.Scores.Fused)
		}
	}

	if len(resp.Hadiths) > 0 {
		w.section("Hadith")
		for i, hit := range resp.Hadiths {
			w.result(i+1, fmt.Sprintf("%s #%d", hit.Collection, hit.Number),
				excerpt(hit.Snippet, hit.Text), hit.Scores.Fused)
		}
	}

	if len(resp.Books) > 0 {
		w.section("Books")
		for i, hit := range resp.Books {
			title := hit.Title
			if hit.TranslatedTitle != "" {
				title = fmt.Sprintf("%s (%s)", title, hit.TranslatedTitle)
			}
			if hit.AuthorName != "" {
				title = fmt.Sprintf("%s — %s", title, hit.AuthorName)
			}
			w.result(i+1, fmt.Sprintf("%s (p. %d)", title, hit.Page),
				excerpt(hit.Snippet, hit.Text), hit.Scores.Fused)
		}
	}

	if len(resp.Books) == 0 && len(resp.Ayahs) == 0 && len(resp.Hadiths) == 0 {
		fmt.Fprintln(w.out, "No results.")
	}

	d := resp.Diagnostics
	if d.RerankTimedOut {
		fmt.Fprintln(w.out, w.styles.Warning.Render("note: reranking timed out, showing fusion order"))
	}
	fmt.Fprintln(w.out, w.styles.Label.Render(
		fmt.Sprintf("mode=%s refined=%t reranker=%s elapsed=%dms",
			d.Mode, d.Refined, d.Reranker, d.ElapsedMS)))
}

func (w *Writer) section(name string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.styles.Header.Render(name))
}

func (w *Writer) result(n int, title, text string, score float64) {
	fmt.Fprintf(w.out, "%2d. %s %s\n", n,
		w.styles.Title.Render(title),
		w.styles.Score.Render(fmt.Sprintf("(%.3f)", score)))
	if text != "" {
		fmt.Fprintf(w.out, "    %s\n", text)
	}
}

// excerpt prefers the highlighted snippet and trims overly long plain text.
func excerpt(snippet, text string) string {
	s := snippet
	if s == "" {
		s = text
	}
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > 280 {
		s = string(runes[:280]) + "…"
	}
	return s
}
