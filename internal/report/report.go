// Package report renders aggregate tables as per-group summaries: the number
// of hands seen, how often they held no set and the average set count.
package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n uint64) string {
	return printer.Sprintf("%d", n)
}

// section is one hand type and hand size; its rows are ordered by deals.
type section struct {
	handType stats.HandType
	handSize int
	rows     []stats.Totals
}

func sections(t stats.Table) []section {
	var out []section
	for _, tot := range stats.Summarize(t) {
		n := len(out)
		if n == 0 || out[n-1].handType != tot.HandType || out[n-1].handSize != tot.HandSize {
			out = append(out, section{handType: tot.HandType, handSize: tot.HandSize})
			n++
		}
		out[n-1].rows = append(out[n-1].rows, tot)
	}
	return out
}

func handTypeLabel(h stats.HandType) string {
	if h == stats.Unspecified {
		return "unspecified"
	}
	return string(h)
}

// Markdown writes a markdown report of t to w.
func Markdown(w io.Writer, heading string, t stats.Table) error {
	title := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	fmt.Fprintf(&b, "%s snapshots across %s groups.\n", Count(t.Total()), Count(uint64(len(stats.Summarize(t)))))

	for _, s := range sections(t) {
		fmt.Fprintf(&b, "\n## %s %d card hands\n\n", title.String(handTypeLabel(s.handType)), s.handSize)
		b.WriteString("| Deals | Hands | Sets | Setless | P(setless) | Avg sets |\n")
		b.WriteString("|---:|---:|---:|---:|---:|---:|\n")
		for _, r := range s.rows {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %.6f | %.4f |\n",
				r.Deals, Count(r.Hands), Count(r.Sets), Count(r.Setless), r.PSetless(), r.AvgSets())
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.FileSystemError("write report").WithCause(err).Build()
	}
	return nil
}

// HTML writes the markdown report of t rendered as a standalone HTML page.
func HTML(w io.Writer, heading string, t stats.Table) error {
	var src bytes.Buffer
	if err := Markdown(&src, heading, t); err != nil {
		return err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return errors.InternalError("render report HTML").WithCause(err).Build()
	}

	page := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(heading), body.String())
	if _, err := io.WriteString(w, page); err != nil {
		return errors.FileSystemError("write report").WithCause(err).Build()
	}
	return nil
}

// Terminal writes one pterm table per section to w.
func Terminal(w io.Writer, t stats.Table) error {
	for _, s := range sections(t) {
		data := pterm.TableData{{"Deals", "Hands", "Sets", "Setless", "P(setless)", "Avg sets"}}
		for _, r := range s.rows {
			data = append(data, []string{
				fmt.Sprint(r.Deals),
				Count(r.Hands),
				Count(r.Sets),
				Count(r.Setless),
				fmt.Sprintf("%.6f", r.PSetless()),
				fmt.Sprintf("%.4f", r.AvgSets()),
			})
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(data).Srender()
		if err != nil {
			return errors.InternalError("render report table").WithCause(err).Build()
		}
		if _, err := fmt.Fprintf(w, "%s %d card hands\n%s\n\n", handTypeLabel(s.handType), s.handSize, out); err != nil {
			return errors.FileSystemError("write report").WithCause(err).Build()
		}
	}
	return nil
}
