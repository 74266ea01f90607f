// Package report prints merge summaries and writes machine-readable reports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/dannyswat/xmlmerge"
	"github.com/dannyswat/xmlmerge/internal/discovery"
	"github.com/dannyswat/xmlmerge/internal/pipeline"
)

// Printer writes a human-readable run summary.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:   r.NewStyle().Faint(true),
	}
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Discovery lists how many documents each directory contributed.
func (p *Printer) Discovery(sets []discovery.FileSet) {
	originals := 0
	perVariant := map[string]int{}
	var order []string
	for _, s := range sets {
		if s.HasOriginal() {
			originals++
		}
		for _, v := range s.Variants {
			if _, seen := perVariant[v.Name]; !seen {
				order = append(order, v.Name)
			}
			perVariant[v.Name]++
		}
	}

	p.line(p.heading.Render("Discovery"))
	p.line("  original: %s", english.Plural(originals, "document", ""))
	for _, name := range order {
		p.line("  %s: %s", name, english.Plural(perVariant[name], "document", ""))
	}
}

// Outcomes prints one block per document followed by the run totals.
func (p *Printer) Outcomes(outcomes []pipeline.Outcome) {
	var total xmlmerge.Stats
	counts := map[pipeline.Status]int{}

	for _, o := range outcomes {
		counts[o.Status]++
		switch o.Status {
		case pipeline.StatusSkipped:
			p.line("%s %s", p.warn.Render("skipped"), o.File+p.muted.Render(" (no original)"))
			continue
		case pipeline.StatusCopied:
			p.line("%s %s", p.muted.Render("copied"), o.File)
			continue
		case pipeline.StatusFailed:
			p.line("%s %s: %v", p.fail.Render("failed"), o.File, o.Err)
		default:
			p.line("%s %s", p.heading.Render("merged"), o.File)
		}

		for _, cs := range o.ChangeSets {
			p.line("  %s: %s added, %s modified, %s removed", cs.Source,
				humanize.Comma(int64(cs.Count(xmlmerge.ChangeAdd))),
				humanize.Comma(int64(cs.Count(xmlmerge.ChangeModify))),
				humanize.Comma(int64(cs.Count(xmlmerge.ChangeRemove))))
		}
		if o.Result == nil {
			continue
		}
		p.conflicts(o.Result.Conflicts)
		for _, race := range o.Result.Races {
			p.line("  %s %s removed %s, %s edited %s", p.warn.Render("race"),
				race.Removal.Source, race.Removal.Address, race.Edit.Source, race.Edit.Address)
		}
		addStats(&total, o.Result.Stats)
	}

	p.line("")
	p.line(p.heading.Render("Summary"))
	p.line("  documents: %s merged, %s copied, %s skipped, %s failed",
		humanize.Comma(int64(counts[pipeline.StatusMerged])),
		humanize.Comma(int64(counts[pipeline.StatusCopied])),
		humanize.Comma(int64(counts[pipeline.StatusSkipped])),
		humanize.Comma(int64(counts[pipeline.StatusFailed])))
	p.line("  changes applied: %s (%s added, %s modified, %s removed)",
		humanize.Comma(int64(total.Total)),
		humanize.Comma(int64(total.Additions)),
		humanize.Comma(int64(total.Modifications)),
		humanize.Comma(int64(total.Deletions)))
	p.line("  conflicts: %s, skipped changes: %s",
		humanize.Comma(int64(total.Conflicts)),
		humanize.Comma(int64(total.Skipped)))
}

func (p *Printer) conflicts(conflicts []xmlmerge.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	p.line("  %s", p.warn.Render(english.Plural(len(conflicts), "conflict", "")))
	for _, c := range conflicts {
		target := c.Address.String()
		if c.Attribute != "" {
			target += "@" + c.Attribute
		}
		values := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			values = append(values, fmt.Sprintf("%s=%s", v.Source, quote(v.Value)))
		}
		p.line("    %s: %s", target, strings.Join(values, ", "))
	}
}

func quote(v *string) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%q", *v)
}

func addStats(total *xmlmerge.Stats, s xmlmerge.Stats) {
	total.Total += s.Total
	total.Additions += s.Additions
	total.Modifications += s.Modifications
	total.Deletions += s.Deletions
	total.Conflicts += s.Conflicts
	total.Skipped += s.Skipped
}
