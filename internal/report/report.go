// Package report renders human-readable results of CLI executions.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/internal/publisher"
	"github.com/okian/leaguemodel/internal/resolver"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}

func candidateRows(t table.Writer, cs []probe.Candidate) {
	t.AppendHeader(table.Row{"#", "Tier", "Scheme", "Key"})
	for i, c := range cs {
		t.AppendRow(table.Row{i + 1, string(c.Tier), string(c.Scheme), c.Key})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, AutoMerge: true}})
}

// Candidates renders the probe list of a league in probe order.
func Candidates(w io.Writer, id league.ID, cs []probe.Candidate) {
	fmt.Fprintf(w, "candidates for league %s\n", id)
	t := newTable(w)
	candidateRows(t, cs)
	t.Render()
}

// Resolution renders where an artifact was found.
func Resolution(w io.Writer, res resolver.Resolution) {
	t := newTable(w)
	t.AppendHeader(table.Row{"League", "Tier", "Key", "Path", "Digest"})
	dig := "-"
	if res.Digest != "" {
		dig = res.Digest.String()
	}
	t.AppendRow(table.Row{res.League.String(), string(res.Candidate.Tier), res.Candidate.Key, res.Path, dig})
	t.Render()
}

// NotFound renders every location a failed resolution checked.
func NotFound(w io.Writer, nf *resolver.NotFoundError) {
	fmt.Fprintf(w, "no artifact for league %s; checked %d locations\n", nf.League, len(nf.Checked))
	if nf.RemoteErr != nil {
		fmt.Fprintf(w, "remote tier skipped: %v\n", nf.RemoteErr)
	}
	t := newTable(w)
	candidateRows(t, nf.Checked)
	t.Render()
}

// Publish renders a publish summary.
func Publish(w io.Writer, sum publisher.Summary) {
	canonical := "written"
	if sum.CanonicalErr != nil {
		canonical = "FAILED: " + sum.CanonicalErr.Error()
	}
	fmt.Fprintf(w, "canonical %s/%s: %s\n", registry.RegistryCollection, registry.RegistryKey, canonical)

	overridden := make(map[string]publisher.Override, len(sum.Overridden))
	for _, o := range sum.Overridden {
		overridden[o.League.String()] = o
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"League", "Status", "Model type", "Detail"})
	for _, id := range sum.Succeeded {
		detail := ""
		if o, ok := overridden[id.String()]; ok {
			detail = fmt.Sprintf("forced from %q", o.From)
		}
		t.AppendRow(table.Row{id.String(), "ok", sum.ModelType, detail})
	}
	for _, f := range sum.Failed {
		t.AppendRow(table.Row{f.League.String(), "failed", sum.ModelType, fmt.Sprintf("%s: %v", f.Key, f.Err)})
	}
	t.Render()
	fmt.Fprintf(w, "published %d/%d leagues\n", len(sum.Succeeded), sum.Attempted())
}

// Verification renders one league check.
func Verification(w io.Writer, v checker.Verification) {
	status := "MATCH"
	if !v.Matches {
		status = "DRIFT"
	}
	fmt.Fprintf(w, "league %s: %s\n", v.League, status)

	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Model type", "Accuracy", "Rating"})
	if v.Canonical != nil {
		acc := registry.AccuracyPercent(v.Canonical.Performance.WinnerAccuracy)
		t.AppendRow(table.Row{"canonical", v.Canonical.ModelType, formatFloat(acc), registry.RatingBand(acc)})
	}
	for _, m := range v.Mirrors {
		t.AppendRow(table.Row{"mirror " + m.Key, m.Record.ModelType, formatFloat(m.Record.Accuracy), m.Record.AIRating})
	}
	t.Render()

	for _, d := range v.Differences {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	if !v.Matches && !v.Repairable() {
		fmt.Fprintln(w, "reconcile will not clear this drift; correct the canonical model_type")
	}
}

// Findings renders a mirror sweep.
func Findings(w io.Writer, findings []checker.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "all mirror records consistent")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Key", "Reason", "Detail"})
	for _, f := range findings {
		t.AppendRow(table.Row{f.Key, string(f.Reason), f.Detail})
	}
	t.Render()
}

// Purged renders the keys a reconcile deleted.
func Purged(w io.Writer, keys []string) {
	fmt.Fprintf(w, "purged %d mirror records", len(keys))
	if len(keys) > 0 {
		fmt.Fprintf(w, ": %s", strings.Join(keys, ", "))
	}
	fmt.Fprintln(w)
}

// Snapshot is the state of every mirror document at one point in time.
// Bodies that do not decode are kept verbatim under Malformed.
type Snapshot struct {
	Records   map[string]registry.MirrorRecord
	Malformed map[string]string
}

// MirrorDiff returns a before/after diff of two mirror snapshots keyed by
// document key. It is empty when they are equal.
func MirrorDiff(before, after Snapshot) string {
	return cmp.Diff(before, after, cmpopts.EquateEmpty())
}

// Diff renders a snapshot diff.
func Diff(w io.Writer, diff string) {
	if diff == "" {
		fmt.Fprintln(w, "mirror records unchanged")
		return
	}
	fmt.Fprintln(w, "mirror records (-before +after):")
	fmt.Fprint(w, diff)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
