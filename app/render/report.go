// Package render prints a report as terminal tables.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/suivideflotte/fleet-intel/app/aggregate"
)

// Report writes the overview, news, social, jobs and web tracker tables to w.
func Report(w io.Writer, report aggregate.Report) {
	overview(w, report.Summary)
	news(w, report.Records)
	social(w, report.Social, report.Summary.FollowersAuthoritative)
	jobs(w, report.Records, report.Summary)
	tracker(w, report.Tracker)
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func overview(w io.Writer, summary aggregate.Summary) {
	status := "Estimé"
	if summary.FollowersAuthoritative {
		status = "Précis"
	}

	t := newTable(w, "Vue d'ensemble")
	t.AppendHeader(table.Row{"Concurrents", "Articles", "Offres", "LinkedIn"})
	t.AppendRow(table.Row{summary.CompetitorCount, summary.ArticleCount, summary.JobCount, status})
	t.Render()
}

func news(w io.Writer, records []aggregate.CompetitorRecord) {
	t := newTable(w, "Actualités (France)")
	t.AppendHeader(table.Row{"Concurrent", "Titre", "Date", "Source"})

	for _, r := range records {
		if len(r.News.Value) == 0 {
			message := "Aucune actualité"
			if r.News.Failed() {
				message = "Actualités indisponibles"
			}
			t.AppendRow(table.Row{r.Competitor.Name, message, "", ""})
			continue
		}
		for _, item := range r.News.Value {
			t.AppendRow(table.Row{r.Competitor.Name, item.Title, item.PublishedDate, item.SourceName})
		}
		t.AppendSeparator()
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, WidthMax: 70},
	})
	t.Render()
}

func social(w io.Writer, rows []aggregate.SocialRow, authoritative bool) {
	t := newTable(w, "Social Pulse (LinkedIn)")
	t.AppendHeader(table.Row{"Concurrent", "Followers", "Source"})

	for _, row := range rows {
		source := "Auth"
		if row.Estimated {
			source = "Estimé"
		}
		t.AppendRow(table.Row{row.Competitor, row.Followers, source})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, Transformer: text.NewNumberTransformer("%d")},
	})
	t.Render()

	if !authoritative {
		fmt.Fprintln(w, "Connectez LinkedIn pour des données réelles")
	}
}

func jobs(w io.Writer, records []aggregate.CompetitorRecord, summary aggregate.Summary) {
	t := newTable(w, "Recrutement (France)")
	t.AppendHeader(table.Row{"Concurrent", "Poste", "Localisation", "Source"})

	for _, r := range records {
		for _, job := range r.Jobs.Value {
			title := job.Title
			if job.Synthetic {
				title += " (indicatif)"
			}
			t.AppendRow(table.Row{r.Competitor.Name, title, job.Location, job.SourceName})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	t.Render()

	if alert := summary.TopRecruiter; alert != nil {
		fmt.Fprintln(w, text.FgRed.Sprintf("ALERTE: %s recrute (%d postes)", alert.Competitor, alert.Count))
	}
}

func tracker(w io.Writer, rows []aggregate.TrackerRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Web Tracker: aucun changement détecté")
		return
	}

	t := newTable(w, "Web Tracker")
	t.AppendHeader(table.Row{"Concurrent", "Mots-clés", "Salons", "Nombre"})

	for _, row := range rows {
		t.AppendRow(table.Row{row.Competitor, strings.Join(row.Keywords, ", "), strings.Join(row.Events, ", "), len(row.Keywords)})
	}

	t.Render()
}
