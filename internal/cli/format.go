package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/modhub/internal/models"
)

func printMods(w io.Writer, mods []models.Mod) {
	if len(mods) == 0 {
		fmt.Fprintln(w, "No mods found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tAUTHOR\tRATING\tDOWNLOADS\tVERSIONS")
	for _, m := range mods {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%d\t%s\n",
			m.ID, m.Name, m.Category, m.Author, m.Rating, m.Downloads, strings.Join(m.Versions, ", "))
	}
	tw.Flush()
}

func printMod(w io.Writer, m *models.Mod) {
	fmt.Fprintf(w, "#%d %s\n", m.ID, m.Name)
	fmt.Fprintf(w, "  category:  %s\n", m.Category)
	fmt.Fprintf(w, "  author:    %s\n", m.Author)
	fmt.Fprintf(w, "  rating:    %.1f\n", m.Rating)
	fmt.Fprintf(w, "  downloads: %d\n", m.Downloads)
	fmt.Fprintf(w, "  uploaded:  %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  versions:  %s\n", strings.Join(m.Versions, ", "))
	if m.Description != "" {
		fmt.Fprintf(w, "\n%s\n", m.Description)
	}
}
