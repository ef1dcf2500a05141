package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("214")).
	Margin(1, 0, 0, 0)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show index and listing statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, c.String("config"))
		},
	}
}

// showStats prints the document total and the configured filters and
// columns.
func showStats(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	l, store, err := openListing(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	page, err := l.Datagrid(datagrid.Values{PerPage: 1}).Results(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}

	fmt.Print(formatStats(cfg, page.Total))
	return nil
}

func formatStats(cfg *config.Config, total int) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Sprintf("%s backend: %d documents", cfg.Backend, total)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Filters"))
	b.WriteString("\n")
	for _, f := range cfg.Filters {
		b.WriteString(fmt.Sprintf("  %-20s %s\n", f.Name, metaStyle.Render(f.Kind.String())))
	}

	b.WriteString(headerStyle.Render("Columns"))
	b.WriteString("\n")
	for _, c := range cfg.Columns {
		sortable := ""
		if c.Sortable {
			sortable = "sortable"
		}
		b.WriteString(fmt.Sprintf("  %-20s %s\n", c.Name, metaStyle.Render(sortable)))
	}
	return b.String()
}
