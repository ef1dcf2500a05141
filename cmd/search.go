package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/rubiojr/gridsearch/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	docStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the index through the configured listing",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Filter value as name=value; date ranges as name=YYYY-MM-DD..YYYY-MM-DD",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Column to sort by",
			},
			&cli.StringFlag{
				Name:  "order",
				Usage: "Sort order (asc or desc)",
				Value: "asc",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page number",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "per-page",
				Usage: "Results per page (defaults to the configured per_page)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			&cli.BoolFlag{
				Name:  "show-request",
				Usage: "Print the search request sent to the backend",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			filters, err := parseAssignments(c.StringSlice("filter"))
			if err != nil {
				return err
			}
			form := searchForm(cfg, filters, c.String("sort"), c.String("order"), c.Int("page"), c.Int("per-page"))
			return searchListing(ctx, cfg, form, c.Bool("json"), c.Bool("show-request"))
		},
	}
}

// searchForm builds the query string a listing request would carry.
func searchForm(cfg *config.Config, filters map[string]string, sortBy, order string, page, perPage int) url.Values {
	form := url.Values{}
	for name, value := range filters {
		if cfg.SearchForm {
			name += cfg.FieldSuffix
		}
		form.Set(name, value)
	}
	if sortBy != "" {
		form.Set(datagrid.FieldSortBy, sortBy)
		form.Set(datagrid.FieldSortOrder, order)
	}
	if page > 0 {
		form.Set(datagrid.FieldPage, strconv.Itoa(page))
	}
	if perPage > 0 {
		form.Set(datagrid.FieldPerPage, strconv.Itoa(perPage))
	}
	return form
}

func searchListing(ctx context.Context, cfg *config.Config, form url.Values, asJSON, showRequest bool) error {
	l, store, err := openListing(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	values, err := l.ParseValues(form)
	if err != nil {
		return err
	}
	dg := l.Datagrid(values)
	page, err := dg.Results(ctx)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if showRequest {
		req, err := dg.Query().Request()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, req.String())
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	fmt.Print(renderPage(cfg, page))
	return nil
}

func renderPage(cfg *config.Config, page *datagrid.ResultPage) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Sprintf("%d results, page %d of %d", page.Total, page.Page, page.LastPage)))
	b.WriteString("\n")

	if len(page.Documents) == 0 {
		b.WriteString(noDataStyle.Render("No results found"))
		b.WriteString("\n")
		return b.String()
	}

	for _, doc := range page.Documents {
		b.WriteString(docStyle.Render(renderDocument(cfg, doc)))
		b.WriteString("\n")
	}

	first := (page.Page-1)*page.PerPage + 1
	last := first + len(page.Documents) - 1
	b.WriteString(metaStyle.Render(p.Sprintf("Showing %d-%d of %d", first, last, page.Total)))
	b.WriteString("\n")
	return b.String()
}

func renderDocument(cfg *config.Config, doc search.Document) string {
	title := cases.Title(language.English)
	var lines []string
	lines = append(lines, labelStyle.Render(doc.ID))

	fields := make([]string, 0, len(cfg.Columns))
	labels := make(map[string]string)
	for _, col := range cfg.Columns {
		fields = append(fields, col.Name)
		labels[col.Name] = col.Label
	}
	if len(fields) == 0 {
		for k := range doc.Fields {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}

	for _, f := range fields {
		v := doc.Get(f)
		if mapped, ok := cfg.FieldsMapping[f]; ok && v == nil {
			v = doc.Get(mapped)
		}
		if v == nil || f == cfg.Identifier {
			continue
		}
		label := labels[f]
		if label == "" {
			label = title.String(strings.ReplaceAll(f, "_", " "))
		}
		lines = append(lines, fmt.Sprintf("%s %v", metaStyle.Render(label+":"), v))
	}
	return strings.Join(lines, "\n")
}
