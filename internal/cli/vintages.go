package cli

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/series"
)

// vintagesCommand lists the published prediction batches.
func (c *CLI) vintagesCommand() *cobra.Command {
	var (
		country string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "vintages",
		Short: "List published prediction batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := c.listVintages(cmd.Context(), country)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(vs)
			}
			printVintages(vs)
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "only batches with a prediction for this country")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *CLI) listVintages(ctx context.Context, country string) ([]series.Vintage, error) {
	src, closeSrc, err := c.openSource(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	vs, err := src.ListVintages(ctx)
	if err != nil {
		return nil, err
	}
	if country == "" {
		return vs, nil
	}
	var out []series.Vintage
	for _, v := range vs {
		if v.HasCountry(country) {
			out = append(out, v)
		}
	}
	return out, nil
}

func printVintages(vs []series.Vintage) {
	if len(vs) == 0 {
		printInfo("No predictions published")
		return
	}
	rows := make([][]string, len(vs))
	for i, v := range vs {
		rows[i] = []string{v.ID, v.PublishedDate.UTC().Format(series.DateLayout), strings.Join(v.Countries, ", ")}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Vintage", "Published", "Countries").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 2:
				return lipgloss.NewStyle().Foreground(colorGray).MaxWidth(60)
			}
			return lipgloss.NewStyle()
		})
	printLine(t.Render())
	printDetail("%d batches", len(vs))
}
