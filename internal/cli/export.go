package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/config"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/source/file"
	"github.com/matzehuels/covidchart/pkg/source/mongo"
)

// exportCommand copies everything the configured source serves into a
// dataset file.
func (c *CLI) exportCommand() *cobra.Command {
	var countries []string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the source's series to a YAML or JSON dataset",
		Long: `Write every vintage and series the configured source serves to FILE. The
format follows the extension (.json, otherwise YAML). The file can be used as
a source with kind = "file" or loaded into MongoDB with import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, closeSrc, err := c.openSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			prog := newProgress(c.Logger)
			sp := newSpinner(ctx, "Fetching series")
			sp.Start()
			ds, err := source.Dump(ctx, src, splitArgs(countries)...)
			sp.Stop()
			if err != nil {
				return err
			}
			if err := file.Write(config.ExpandHome(args[0]), ds); err != nil {
				return err
			}
			prog.done("Exported", "series", len(ds.Series), "listings", len(ds.Predictions))
			printSuccess("Exported %d series", len(ds.Series))
			printFile(args[0])
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&countries, "country", nil, "also export countries without predictions")
	return cmd
}

// importCommand loads a dataset file into MongoDB.
func (c *CLI) importCommand() *cobra.Command {
	var mcfg mongo.Config
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a dataset file into MongoDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if mcfg.URI == "" {
				mcfg.URI = c.conf().Source.MongoURI
			}
			if mcfg.Database == "" {
				mcfg.Database = c.conf().Source.MongoDatabase
			}
			ds, err := file.Read(config.ExpandHome(args[0]))
			if err != nil {
				return err
			}

			m, err := mongo.Connect(ctx, mcfg)
			if err != nil {
				return err
			}
			defer m.Close(ctx)
			if err := m.EnsureIndexes(ctx); err != nil {
				return err
			}
			n, err := mongo.Import(ctx, m, ds)
			if err != nil {
				return err
			}
			printSuccess("Imported %d series", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&mcfg.URI, "mongo-uri", "", "MongoDB connection string (default from config)")
	cmd.Flags().StringVar(&mcfg.Database, "database", "", "database name (default from config, \"covid19\")")
	return cmd
}
