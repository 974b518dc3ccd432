package main

import (
	"drivetime-accessibility/internal/config"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

// Input and output overrides shared by run and serve.
var (
	populationPath   string
	boundaryPath     string
	destinationsPath string
	outDir           string
)

var rootCmd = &cobra.Command{
	Use:   "drivetime",
	Short: "Population drive-time accessibility to a fixed set of destinations",
	Long: "Routes every census block centroid to a fixed destination list, keeps the nearest " +
		"destination per block and summarises population by drive-time bucket.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if populationPath != "" {
			cfg.Inputs.Population.Path = populationPath
		}
		if boundaryPath != "" {
			cfg.Inputs.Boundary.Path = boundaryPath
		}
		if destinationsPath != "" {
			cfg.Inputs.Destinations = destinationsPath
		}
		if outDir != "" {
			cfg.Output.Dir = outDir
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&populationPath, "population", "", "population layer (.shp or .geojson)")
	pf.StringVar(&boundaryPath, "boundary", "", "study boundary (.geojson)")
	pf.StringVar(&destinationsPath, "destinations", "", "destination list (.csv or .xlsx)")
	pf.StringVar(&outDir, "out", "", "output directory for artifacts")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
