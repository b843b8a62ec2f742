package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "geotiles",
	Short: "build and query tiled spherical Delaunay nearest-neighbor indexes",
	Long: `geotiles builds a spherical Delaunay nearest-neighbor index over
geotagged article records, either as one monolithic mesh or as a
5-degree-gridded set of tiles, and answers k-nearest-neighbor queries
against the result.`,
}

// Execute adds all child commands to RootCmd and runs it. Called once from
// main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
