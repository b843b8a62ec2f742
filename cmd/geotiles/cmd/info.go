package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoManifestPath string

// infoCmd prints a summary of a tiled build's manifest.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "show summary information about a tiled build's manifest",
	Run:   runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&infoManifestPath, "manifest", "", "path to index.json (required)")
}

func runInfo(cmd *cobra.Command, args []string) {
	if infoManifestPath == "" {
		die("info", fmt.Errorf("--manifest is required"))
	}
	if err := fileExists(infoManifestPath); err != nil {
		die("info", err)
	}
	idx, err := readManifest(infoManifestPath)
	if err != nil {
		die("info: read manifest", err)
	}

	totalArticles, totalBytes := 0, 0
	for _, e := range idx.Tiles {
		totalArticles += e.Articles
		totalBytes += e.Bytes
	}

	fmt.Fprintf(os.Stdout, "version:     %d\n", idx.Version)
	fmt.Fprintf(os.Stdout, "grid:        %g deg (buffer %g deg)\n", idx.GridDeg, idx.BufferDeg)
	fmt.Fprintf(os.Stdout, "generated:   %s\n", idx.Generated)
	fmt.Fprintf(os.Stdout, "tiles:       %d\n", len(idx.Tiles))
	fmt.Fprintf(os.Stdout, "articles:    %d\n", totalArticles)
	fmt.Fprintf(os.Stdout, "total bytes: %d\n", totalBytes)
}
