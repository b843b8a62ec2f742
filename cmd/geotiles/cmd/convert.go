package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrissteinbach/geotiles/meshbin"
)

var (
	convertInPath  string
	convertOutPath string
)

// convertCmd converts a single mesh from its normative binary form to the
// non-normative debug JSON form (spec.md §4.6/§9 Open Question 4); it does
// not convert JSON back to binary. It operates on one mesh file at a time,
// not a tiled manifest.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "convert a binary mesh file to debug JSON form",
	Run:   runConvert,
}

func init() {
	RootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertInPath, "in", "", "input file, mesh.bin (required)")
	convertCmd.Flags().StringVar(&convertOutPath, "out", "", "output file, mesh.json (required)")
}

func runConvert(cmd *cobra.Command, args []string) {
	if convertInPath == "" || convertOutPath == "" {
		die("convert", fmt.Errorf("--in and --out are both required"))
	}
	in, err := os.Open(convertInPath)
	if err != nil {
		die("convert: open", err)
	}
	defer in.Close()

	decoded, err := meshbin.Decode(in)
	if err != nil {
		die("convert: decode", err)
	}

	out, err := meshbin.EncodeJSON(decoded.Mesh, decoded.Titles)
	if err != nil {
		die("convert: encode json", err)
	}
	if err := os.WriteFile(convertOutPath, out, 0o644); err != nil {
		die("convert: write", err)
	}
	fmt.Printf("wrote %s\n", convertOutPath)
}
