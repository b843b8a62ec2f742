package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/tiler"
	"github.com/chrissteinbach/geotiles/tilequery"
)

var (
	queryManifestPath string
	queryLat          float64
	queryLon          float64
	queryK            int
)

// queryCmd answers a k-NN query against a tiled manifest, loading only the
// tiles tilesForPosition selects.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "find the k nearest articles to a position",
	Run:   runQuery,
}

func init() {
	RootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryManifestPath, "manifest", "", "path to a tiled build's index.json (required)")
	queryCmd.Flags().Float64Var(&queryLat, "lat", 0, "query latitude in degrees")
	queryCmd.Flags().Float64Var(&queryLon, "lon", 0, "query longitude in degrees")
	queryCmd.Flags().IntVar(&queryK, "k", 10, "number of nearest results to return")
}

func runQuery(cmd *cobra.Command, args []string) {
	if queryManifestPath == "" {
		die("query", fmt.Errorf("--manifest is required"))
	}

	manifest, err := readManifest(queryManifestPath)
	if err != nil {
		die("query: read manifest", err)
	}

	q := tilequery.New(manifest, 50)
	sel := q.TilesForPosition(queryLat, queryLon)
	dir := filepath.Dir(queryManifestPath)

	ids := sel.Adjacent
	if sel.Primary != "" {
		ids = append([]tiler.TileID{sel.Primary}, ids...)
	}
	for _, id := range ids {
		tile, err := loadTileFile(dir, id)
		if err != nil {
			die("query: load tile "+string(id), err)
		}
		q.AddTile(id, tile)
	}

	results := q.FindNearest(queryLat, queryLon, queryK)
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		die("query: marshal results", err)
	}
	fmt.Println(string(out))
}

func readManifest(path string) (*tiler.TileIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return tiler.UnmarshalManifest(data)
}

func loadTileFile(dir string, id tiler.TileID) (*tilequery.Tile, error) {
	path := filepath.Join(dir, string(id)+".bin")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	decoded, err := meshbin.Decode(f)
	if err != nil {
		return nil, err
	}
	return &tilequery.Tile{Mesh: decoded.Mesh, Titles: decoded.Titles}, nil
}
