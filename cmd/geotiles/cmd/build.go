package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrissteinbach/geotiles/buildlog"
	"github.com/chrissteinbach/geotiles/config"
	"github.com/chrissteinbach/geotiles/delaunay"
	"github.com/chrissteinbach/geotiles/hull"
	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/records"
	"github.com/chrissteinbach/geotiles/sphere"
	"github.com/chrissteinbach/geotiles/tiler"
)

var (
	buildInputPath  string
	buildLang       string
	buildTiled      bool
	buildBounds     string
	buildLimit      int
	buildJSON       bool
	buildGridDeg    float64
	buildBufferDeg  float64
	buildOutDir     string
	buildConfigPath string
)

// buildCmd builds either one monolithic mesh or a tiled index from a CSV
// article stream, per spec.md §4.7 and §6's CLI surface.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build a spherical Delaunay index from geotagged records",
	Long: `Read {title,lat,lon} records from --input and build a spherical
Delaunay nearest-neighbor index, either as a single mesh (default) or,
with --tiled, as a 5-degree-gridded set of tile files plus a manifest.`,
	Run: runBuild,
}

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildInputPath, "input", "", "input CSV of title,lat,lon rows (required)")
	buildCmd.Flags().StringVar(&buildLang, "lang", "en", "language tag, used only for the output path")
	buildCmd.Flags().BoolVar(&buildTiled, "tiled", false, "build a tiled index instead of one monolithic mesh")
	buildCmd.Flags().StringVar(&buildBounds, "bounds", "", "restrict input to S,N,W,E before building")
	buildCmd.Flags().IntVar(&buildLimit, "limit", 0, "cap the number of input records (0 = no cap)")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "also write the non-normative debug JSON form")
	buildCmd.Flags().Float64Var(&buildGridDeg, "grid-deg", 0, "tile grid size in degrees (0 = config/default)")
	buildCmd.Flags().Float64Var(&buildBufferDeg, "buffer-deg", 0, "tile buffer size in degrees (0 = config/default)")
	buildCmd.Flags().StringVar(&buildOutDir, "out", "tiles", "output directory")
	buildCmd.Flags().StringVar(&buildConfigPath, "config", "", "YAML build settings file (overrides defaults)")
}

func runBuild(cmd *cobra.Command, args []string) {
	if buildInputPath == "" {
		die("build", fmt.Errorf("--input is required"))
	}

	settings := config.DefaultSettings()
	if buildConfigPath != "" {
		loaded, err := config.Load(buildConfigPath)
		if err != nil {
			die("build: load config", err)
		}
		settings = loaded
	}
	if buildGridDeg > 0 {
		settings.GridDeg = buildGridDeg
	}
	if buildBufferDeg > 0 {
		settings.BufferDeg = buildBufferDeg
	}

	f, err := os.Open(buildInputPath)
	if err != nil {
		die("build: open input", err)
	}
	defer f.Close()

	recs, skipped, err := records.Read(f)
	if err != nil {
		die("build: read input", err)
	}
	log := buildlog.New()
	log.Log(buildlog.Progress, "read %d records, skipped %d invalid (0,0) rows", len(recs), skipped)

	if buildBounds != "" {
		b, err := parseBounds(buildBounds)
		if err != nil {
			die("build: parse bounds", err)
		}
		recs = records.Filter(recs, b)
	}
	if buildLimit > 0 {
		recs = records.Limit(recs, buildLimit)
	}

	outDir := buildOutDir + "/" + buildLang

	if buildTiled {
		runTiledBuild(recs, settings, outDir, log)
		return
	}
	runMonolithicBuild(recs, settings, outDir, log)
}

func parseBounds(s string) (records.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return records.Bounds{}, fmt.Errorf("--bounds wants S,N,W,E, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return records.Bounds{}, fmt.Errorf("--bounds: invalid number %q: %w", p, err)
		}
		vals[i] = v
	}
	return records.Bounds{South: vals[0], North: vals[1], West: vals[2], East: vals[3]}, nil
}

func runTiledBuild(recs []records.Record, settings config.BuildSettings, outDir string, log *buildlog.Context) {
	res, err := tiler.Build(context.Background(), recs, settings, buildTimestamp(), log)
	if err != nil {
		die("build: tiled", err)
	}
	if err := tiler.WriteFiles(res, outDir); err != nil {
		die("build: write tiles", err)
	}
	fmt.Printf("wrote %d tiles to %s\n", len(res.Manifest.Tiles), outDir)
}

func runMonolithicBuild(recs []records.Record, settings config.BuildSettings, outDir string, log *buildlog.Context) {
	pts := make([]sphere.Point, len(recs))
	titles := make([]string, len(recs))
	for i, r := range recs {
		pts[i] = sphere.ToCartesian(sphere.LatLon{Lat: r.Lat, Lon: r.Lon})
		titles[i] = r.Title
	}

	log.StartTimer("hull")
	h, err := hull.BuildWithSeed(pts, settings.PerturbSeed)
	log.StopTimer("hull")
	if err != nil {
		die("build: hull", err)
	}

	log.StartTimer("extract")
	mesh, err := delaunay.Extract(h)
	log.StopTimer("extract")
	if err != nil {
		die("build: extract", err)
	}

	meshTitles := make([]string, len(mesh.Vertices))
	for i, orig := range mesh.OriginalIndices {
		meshTitles[i] = titles[orig]
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		die("build: mkdir", err)
	}
	encoded, err := meshbin.Encode(mesh, meshTitles)
	if err != nil {
		die("build: encode", err)
	}
	outPath := outDir + "/mesh.bin"
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		die("build: write", err)
	}
	fmt.Printf("wrote %s (%d vertices, %d triangles)\n", outPath, len(mesh.Vertices), len(mesh.Triangles))

	if buildJSON {
		debugBytes, err := meshbin.EncodeJSON(mesh, meshTitles)
		if err != nil {
			die("build: encode json", err)
		}
		jsonPath := outDir + "/mesh.json"
		if err := os.WriteFile(jsonPath, debugBytes, 0o644); err != nil {
			die("build: write json", err)
		}
		fmt.Printf("wrote %s\n", jsonPath)
	}
}

// buildTimestamp stamps the manifest's "generated" field. Factored into its
// own function so a future test harness can override it; production always
// calls it exactly once per build.
func buildTimestamp() time.Time { return time.Now().UTC() }
