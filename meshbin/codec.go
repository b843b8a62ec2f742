// Package meshbin implements the little-endian binary serialization format
// for a tile's spherical Delaunay mesh: a fixed header, float32 vertex
// positions, uint32 topology arrays, and a variable-length UTF-8 article
// titles section.
//
// Grounded on the teacher's detour.Decode/CreateNavMeshData: a magic-free
// fixed header read with encoding/binary, followed by bounds-checked
// variable sections.
package meshbin

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/chrissteinbach/geotiles/delaunay"
	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/sphere"
)

// MaxBufferBytes bounds the total size of a tile the decoder will accept,
// guarding against a corrupt or hostile length field triggering an
// unbounded allocation. 128 MiB matches the spec's default.
const MaxBufferBytes = 128 << 20

const headerSize = 16

type header struct {
	VertexCount    uint32
	TriangleCount  uint32
	ArticlesOffset uint32
	ArticlesLength uint32
}

// Encode serializes mesh and titles (one per vertex, in compact vertex
// index order) into the tile binary format.
func Encode(mesh *delaunay.SphericalDelaunay, titles []string) ([]byte, error) {
	v := len(mesh.Vertices)
	tcount := len(mesh.Triangles)
	if len(titles) != v {
		return nil, fmt.Errorf("meshbin: Encode: got %d titles for %d vertices", len(titles), v)
	}

	fixedBodySize := 12*v + 4*v + 12*tcount + 12*tcount
	articlesOffset := headerSize + fixedBodySize

	titleBytes := make([][]byte, v)
	articlesLength := 4 * v
	for i, title := range titles {
		b := []byte(title)
		titleBytes[i] = b
		articlesLength += len(b)
	}

	buf := new(bytes.Buffer)
	buf.Grow(articlesOffset + articlesLength)

	hdr := header{
		VertexCount:    uint32(v),
		TriangleCount:  uint32(tcount),
		ArticlesOffset: uint32(articlesOffset),
		ArticlesLength: uint32(articlesLength),
	}
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}

	for _, vert := range mesh.Vertices {
		coords := [3]float32{float32(vert.Point.X), float32(vert.Point.Y), float32(vert.Point.Z)}
		if err := binary.Write(buf, binary.LittleEndian, coords); err != nil {
			return nil, err
		}
	}
	for _, vert := range mesh.Vertices {
		if err := binary.Write(buf, binary.LittleEndian, uint32(vert.Triangle)); err != nil {
			return nil, err
		}
	}
	for _, tri := range mesh.Triangles {
		vs := [3]uint32{uint32(tri.Vertices[0]), uint32(tri.Vertices[1]), uint32(tri.Vertices[2])}
		if err := binary.Write(buf, binary.LittleEndian, vs); err != nil {
			return nil, err
		}
	}
	for _, tri := range mesh.Triangles {
		ns := [3]uint32{uint32(tri.Neighbors[0]), uint32(tri.Neighbors[1]), uint32(tri.Neighbors[2])}
		if err := binary.Write(buf, binary.LittleEndian, ns); err != nil {
			return nil, err
		}
	}

	for _, b := range titleBytes {
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(b))); err != nil {
			return nil, err
		}
	}
	for _, b := range titleBytes {
		buf.Write(b)
	}

	return buf.Bytes(), nil
}

// Decoded is a tile's mesh plus its per-vertex article titles, upcast from
// the on-disk float32 vertex positions to float64 for the query engine.
type Decoded struct {
	Mesh   *delaunay.SphericalDelaunay
	Titles []string
}

// Decode reads and validates a tile binary produced by Encode. It returns
// geoerr.ErrCorruptBinary (wrapped with the failing check) on any bounds or
// UTF-8 violation.
func Decode(r io.Reader) (*Decoded, error) {
	limited := io.LimitReader(r, MaxBufferBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("meshbin: Decode: read: %w", err)
	}
	if len(data) > MaxBufferBytes {
		return nil, fmt.Errorf("%w: tile exceeds %d bytes", geoerr.ErrCorruptBinary, MaxBufferBytes)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (*Decoded, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header too small (%d bytes)", geoerr.ErrCorruptBinary, len(data))
	}

	var hdr header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", geoerr.ErrCorruptBinary, err)
	}

	v := int(hdr.VertexCount)
	tcount := int(hdr.TriangleCount)
	fixedBodySize := 12*v + 4*v + 12*tcount + 12*tcount
	wantArticlesOffset := headerSize + fixedBodySize

	if int(hdr.ArticlesOffset) < wantArticlesOffset {
		return nil, fmt.Errorf("%w: articlesOffset %d precedes fixed body end %d", geoerr.ErrCorruptBinary, hdr.ArticlesOffset, wantArticlesOffset)
	}
	end := int64(hdr.ArticlesOffset) + int64(hdr.ArticlesLength)
	if end > int64(len(data)) {
		return nil, fmt.Errorf("%w: articles section [%d,%d) overruns file of length %d", geoerr.ErrCorruptBinary, hdr.ArticlesOffset, end, len(data))
	}

	r := bytes.NewReader(data[headerSize:])

	vertexPoints := make([]sphere.Point, v)
	for i := range vertexPoints {
		var coords [3]float32
		if err := binary.Read(r, binary.LittleEndian, &coords); err != nil {
			return nil, fmt.Errorf("%w: vertex %d: %v", geoerr.ErrCorruptBinary, i, err)
		}
		vertexPoints[i] = sphere.Point{X: float64(coords[0]), Y: float64(coords[1]), Z: float64(coords[2])}
	}

	vertexTriangle := make([]uint32, v)
	if err := binary.Read(r, binary.LittleEndian, &vertexTriangle); err != nil {
		return nil, fmt.Errorf("%w: vertexTriangles: %v", geoerr.ErrCorruptBinary, err)
	}

	triVerts := make([][3]uint32, tcount)
	for i := range triVerts {
		if err := binary.Read(r, binary.LittleEndian, &triVerts[i]); err != nil {
			return nil, fmt.Errorf("%w: triangleVertices %d: %v", geoerr.ErrCorruptBinary, i, err)
		}
	}
	triNeighbors := make([][3]uint32, tcount)
	for i := range triNeighbors {
		if err := binary.Read(r, binary.LittleEndian, &triNeighbors[i]); err != nil {
			return nil, fmt.Errorf("%w: triangleNeighbors %d: %v", geoerr.ErrCorruptBinary, i, err)
		}
	}

	articles := data[hdr.ArticlesOffset:end]
	if len(articles) < 4*v {
		return nil, fmt.Errorf("%w: articles section too small for %d title lengths", geoerr.ErrCorruptBinary, v)
	}
	lengths := make([]uint32, v)
	if err := binary.Read(bytes.NewReader(articles[:4*v]), binary.LittleEndian, &lengths); err != nil {
		return nil, fmt.Errorf("%w: titleByteLengths: %v", geoerr.ErrCorruptBinary, err)
	}
	titleBytes := articles[4*v:]
	var sum int64
	for _, l := range lengths {
		sum += int64(l)
	}
	if sum != int64(len(titleBytes)) {
		return nil, fmt.Errorf("%w: title lengths sum to %d, titles section has %d bytes", geoerr.ErrCorruptBinary, sum, len(titleBytes))
	}

	titles := make([]string, v)
	off := 0
	for i, l := range lengths {
		b := titleBytes[off : off+int(l)]
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: title %d is not valid UTF-8", geoerr.ErrCorruptBinary, i)
		}
		titles[i] = string(b)
		off += int(l)
	}

	vertices := make([]delaunay.Vertex, v)
	for i := range vertices {
		vertices[i] = delaunay.Vertex{Point: vertexPoints[i], Triangle: int32(vertexTriangle[i])}
	}
	triangles := make([]delaunay.Triangle, tcount)
	originalIndices := make([]int, v)
	for i := range originalIndices {
		originalIndices[i] = i
	}
	for i := range triangles {
		triangles[i] = delaunay.Triangle{
			Vertices:  [3]int32{int32(triVerts[i][0]), int32(triVerts[i][1]), int32(triVerts[i][2])},
			Neighbors: [3]int32{int32(triNeighbors[i][0]), int32(triNeighbors[i][1]), int32(triNeighbors[i][2])},
		}
	}

	return &Decoded{
		Mesh: &delaunay.SphericalDelaunay{
			Vertices:        vertices,
			Triangles:       triangles,
			OriginalIndices: originalIndices,
		},
		Titles: titles,
	}, nil
}

// debugJSON is the non-normative debug form of a tile (§4.6): identical
// semantics, 8-decimal-truncated floats, written by `geotiles convert` and
// `geotiles build --json`; nothing in this module reads it back.
type debugJSON struct {
	Vertices  []debugVertex   `json:"vertices"`
	Triangles []debugTriangle `json:"triangles"`
	Titles    []string        `json:"titles"`
}

type debugVertex struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Triangle int32   `json:"triangle"`
}

type debugTriangle struct {
	Vertices  [3]int32 `json:"vertices"`
	Neighbors [3]int32 `json:"neighbors"`
}

func truncate8(f float64) float64 {
	const scale = 1e8
	return float64(int64(f*scale)) / scale
}

// EncodeJSON renders the same mesh+titles as the non-normative debug JSON
// form, with coordinates truncated to 8 decimal places.
func EncodeJSON(mesh *delaunay.SphericalDelaunay, titles []string) ([]byte, error) {
	d := debugJSON{Titles: titles}
	for _, v := range mesh.Vertices {
		d.Vertices = append(d.Vertices, debugVertex{
			X: truncate8(v.Point.X), Y: truncate8(v.Point.Y), Z: truncate8(v.Point.Z),
			Triangle: v.Triangle,
		})
	}
	for _, tr := range mesh.Triangles {
		d.Triangles = append(d.Triangles, debugTriangle{Vertices: tr.Vertices, Neighbors: tr.Neighbors})
	}
	return json.MarshalIndent(d, "", "  ")
}
