// Package formats provides decoders for keyframe model files and their
// action descriptors.
// MD2 (Quake II model) format parser for per-vertex keyframe animation.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// MD2 format errors.
var (
	ErrInvalidMD2Magic       = errors.New("invalid MD2 magic: expected 'IDP2'")
	ErrUnsupportedMD2Version = errors.New("unsupported MD2 version")
	ErrTruncatedMD2Data      = errors.New("truncated MD2 data")
	ErrInvalidMD2Count       = errors.New("invalid MD2 count")
	ErrMD2LimitExceeded      = errors.New("MD2 capacity exceeded")
)

// MD2 format constants.
const (
	MD2Magic   = "IDP2"
	MD2Version = 8

	MD2MaxSkins     = 32
	MD2MaxVertices  = 2048
	MD2MaxTexCoords = 2048
	MD2MaxTriangles = 4096
	MD2MaxFrames    = 512
	MD2MaxNormals   = 162

	md2HeaderSize    = 68
	md2SkinNameSize  = 64
	md2FrameNameSize = 16
	md2TexCoordSize  = 4
	md2TriangleSize  = 12
	md2VertexSize    = 4
	md2FrameHeadSize = 40
)

// MD2Header is the fixed-size file header.
type MD2Header struct {
	Ident      [4]byte
	Version    int32
	SkinWidth  int32
	SkinHeight int32
	FrameSize  int32

	NumSkins      int32
	NumVertices   int32
	NumTexCoords  int32
	NumTriangles  int32
	NumGLCommands int32
	NumFrames     int32

	OffsetSkins      int32
	OffsetTexCoords  int32
	OffsetTriangles  int32
	OffsetFrames     int32
	OffsetGLCommands int32
	OffsetEnd        int32
}

// MD2TexCoord is a texture coordinate in skin pixels.
type MD2TexCoord struct {
	S, T int16
}

// MD2Triangle references three vertices and three texture coordinates.
type MD2Triangle struct {
	VertexIDs   [3]int16 // Indices into frame vertex arrays
	TexCoordIDs [3]int16 // Indices into MD2.TexCoords
}

// MD2Vertex is a compressed vertex position plus a normal table index.
type MD2Vertex struct {
	Position    [3]uint8
	NormalIndex uint8
}

// MD2Frame is one keyframe pose.
type MD2Frame struct {
	Scale     [3]float32
	Translate [3]float32
	Name      string
	Vertices  []MD2Vertex
}

// Position decompresses vertex i. Storage axes 1 and 2 are swapped so the
// result is Y-up.
func (f *MD2Frame) Position(i int) [3]float32 {
	p := f.Vertices[i].Position
	return [3]float32{
		f.Scale[0]*float32(p[0]) + f.Translate[0],
		f.Scale[2]*float32(p[2]) + f.Translate[2],
		f.Scale[1]*float32(p[1]) + f.Translate[1],
	}
}

// MD2 represents a parsed MD2 model. It is read-only after parsing.
type MD2 struct {
	Header    MD2Header
	Skins     []string
	TexCoords []MD2TexCoord
	Triangles []MD2Triangle
	Frames    []MD2Frame

	frameIndex map[string]int
}

// md2FrameHead is the on-disk prefix of every frame record.
type md2FrameHead struct {
	Scale     [3]float32
	Translate [3]float32
	Name      [md2FrameNameSize]byte
}

// ParseMD2 parses MD2 data from a byte slice.
func ParseMD2(data []byte) (*MD2, error) {
	if len(data) < md2HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedMD2Data, md2HeaderSize, len(data))
	}

	r := bytes.NewReader(data)

	var h MD2Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, ErrTruncatedMD2Data
	}
	if string(h.Ident[:]) != MD2Magic {
		return nil, ErrInvalidMD2Magic
	}
	if h.Version != MD2Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMD2Version, h.Version)
	}
	if err := checkMD2Counts(&h); err != nil {
		return nil, err
	}

	m := &MD2{
		Header:     h,
		frameIndex: make(map[string]int, h.NumFrames),
	}

	// Skins
	if err := checkSection(data, "skins", h.OffsetSkins, int(h.NumSkins)*md2SkinNameSize); err != nil {
		return nil, err
	}
	r.Seek(int64(h.OffsetSkins), 0)
	m.Skins = make([]string, h.NumSkins)
	for i := range m.Skins {
		m.Skins[i] = readString(r, md2SkinNameSize)
	}

	// Texture coordinates
	if err := checkSection(data, "texcoords", h.OffsetTexCoords, int(h.NumTexCoords)*md2TexCoordSize); err != nil {
		return nil, err
	}
	r.Seek(int64(h.OffsetTexCoords), 0)
	m.TexCoords = make([]MD2TexCoord, h.NumTexCoords)
	if err := binary.Read(r, binary.LittleEndian, m.TexCoords); err != nil {
		return nil, fmt.Errorf("%w: texcoords", ErrTruncatedMD2Data)
	}

	// Triangles
	if err := checkSection(data, "triangles", h.OffsetTriangles, int(h.NumTriangles)*md2TriangleSize); err != nil {
		return nil, err
	}
	r.Seek(int64(h.OffsetTriangles), 0)
	m.Triangles = make([]MD2Triangle, h.NumTriangles)
	if err := binary.Read(r, binary.LittleEndian, m.Triangles); err != nil {
		return nil, fmt.Errorf("%w: triangles", ErrTruncatedMD2Data)
	}

	// Frames are packed back to back; frameSize in the header is not trusted.
	frameBytes := md2FrameHeadSize + int(h.NumVertices)*md2VertexSize
	if err := checkSection(data, "frames", h.OffsetFrames, int(h.NumFrames)*frameBytes); err != nil {
		return nil, err
	}
	r.Seek(int64(h.OffsetFrames), 0)
	m.Frames = make([]MD2Frame, h.NumFrames)
	for i := range m.Frames {
		if err := parseMD2Frame(r, &m.Frames[i], int(h.NumVertices)); err != nil {
			return nil, fmt.Errorf("parsing frame %d: %w", i, err)
		}
		m.frameIndex[m.Frames[i].Name] = i
	}

	return m, nil
}

// ParseMD2File parses an MD2 file from disk.
func ParseMD2File(path string) (*MD2, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MD2 file: %w", err)
	}
	return ParseMD2(data)
}

func parseMD2Frame(r *bytes.Reader, f *MD2Frame, numVertices int) error {
	var head md2FrameHead
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return ErrTruncatedMD2Data
	}
	f.Scale = head.Scale
	f.Translate = head.Translate
	f.Name = cString(head.Name[:])

	f.Vertices = make([]MD2Vertex, numVertices)
	if err := binary.Read(r, binary.LittleEndian, f.Vertices); err != nil {
		return ErrTruncatedMD2Data
	}
	return nil
}

func checkMD2Counts(h *MD2Header) error {
	counts := []struct {
		name  string
		value int32
		limit int32
	}{
		{"skins", h.NumSkins, MD2MaxSkins},
		{"vertices", h.NumVertices, MD2MaxVertices},
		{"texcoords", h.NumTexCoords, MD2MaxTexCoords},
		{"triangles", h.NumTriangles, MD2MaxTriangles},
		{"frames", h.NumFrames, MD2MaxFrames},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%w: %s %d", ErrInvalidMD2Count, c.name, c.value)
		}
		if c.value > c.limit {
			return fmt.Errorf("%w: %s %d > %d", ErrMD2LimitExceeded, c.name, c.value, c.limit)
		}
	}
	return nil
}

func checkSection(data []byte, name string, offset int32, size int) error {
	if size == 0 {
		return nil
	}
	if offset < 0 || int(offset)+size > len(data) {
		return fmt.Errorf("%w: %s section at %d needs %d bytes, have %d", ErrTruncatedMD2Data, name, offset, size, len(data))
	}
	return nil
}

// readString reads a fixed-size NUL-padded string.
func readString(r *bytes.Reader, length int) string {
	buf := make([]byte, length)
	r.Read(buf)
	return cString(buf)
}

func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// FindFrame returns the index of the frame with the given name, or -1.
// When names repeat the last frame wins.
func (m *MD2) FindFrame(name string) int {
	if i, ok := m.frameIndex[name]; ok {
		return i
	}
	return -1
}

// NumFrames returns the frame count.
func (m *MD2) NumFrames() int {
	return len(m.Frames)
}

// NumVertices returns the per-frame vertex count.
func (m *MD2) NumVertices() int {
	return int(m.Header.NumVertices)
}

// SkinSize returns the skin dimensions declared in the header.
func (m *MD2) SkinSize() (int, int) {
	return int(m.Header.SkinWidth), int(m.Header.SkinHeight)
}

// EncodeMD2 serializes m. Offsets and counts in the header are recomputed from
// the slices; the GL command section is left empty.
func EncodeMD2(m *MD2) ([]byte, error) {
	numVertices := int32(0)
	if len(m.Frames) > 0 {
		numVertices = int32(len(m.Frames[0].Vertices))
	}
	for i := range m.Frames {
		if int32(len(m.Frames[i].Vertices)) != numVertices {
			return nil, fmt.Errorf("%w: frame %d has %d vertices, want %d",
				ErrInvalidMD2Count, i, len(m.Frames[i].Vertices), numVertices)
		}
		if len(m.Frames[i].Name) >= md2FrameNameSize {
			return nil, fmt.Errorf("frame %d name %q longer than %d bytes", i, m.Frames[i].Name, md2FrameNameSize-1)
		}
	}

	h := m.Header
	copy(h.Ident[:], MD2Magic)
	h.Version = MD2Version
	h.NumSkins = int32(len(m.Skins))
	h.NumVertices = numVertices
	h.NumTexCoords = int32(len(m.TexCoords))
	h.NumTriangles = int32(len(m.Triangles))
	h.NumGLCommands = 0
	h.NumFrames = int32(len(m.Frames))
	h.FrameSize = md2FrameHeadSize + numVertices*md2VertexSize
	if err := checkMD2Counts(&h); err != nil {
		return nil, err
	}

	h.OffsetSkins = md2HeaderSize
	h.OffsetTexCoords = h.OffsetSkins + h.NumSkins*md2SkinNameSize
	h.OffsetTriangles = h.OffsetTexCoords + h.NumTexCoords*md2TexCoordSize
	h.OffsetFrames = h.OffsetTriangles + h.NumTriangles*md2TriangleSize
	h.OffsetGLCommands = h.OffsetFrames + h.NumFrames*h.FrameSize
	h.OffsetEnd = h.OffsetGLCommands

	var buf bytes.Buffer
	buf.Grow(int(h.OffsetEnd))
	binary.Write(&buf, binary.LittleEndian, &h)

	for _, skin := range m.Skins {
		var name [md2SkinNameSize]byte
		copy(name[:md2SkinNameSize-1], skin)
		buf.Write(name[:])
	}
	binary.Write(&buf, binary.LittleEndian, m.TexCoords)
	binary.Write(&buf, binary.LittleEndian, m.Triangles)
	for i := range m.Frames {
		f := &m.Frames[i]
		head := md2FrameHead{Scale: f.Scale, Translate: f.Translate}
		copy(head.Name[:], f.Name)
		binary.Write(&buf, binary.LittleEndian, &head)
		binary.Write(&buf, binary.LittleEndian, f.Vertices)
	}

	return buf.Bytes(), nil
}
