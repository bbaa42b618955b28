package assets

import "unsafe"

// Vertex is the interleaved layout the cube shaders consume.
type Vertex struct {
	Pos   [3]float32
	Color [3]float32
	UV    [2]float32
}

const (
	VertexStride      = uint32(unsafe.Sizeof(Vertex{}))
	VertexPosOffset   = uint32(unsafe.Offsetof(Vertex{}.Pos))
	VertexColorOffset = uint32(unsafe.Offsetof(Vertex{}.Color))
	VertexUVOffset    = uint32(unsafe.Offsetof(Vertex{}.UV))
)

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBytes views the vertices as the raw bytes uploaded to the GPU.
func (m *Mesh) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*int(VertexStride))
}

type cubeFace struct {
	n, u, v [3]float32
	color   [3]float32
}

// u x v == n for every face, so corners walk counter clockwise seen from
// outside the cube.
var cubeFaces = []cubeFace{
	{n: [3]float32{1, 0, 0}, u: [3]float32{0, 1, 0}, v: [3]float32{0, 0, 1}, color: [3]float32{1, 0.3, 0.3}},
	{n: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}, color: [3]float32{0.3, 1, 1}},
	{n: [3]float32{0, 1, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{1, 0, 0}, color: [3]float32{0.3, 1, 0.3}},
	{n: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}, color: [3]float32{1, 0.3, 1}},
	{n: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}, color: [3]float32{0.3, 0.3, 1}},
	{n: [3]float32{0, 0, -1}, u: [3]float32{0, 1, 0}, v: [3]float32{1, 0, 0}, color: [3]float32{1, 1, 0.3}},
}

// Cube returns a unit cube centred on the origin with four vertices per
// face so every face gets the full texture.
func Cube() *Mesh {
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	m := &Mesh{
		Vertices: make([]Vertex, 0, 4*len(cubeFaces)),
		Indices:  make([]uint32, 0, 6*len(cubeFaces)),
	}
	for _, f := range cubeFaces {
		base := uint32(len(m.Vertices))
		for i, c := range corners {
			var pos [3]float32
			for k := 0; k < 3; k++ {
				pos[k] = 0.5 * (f.n[k] + c[0]*f.u[k] + c[1]*f.v[k])
			}
			m.Vertices = append(m.Vertices, Vertex{Pos: pos, Color: f.color, UV: uvs[i]})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return m
}
