package atoms

import (
	"fmt"
	"math"

	"github.com/petrichorcode/pysic/internal/core"
)

// Cell holds the three lattice vectors as rows.
type Cell [3]Vec3

// Orthorhombic returns a cell with the given edge lengths along x, y and z.
func Orthorhombic(a, b, c float64) Cell {
	return Cell{{a, 0, 0}, {0, b, 0}, {0, 0, c}}
}

// Volume is the absolute triple product of the lattice vectors.
func (c Cell) Volume() float64 {
	return math.Abs(c[0].Dot(c[1].Cross(c[2])))
}

// Thickness is the distance between the two lattice planes spanned by the
// other two vectors, i.e. the projection of vector axis onto their normal.
func (c Cell) Thickness(axis int) float64 {
	v := c[axis]
	normal := c[(axis+1)%3].Cross(c[(axis+2)%3])
	n := normal.Norm()
	if n == 0 {
		return 0
	}
	return math.Abs(v.Dot(normal)) / n
}

// Inverse returns the matrix inverse, with the lattice vectors as rows of c,
// so that scaled = position · inverse.
func (c Cell) Inverse() (Cell, error) {
	det := c[0].Dot(c[1].Cross(c[2]))
	if det == 0 || math.IsNaN(det) {
		return Cell{}, fmt.Errorf("%w: singular cell", core.ErrInvalidParameters)
	}
	// columns of the inverse are the reciprocal vectors divided by det
	r0 := c[1].Cross(c[2]).Scale(1 / det)
	r1 := c[2].Cross(c[0]).Scale(1 / det)
	r2 := c[0].Cross(c[1]).Scale(1 / det)
	return Cell{
		{r0[0], r1[0], r2[0]},
		{r0[1], r1[1], r2[1]},
		{r0[2], r1[2], r2[2]},
	}, nil
}

// Reciprocal returns the reciprocal lattice vectors without the 2π factor.
func (c Cell) Reciprocal() (Cell, error) {
	inv, err := c.Inverse()
	if err != nil {
		return Cell{}, err
	}
	return inv.Transpose(), nil
}

func (c Cell) Transpose() Cell {
	var t Cell
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = c[j][i]
		}
	}
	return t
}

// Scaled converts a cartesian position into fractional coordinates given the
// inverse cell.
func Scaled(p Vec3, inv Cell) Vec3 {
	var s Vec3
	for j := 0; j < 3; j++ {
		s[j] = p[0]*inv[0][j] + p[1]*inv[1][j] + p[2]*inv[2][j]
	}
	return s
}

// Cartesian converts fractional coordinates back into a cartesian position.
func (c Cell) Cartesian(s Vec3) Vec3 {
	return c[0].Scale(s[0]).Add(c[1].Scale(s[1])).Add(c[2].Scale(s[2]))
}

// Translation is the cartesian vector of the integer lattice shift n.
func (c Cell) Translation(n [3]int) Vec3 {
	return c.Cartesian(Vec3{float64(n[0]), float64(n[1]), float64(n[2])})
}
