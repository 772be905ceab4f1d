package viz

import (
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
)

// Camera is an orthographic view of a cell, rotated about its center.
type Camera struct {
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.35, RotY: -0.5, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) Reset() { *c = *NewCamera() }

func (c *Camera) rotate(p atoms.Vec3) atoms.Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p[1], p[2] = p[1]*cx-p[2]*sx, p[1]*sx+p[2]*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p[0], p[2] = p[0]*cy+p[2]*sy, -p[0]*sy+p[2]*cy
	return p
}

// view maps world points into a canvas so that a sphere around the cell
// fits the shorter side at zoom 1.
type view struct {
	cam    *Camera
	center atoms.Vec3
	scale  float64
	w, h   int
}

func (c *Camera) view(cell atoms.Cell, w, h int) view {
	var diag atoms.Vec3
	for _, v := range cell {
		diag = diag.Add(v)
	}
	radius := diag.Norm() / 2
	if radius == 0 {
		radius = 1
	}
	return view{
		cam:    c,
		center: diag.Scale(0.5),
		scale:  c.Zoom * float64(min(w, h)) / (2 * radius),
		w:      w,
		h:      h,
	}
}

func (v view) project(p atoms.Vec3) (int, int) {
	r := v.cam.rotate(p.Sub(v.center))
	x := int(math.Round(r[0]*v.scale)) + v.w/2
	y := int(math.Round(-r[1]*v.scale)) + v.h/2
	return x, y
}

// cellEdges lists the twelve edges of the cell as corner index pairs, with
// corner k at Σ_i bit_i(k)·a_i.
var cellEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Render draws the cell outline and every atom wrapped into the cell.
func (c *Camera) Render(cv *Canvas, st *atoms.Structure) {
	cv.Clear()
	if st == nil {
		return
	}
	w, h := cv.Dots()
	v := c.view(st.Cell, w, h)

	var corners [8]atoms.Vec3
	for k := range corners {
		for i := range 3 {
			if k&(1<<i) != 0 {
				corners[k] = corners[k].Add(st.Cell[i])
			}
		}
	}
	for _, e := range cellEdges {
		x0, y0 := v.project(corners[e[0]])
		x1, y1 := v.project(corners[e[1]])
		cv.DrawLine(x0, y0, x1, y1)
	}

	inv, err := st.Cell.Inverse()
	for _, a := range st.Atoms {
		p := a.Position
		if err == nil {
			p = wrap(p, st.Cell, inv, st.PBC)
		}
		x, y := v.project(p)
		cv.Blob(x, y)
	}
}

func wrap(p atoms.Vec3, cell, inv atoms.Cell, pbc [3]bool) atoms.Vec3 {
	s := atoms.Scaled(p, inv)
	for i := range 3 {
		if pbc[i] {
			s[i] -= math.Floor(s[i])
		}
	}
	return cell.Cartesian(s)
}
