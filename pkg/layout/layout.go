package layout

import (
	"fmt"
	"math"
)

// Rect is a bounding box in page coordinates with the origin at the
// top-left corner, so Y grows down the page.
type Rect struct {
	X0 float64 `json:"x0"` // left
	Y0 float64 `json:"y0"` // top
	X1 float64 `json:"x1"` // right
	Y1 float64 `json:"y1"` // bottom
}

// Fragment is a run of extracted text and the box it occupies on a page
type Fragment struct {
	Text string `json:"text"`
	BBox Rect   `json:"bbox"`
}

// Width returns the horizontal extent of the rectangle
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle encloses no area
func (r Rect) Empty() bool {
	return r.X0 >= r.X1 || r.Y0 >= r.Y1
}

// Intersects reports whether r and o share a region of non-zero area.
// Rectangles that only touch along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return math.Max(r.X0, o.X0) < math.Min(r.X1, o.X1) &&
		math.Max(r.Y0, o.Y0) < math.Min(r.Y1, o.Y1)
}

// Contains reports whether the point (x, y) lies inside r
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Center returns the midpoint of the rectangle
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Union returns the smallest rectangle covering both r and o
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X0, r.Y0, r.X1, r.Y1)
}

// RowKey is the integer row a fragment belongs to: its top edge rounded down.
func (f Fragment) RowKey() int {
	return int(math.Floor(f.BBox.Y0))
}
