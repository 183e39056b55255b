package pose

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// DrawingSpec is the visual style for landmarks or connections.
type DrawingSpec struct {
	Color        color.RGBA
	Thickness    int
	CircleRadius int
}

// DefaultLandmarkSpec draws keypoints as red dots.
func DefaultLandmarkSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 255, A: 255}, Thickness: 2, CircleRadius: 2}
}

// DefaultConnectionSpec draws skeleton edges as magenta lines.
func DefaultConnectionSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 255, B: 255, A: 255}, Thickness: 2, CircleRadius: 2}
}

// Overlay draws a pose onto a BGR frame.
type Overlay struct {
	Connections   []Connection
	Landmark      DrawingSpec
	Connection    DrawingSpec
	MinVisibility float64
}

// DefaultOverlay returns the COCO skeleton with the default styles.
func DefaultOverlay() Overlay {
	return Overlay{
		Connections:   Connections,
		Landmark:      DefaultLandmarkSpec(),
		Connection:    DefaultConnectionSpec(),
		MinVisibility: DefaultVisibility,
	}
}

// Draw renders connections, then landmarks on top. A nil pose draws nothing.
// Returns the number of landmarks drawn.
func (o Overlay) Draw(img *gocv.Mat, p *Pose) int {
	if p == nil || img.Empty() {
		return 0
	}

	cols, rows := img.Cols(), img.Rows()
	points := make(map[int]image.Point, len(p.Landmarks))
	for i := range p.Landmarks {
		lm, ok := p.Landmark(i, o.MinVisibility)
		if !ok {
			continue
		}
		if pt, ok := toPixel(lm, cols, rows); ok {
			points[i] = pt
		}
	}

	for _, c := range o.Connections {
		from, okFrom := points[c.From]
		to, okTo := points[c.To]
		if !okFrom || !okTo {
			continue
		}
		gocv.Line(img, from, to, o.Connection.Color, o.Connection.Thickness)
	}

	for _, pt := range points {
		gocv.Circle(img, pt, o.Landmark.CircleRadius, o.Landmark.Color, o.Landmark.Thickness)
	}

	return len(points)
}

// toPixel converts a normalized landmark to pixel coordinates.
// Landmarks outside the frame are not drawable.
func toPixel(lm Landmark, cols, rows int) (image.Point, bool) {
	if lm.X < 0 || lm.X > 1 || lm.Y < 0 || lm.Y > 1 {
		return image.Point{}, false
	}
	x := min(int(lm.X*float64(cols)), cols-1)
	y := min(int(lm.Y*float64(rows)), rows-1)
	return image.Pt(x, y), true
}
