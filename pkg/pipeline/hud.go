package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posecam/pkg/ergonomics"
)

const (
	hudFont      = gocv.FontHersheySimplex
	hudScale     = 0.6
	hudThickness = 2
	hudLineGap   = 24
)

var hudText = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// drawHUD writes FPS and, when scored, the REBA and RULA levels in the top-left corner.
func drawHUD(img *gocv.Mat, fps float64, a ergonomics.Assessment, scored bool) {
	y := hudLineGap
	put := func(text string, c color.RGBA) {
		gocv.PutText(img, text, image.Pt(10, y), hudFont, hudScale, c, hudThickness)
		y += hudLineGap
	}

	put(fmt.Sprintf("FPS: %.1f", fps), hudText)
	if !scored {
		return
	}
	put(scoreLine("REBA", a.REBA), a.REBA.Risk.Color())
	put(scoreLine("RULA", a.RULA), a.RULA.Risk.Color())
}

func scoreLine(name string, s ergonomics.Score) string {
	if s.Risk == ergonomics.RiskNA {
		return name + ": N/A"
	}
	return fmt.Sprintf("%s: %d (%s)", name, s.Score, s.Risk)
}
