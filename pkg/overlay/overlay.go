// Package overlay draws detection annotations onto frames.
//
// The renderer performs no staleness check: callers are expected to
// have already discarded detection sets for superseded frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// Two fixed visual classes: helmet and no helmet.
var (
	helmetColor   = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	noHelmetColor = color.RGBA{R: 220, G: 30, B: 30, A: 0}
)

const (
	boxThickness = 2
	fontScale    = 0.55
	fontFace     = gocv.FontHersheySimplex
)

// Label returns the annotation text for one detection, with the
// confidence rounded to an integer percentage.
func Label(d detect.Detection) string {
	pct := int(math.Round(d.Confidence * 100))
	if d.HasHelmet {
		return fmt.Sprintf("helmet %d%%", pct)
	}
	return fmt.Sprintf("no helmet %d%%", pct)
}

// classColor returns the box color for a detection.
func classColor(d detect.Detection) color.RGBA {
	if d.HasHelmet {
		return helmetColor
	}
	return noHelmetColor
}

// RenderOverlay draws only the annotation layer onto an already-drawn
// image. Used in live mode where the raw frame has been pushed to the
// display before dispatch.
func RenderOverlay(img *gocv.Mat, dets []detect.Detection) error {
	for _, d := range dets {
		c := classColor(d)
		if err := gocv.Rectangle(img, d.Box, c, boxThickness); err != nil {
			return fmt.Errorf("overlay: draw box: %w", err)
		}

		// Label above the box, clamped inside the image.
		pt := image.Pt(d.Box.Min.X, d.Box.Min.Y-6)
		if pt.Y < 14 {
			pt.Y = d.Box.Min.Y + 16
		}
		if err := gocv.PutText(img, Label(d), pt, fontFace, fontScale, c, boxThickness); err != nil {
			return fmt.Errorf("overlay: draw label: %w", err)
		}
	}
	return nil
}

// RenderStatic draws the full frame plus its overlay and returns the
// annotated frame JPEG-encoded. The drawing surface is allocated at
// the frame's own dimensions; it is never resized mid-draw.
func RenderStatic(frame source.Frame, dets []detect.Detection) ([]byte, error) {
	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("overlay: decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("overlay: decode frame: empty image")
	}

	if err := RenderOverlay(&img, dets); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("overlay: encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
