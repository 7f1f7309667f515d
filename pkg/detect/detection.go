// Package detect talks to the helmet-detection backend and owns the
// dispatch policy for live sampling: at most one request in flight,
// newer frames dropped while one is outstanding.
package detect

import (
	"image"
)

// Detection is one detected rider, immutable once received.
type Detection struct {
	// Box is the bounding box in source-pixel coordinates.
	Box image.Rectangle

	// HasHelmet reports whether the rider is wearing a helmet.
	HasHelmet bool

	// OnMotorcycle reports whether the rider overlaps a detected
	// motorcycle. Riders off a motorcycle are still reported when the
	// backend found no motorcycles at all.
	OnMotorcycle bool

	// Confidence is the detector confidence in [0, 1].
	Confidence float64
}

// DetectionSet is the ordered list of detections for one frame,
// tagged with the sequence number of the frame that produced it so
// consumers can discard results for frames that have since been
// superseded.
type DetectionSet struct {
	FrameSeq   uint64
	Detections []Detection
}

// wireDetection is the backend's JSON shape for one detection.
type wireDetection struct {
	BBox         []float64 `json:"bbox"` // [x, y, width, height]
	Confidence   float64   `json:"confidence"`
	Class        int       `json:"class"`
	HasHelmet    bool      `json:"has_helmet"`
	OnMotorcycle bool      `json:"on_motorcycle"`
}

// wireResponse is the backend's JSON response body.
type wireResponse struct {
	Detections []wireDetection `json:"detections"`
	Count      int             `json:"count"`
}

// toDetection converts a wire detection to the domain type.
func (w wireDetection) toDetection() (Detection, bool) {
	if len(w.BBox) != 4 {
		return Detection{}, false
	}
	x, y := int(w.BBox[0]), int(w.BBox[1])
	width, height := int(w.BBox[2]), int(w.BBox[3])
	return Detection{
		Box:          image.Rect(x, y, x+width, y+height),
		HasHelmet:    w.HasHelmet,
		OnMotorcycle: w.OnMotorcycle,
		Confidence:   w.Confidence,
	}, true
}
