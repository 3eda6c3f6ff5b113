package track

import "github.com/openmic-labs/stagecut/internal/stage"

// FilterDetections drops detections that do not look like a full standing
// person: low detector confidence, tiny or oddly proportioned boxes, too few
// confident keypoints, keypoints bunched into a corner of the box, or a
// centroid down in the audience area. Partial bodies at the frame edge fail
// the keypoint checks and are rejected rather than tracked.
func FilterDetections(dets []stage.Detection, cfg Config) []stage.Detection {
	out := dets[:0:0]
	for _, d := range dets {
		if detectionOK(d, cfg) {
			out = append(out, d)
		}
	}
	return out
}

func detectionOK(d stage.Detection, cfg Config) bool {
	if d.Confidence < cfg.MinDetectionConfidence {
		return false
	}
	if d.Box.Area() < cfg.MinBoxAreaFraction {
		return false
	}
	ar := d.Box.AspectRatio()
	if ar < cfg.MinAspectRatio || ar > cfg.MaxAspectRatio {
		return false
	}
	if d.Box.Center().Y > 1-cfg.AudienceZoneFraction {
		return false
	}

	visible := 0
	minX, minY := 1.0, 1.0
	maxX, maxY := 0.0, 0.0
	for _, kp := range d.Keypoints {
		if kp.Confidence <= cfg.KeypointConfidence {
			continue
		}
		visible++
		if kp.X < minX {
			minX = kp.X
		}
		if kp.X > maxX {
			maxX = kp.X
		}
		if kp.Y < minY {
			minY = kp.Y
		}
		if kp.Y > maxY {
			maxY = kp.Y
		}
	}
	if visible < cfg.MinVisibleKeypoints {
		return false
	}

	// Confident keypoints must cover a reasonable share of the box and
	// span most of its height; a head-and-shoulders sliver fails both.
	boxArea := d.Box.Area()
	if boxArea > 0 {
		kpArea := (maxX - minX) * (maxY - minY)
		if kpArea/boxArea < cfg.MinKeypointCoverage {
			return false
		}
	}
	if h := d.Box.Height(); h > 0 {
		if (maxY-minY)/h < cfg.MinVerticalSpan {
			return false
		}
	}
	return true
}

// SelectPrimary keeps only the largest detection, used in single-performer
// mode where exactly one person is expected on stage.
func SelectPrimary(dets []stage.Detection) []stage.Detection {
	if len(dets) <= 1 {
		return dets
	}
	best := 0
	for i := 1; i < len(dets); i++ {
		if dets[i].Box.Area() > dets[best].Box.Area() {
			best = i
		}
	}
	return dets[best : best+1]
}

// Visibility returns the mean keypoint confidence, the appearance signal's
// notion of how clearly the person is seen.
func Visibility(d stage.Detection) float64 {
	if len(d.Keypoints) == 0 {
		return d.Confidence
	}
	var sum float64
	for _, kp := range d.Keypoints {
		sum += kp.Confidence
	}
	return sum / float64(len(d.Keypoints))
}
