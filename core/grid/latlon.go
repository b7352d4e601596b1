package grid

import "github.com/kilianp07/cityguard/core/model"

// LatLonToGrid projects a geographic coordinate onto a width x height grid.
// Latitude grows northwards while grid rows grow downwards, so the y axis is
// flipped. Inputs outside the valid ranges are clamped.
func LatLonToGrid(c model.LatLon, width, height int) model.Position {
	lat := clampFloat(c.Lat, -90, 90)
	lon := clampFloat(c.Lon, -180, 180)
	latNorm := (lat + 90) / 180
	lonNorm := (lon + 180) / 360
	x := int(lonNorm * float64(width-1))
	y := int((1 - latNorm) * float64(height-1))
	return model.Position{X: clampInt(x, 0, width-1), Y: clampInt(y, 0, height-1)}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
