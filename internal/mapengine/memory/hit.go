package memory

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// hit reports whether geom, drawn as a layer of type layerType, is under p.
// Fill layers test containment; line layers test distance within tol degrees.
func hit(layerType string, geom orb.Geometry, p orb.Point, tol float64) bool {
	if layerType == "fill" {
		if !geom.Bound().Contains(p) {
			return false
		}
		return containsPoint(geom, p)
	}

	if !geom.Bound().Pad(tol).Contains(p) {
		return false
	}
	return planar.DistanceFrom(geom, p) <= tol
}

func containsPoint(geom orb.Geometry, p orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Collection:
		for _, sub := range g {
			if containsPoint(sub, p) {
				return true
			}
		}
	}
	return false
}
