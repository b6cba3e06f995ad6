// Package priority picks the single feature a pointer event refers to when
// several interactive layers overlap under one screen point.
package priority

import (
	"slices"

	"github.com/joeblew999/plat-roadless/internal/mapengine"
)

// Order lists layer IDs from lowest to highest precedence.
type Order []string

// Default is the precedence of the interactive layers.
var Default = Order{
	"district-fill",
	"district-line",
	"roadless-fill",
	"trails-line",
	"pct-line",
}

// Rank returns the index of layerID in the order, or -1 when it is not listed.
func (o Order) Rank(layerID string) int {
	return slices.Index(o, layerID)
}

// UnlistedPolicy decides what happens to features from layers missing in the order.
type UnlistedPolicy int

const (
	// IncludeUnlisted ranks unlisted layers below every listed one. Such a
	// feature is returned only when no listed feature is under the point.
	IncludeUnlisted UnlistedPolicy = iota
	// ExcludeUnlisted ignores unlisted layers entirely.
	ExcludeUnlisted
)

// Resolve returns the feature with the highest rank. Ties keep the feature
// that came first in features. It reports false when nothing qualifies.
func Resolve(features []mapengine.Feature, order Order, policy UnlistedPolicy) (mapengine.Feature, bool) {
	best, bestRank := -1, -2
	for i, f := range features {
		rank := order.Rank(f.LayerID)
		if rank < 0 && policy == ExcludeUnlisted {
			continue
		}
		if rank > bestRank {
			best, bestRank = i, rank
		}
	}
	if best < 0 {
		return mapengine.Feature{}, false
	}
	return features[best], true
}
