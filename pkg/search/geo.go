package search

import (
	"context"
	"math"
	"sort"

	"github.com/nimbuscrm/searchcore/pkg/core"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

const (
	// earthRadiusKm is the Haversine sphere radius.
	earthRadiusKm = 6371.0

	// kmPerDegree approximates one degree of latitude (and of
	// longitude at the equator).
	kmPerDegree = 111.32

	// DistanceField is attached to each document surviving the geo
	// filter, holding its great-circle distance from the center in km.
	DistanceField = "distanceKm"
)

// GeoSearch finds documents within radiusKm of a center point.
//
// A bounding box computed with an equirectangular approximation is
// pushed to the store as four range conditions; the returned page is
// then re-filtered by true Haversine distance, since the box is
// necessarily looser than the circle. Survivors are copies of the page
// documents with DistanceField attached.
//
// When no explicit sorts are given, survivors are ordered by distance
// ascending; explicit sorts are honored as-is and distance ordering is
// skipped.
//
// Known limitations: longitude does not wrap at the anti-meridian, and
// the box degenerates near the poles where cos(lat) approaches zero.
// Both are acceptable for CRM territories well under continental scale.
func (e *Executor) GeoSearch(ctx context.Context, collection, latField, lngField string, centerLat, centerLng, radiusKm float64, extraConditions []query.Condition, sorts []query.SortSpec, limit int) (*core.SearchResult, error) {
	latDelta := radiusKm / kmPerDegree
	lngDelta := radiusKm / (kmPerDegree * math.Cos(centerLat*math.Pi/180))

	conditions := make([]query.Condition, 0, len(extraConditions)+4)
	conditions = append(conditions, extraConditions...)
	conditions = append(conditions,
		query.Condition{Field: latField, Operator: ">=", Value: centerLat - latDelta},
		query.Condition{Field: latField, Operator: "<=", Value: centerLat + latDelta},
		query.Condition{Field: lngField, Operator: ">=", Value: centerLng - lngDelta},
		query.Condition{Field: lngField, Operator: "<=", Value: centerLng + lngDelta},
	)

	result, err := e.Search(ctx, collection, conditions, sorts, limit, "")
	if err != nil {
		return nil, err
	}

	type scored struct {
		doc      core.Document
		distance float64
	}
	survivors := make([]scored, 0, len(result.Items))
	for _, item := range result.Items {
		lat, latOK := numericField(item, latField)
		lng, lngOK := numericField(item, lngField)
		if !latOK || !lngOK {
			// Distance cannot be computed; drop rather than error.
			continue
		}
		d := Haversine(centerLat, centerLng, lat, lng)
		if d > radiusKm {
			continue
		}
		doc := make(core.Document, len(item)+1)
		for k, v := range item {
			doc[k] = v
		}
		doc[DistanceField] = d
		survivors = append(survivors, scored{doc: doc, distance: d})
	}

	if len(sorts) == 0 {
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].distance < survivors[j].distance
		})
	}

	items := make([]core.Document, len(survivors))
	for i, s := range survivors {
		items[i] = s.doc
	}

	return &core.SearchResult{
		Items:      items,
		TotalCount: len(items),
		HasMore:    result.HasMore,
		NextCursor: result.NextCursor,
	}, nil
}

// Haversine computes the great-circle distance in km between two
// lat/lng points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func numericField(doc core.Document, field string) (float64, bool) {
	value := core.FieldValue(doc, field)
	if value == nil {
		return 0, false
	}
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
