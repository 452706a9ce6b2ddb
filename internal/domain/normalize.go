package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize validates and reshapes one raw feed record into a NEORecord.
// It is a pure transform: the input map is not mutated, and the only
// failure mode is a *ValidationError naming the offending field. Numeric
// coercion is best-effort; unparsable values become absent (nil) fields
// while the original text survives in RawPayload.
func Normalize(raw map[string]any, fetchedAt time.Time) (NEORecord, error) {
	id, ok := stringify(raw["id"])
	if !ok {
		return NEORecord{}, &ValidationError{Field: "id"}
	}
	name, ok := stringify(raw["name"])
	if !ok {
		return NEORecord{}, &ValidationError{Field: "name"}
	}

	diameter, ok := raw["estimated_diameter"]
	if !ok {
		return NEORecord{}, &ValidationError{Field: "estimated_diameter"}
	}
	diameterMap, ok := asMap(diameter)
	if !ok {
		return NEORecord{}, &ValidationError{Field: "estimated_diameter", Reason: "expected a mapping"}
	}

	var approaches []any
	if v, present := raw["close_approach_data"]; present && v != nil {
		approaches, ok = v.([]any)
		if !ok {
			return NEORecord{}, &ValidationError{Field: "close_approach_data", Reason: "expected a sequence"}
		}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return NEORecord{}, &ValidationError{Field: "payload", Reason: fmt.Sprintf("not serializable: %v", err)}
	}

	rec := NEORecord{
		ID:                id,
		Name:              name,
		JPLURL:            strField(raw, "nasa_jpl_url"),
		AbsoluteMagnitude: numField(raw, "absolute_magnitude_h"),
		Hazardous:         boolField(raw, "is_potentially_hazardous_asteroid"),
		SentryObject:      boolField(raw, "is_sentry_object"),
		RawPayload:        payload,
		FetchedAt:         fetchedAt,
	}

	if km, ok := asMap(diameterMap["kilometers"]); ok {
		rec.DiameterMinKm = numField(km, "estimated_diameter_min")
		rec.DiameterMaxKm = numField(km, "estimated_diameter_max")
	}

	if len(approaches) > 0 {
		if first, ok := asMap(approaches[0]); ok {
			rec.Approach = normalizeApproach(first)
		}
	}

	if orbital, ok := asMap(raw["orbital_data"]); ok {
		// Detailed lookups nest the element set under an extra "orbit" key.
		if inner, ok := asMap(orbital["orbit"]); ok {
			orbital = inner
		}
		rec.Orbit = normalizeOrbit(orbital)
	}

	return rec, nil
}

// normalizeApproach reshapes the first close-approach entry. Only the first
// event is retained: the feed endpoint returns exactly one per record, and
// all derived categories are defined over it.
func normalizeApproach(m map[string]any) *ApproachEvent {
	a := &ApproachEvent{
		DateFull:     strField(m, "close_approach_full"),
		EpochUnix:    firstNum(m, "epoch_date_close_approach", "epoch_osculation"),
		OrbitingBody: strField(m, "orbiting_body"),
	}
	if d, ok := stringify(m["close_approach_date"]); ok {
		a.Date = d
	}
	if vel, ok := asMap(m["relative_velocity"]); ok {
		a.VelocityKmS = numField(vel, "kilometers_per_second")
		a.VelocityKmH = numField(vel, "kilometers_per_hour")
		a.VelocityMiH = numField(vel, "miles_per_hour")
	}
	if dist, ok := asMap(m["miss_distance"]); ok {
		a.DistanceAU = numField(dist, "astronomical")
		a.DistanceLunar = numField(dist, "lunar")
		a.DistanceKm = numField(dist, "kilometers")
	}
	return a
}

func normalizeOrbit(m map[string]any) *OrbitalElements {
	return &OrbitalElements{
		EpochOsculation:           numField(m, "epoch_osculation"),
		Eccentricity:              numField(m, "eccentricity"),
		SemiMajorAxis:             numField(m, "semi_major_axis"),
		Inclination:               numField(m, "inclination"),
		AscendingNodeLongitude:    numField(m, "ascending_node_longitude"),
		OrbitalPeriod:             numField(m, "orbital_period"),
		PerihelionDistance:        numField(m, "perihelion_distance"),
		PerihelionArgument:        numField(m, "perihelion_argument"),
		AphelionDistance:          numField(m, "aphelion_distance"),
		PerihelionTime:            numField(m, "perihelion_time"),
		MeanAnomaly:               numField(m, "mean_anomaly"),
		MeanMotion:                numField(m, "mean_motion"),
		Equinox:                   strField(m, "equinox"),
		OrbitDeterminationDate:    strField(m, "orbit_determination_date"),
		OrbitUncertainty:          strField(m, "orbit_uncertainty"),
		MinimumOrbitIntersection:  numField(m, "minimum_orbit_intersection"),
		JupiterTisserandInvariant: numField(m, "jupiter_tisserand_invariant"),
		EarthMOID:                 numField(m, "earth_minimum_orbit_intersection_distance"),
		OrbitID:                   strField(m, "orbit_id"),
		ObjectDesignation:         strField(m, "object_designation"),
	}
}

// asMap narrows a decoded JSON value to an object.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// stringify coerces an identifier-like value to a string. The feed emits
// IDs as strings but some producers send bare numbers.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// parseNumber coerces a decoded JSON value to float64. String values may
// carry thousands separators ("50,000").
func parseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func numField(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := parseNumber(v)
	if !ok {
		return nil
	}
	return &f
}

func firstNum(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if p := numField(m, k); p != nil {
			return p
		}
	}
	return nil
}

func strField(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	return &s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}
