package domain

import (
	"math"
	"time"
)

// Processing metadata tags recorded with every derived insight row.
const (
	ProcessorVersion = "1.0.0"
	DataSource       = "NASA NEO API"
)

// Size categories, keyed on maximum estimated diameter.
const (
	SizeSmall  = "Small (< 100m)"
	SizeMedium = "Medium (100m - 1km)"
	SizeLarge  = "Large (> 1km)"
)

// Orbit types, keyed on eccentricity.
const (
	OrbitNearlyCircular   = "Nearly Circular"
	OrbitLowEccentricity  = "Low Eccentricity"
	OrbitHighEccentricity = "High Eccentricity"
)

// Inclination types, keyed on inclination degrees.
const (
	InclinationLow    = "Low Inclination"
	InclinationMedium = "Medium Inclination"
	InclinationHigh   = "High Inclination"
)

// Velocity categories, keyed on relative velocity in km/h.
const (
	VelocitySlow   = "Slow"
	VelocityMedium = "Medium"
	VelocityFast   = "Fast"
)

// Distance categories, keyed on miss distance in km.
const (
	DistanceVeryClose = "Very Close"
	DistanceClose     = "Close"
	DistanceModerate  = "Moderate"
	DistanceFar       = "Far"
)

// Hazard and threat levels, ordinal views of the risk score.
const (
	LevelLow      = "LOW"
	LevelMedium   = "MEDIUM"
	LevelHigh     = "HIGH"
	LevelCritical = "CRITICAL"
)

// recommendedActions maps each threat level to its fixed operator guidance.
var recommendedActions = map[string]string{
	LevelCritical: "Immediate monitoring and analysis required",
	LevelHigh:     "Enhanced monitoring recommended",
	LevelMedium:   "Standard monitoring sufficient",
	LevelLow:      "Routine observation",
}

// OrbitalInsights is the orbital detail blob stored alongside the
// categorical columns.
type OrbitalInsights struct {
	OrbitalPeriodDays *float64 `json:"orbital_period_days,omitempty"`
	OrbitType         *string  `json:"orbit_type,omitempty"`
	InclinationType   *string  `json:"inclination_type,omitempty"`
}

// SizeInsights is the size detail blob.
type SizeInsights struct {
	DiameterMinKm *float64 `json:"estimated_diameter_min_km,omitempty"`
	DiameterMaxKm *float64 `json:"estimated_diameter_max_km,omitempty"`
	Category      string   `json:"category"`
}

// VelocityInsights is the velocity detail blob.
type VelocityInsights struct {
	KmPerHour *float64 `json:"kilometers_per_hour,omitempty"`
	Category  *string  `json:"category,omitempty"`
}

// DistanceInsights is the distance detail blob.
type DistanceInsights struct {
	Kilometers *float64 `json:"kilometers,omitempty"`
	Lunar      *float64 `json:"lunar,omitempty"`
	Category   *string  `json:"category,omitempty"`
}

// ProcessingMetadata records which processor produced an insight and when.
// Informational only; excluded from the determinism contract.
type ProcessingMetadata struct {
	ProcessorVersion string    `json:"processor_version"`
	DataSource       string    `json:"data_source"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// InsightSet is one computed interpretation of a NEORecord. Categorical
// fields derived from absent raw fields are nil rather than defaulted.
type InsightSet struct {
	RiskScore         float64            `json:"risk_score"`
	HazardLevel       string             `json:"hazard_level"`
	SizeCategory      string             `json:"size_category"`
	OrbitType         *string            `json:"orbit_type,omitempty"`
	InclinationType   *string            `json:"inclination_type,omitempty"`
	VelocityCategory  *string            `json:"velocity_category,omitempty"`
	DistanceCategory  *string            `json:"distance_category,omitempty"`
	DaysToApproach    *int               `json:"days_to_approach,omitempty"`
	IsHighPriority    bool               `json:"is_high_priority"`
	ThreatLevel       string             `json:"threat_level"`
	RecommendedAction string             `json:"recommended_action"`
	Orbital           *OrbitalInsights   `json:"orbital_insights,omitempty"`
	Size              SizeInsights       `json:"size_insights"`
	Velocity          *VelocityInsights  `json:"velocity_insights,omitempty"`
	Distance          *DistanceInsights  `json:"distance_insights,omitempty"`
	Metadata          ProcessingMetadata `json:"processing_metadata"`
}

// ComputeRiskScore returns the weighted risk score in [0,1] for one
// close-approach: diameter 40%, miss distance 40%, velocity 20%.
// Any missing input yields 0.0 — the score feeds prioritization, not
// safety-critical action, so absent telemetry fails safe rather than loud.
func ComputeRiskScore(diameterKmMax, missDistanceKm, velocityKmh *float64) float64 {
	if diameterKmMax == nil || missDistanceKm == nil || velocityKmh == nil {
		return 0.0
	}

	diameterFactor := math.Min(*diameterKmMax/10.0, 1.0)
	distanceFactor := math.Max(0, 1.0-*missDistanceKm/1_000_000.0)
	velocityFactor := math.Min(*velocityKmh/100_000.0, 1.0)

	score := 0.4*diameterFactor + 0.4*distanceFactor + 0.2*velocityFactor
	return math.Min(math.Max(score, 0.0), 1.0)
}

// ComputeInsights derives the full insight set for a normalized record.
// Aside from the two time-relative fields (DaysToApproach, ProcessedAt),
// the output is a pure function of the input.
func ComputeInsights(rec NEORecord) InsightSet {
	var velocityKmH, distanceKm, distanceLunar *float64
	if rec.Approach != nil {
		velocityKmH = rec.Approach.VelocityKmH
		distanceKm = rec.Approach.DistanceKm
		distanceLunar = rec.Approach.DistanceLunar
	}

	score := ComputeRiskScore(rec.DiameterMaxKm, distanceKm, velocityKmH)
	threat := threatLevel(score)

	set := InsightSet{
		RiskScore:         score,
		HazardLevel:       hazardLevel(score),
		SizeCategory:      sizeCategory(rec.DiameterMaxKm),
		VelocityCategory:  velocityCategory(velocityKmH),
		DistanceCategory:  distanceCategory(distanceKm),
		IsHighPriority:    score > 0.5,
		ThreatLevel:       threat,
		RecommendedAction: recommendedActions[threat],
		Metadata: ProcessingMetadata{
			ProcessorVersion: ProcessorVersion,
			DataSource:       DataSource,
			ProcessedAt:      clock.Now().UTC(),
		},
	}

	set.Size = SizeInsights{
		DiameterMinKm: rec.DiameterMinKm,
		DiameterMaxKm: rec.DiameterMaxKm,
		Category:      set.SizeCategory,
	}

	if rec.Orbit != nil {
		set.OrbitType = orbitType(rec.Orbit.Eccentricity)
		set.InclinationType = inclinationType(rec.Orbit.Inclination)
		set.Orbital = &OrbitalInsights{
			OrbitalPeriodDays: rec.Orbit.OrbitalPeriod,
			OrbitType:         set.OrbitType,
			InclinationType:   set.InclinationType,
		}
	}

	if rec.Approach != nil {
		set.DaysToApproach = daysToApproach(rec.Approach.Date, clock.Now())
		set.Velocity = &VelocityInsights{KmPerHour: velocityKmH, Category: set.VelocityCategory}
		set.Distance = &DistanceInsights{Kilometers: distanceKm, Lunar: distanceLunar, Category: set.DistanceCategory}
	}

	return set
}

// hazardLevel buckets the risk score with strict > cuts at 0.7 and 0.4, so
// a score of exactly 0.7 is MEDIUM.
func hazardLevel(score float64) string {
	switch {
	case score > 0.7:
		return LevelHigh
	case score > 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// threatLevel buckets the risk score with strict > cuts at 0.8, 0.6, 0.4.
func threatLevel(score float64) string {
	switch {
	case score > 0.8:
		return LevelCritical
	case score > 0.6:
		return LevelHigh
	case score > 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// sizeCategory buckets the maximum estimated diameter. An absent diameter
// classifies as Small: the required estimated_diameter block survived
// validation, so a missing km figure means "too small to matter".
func sizeCategory(diameterKmMax *float64) string {
	var d float64
	if diameterKmMax != nil {
		d = *diameterKmMax
	}
	switch {
	case d < 0.1:
		return SizeSmall
	case d < 1:
		return SizeMedium
	default:
		return SizeLarge
	}
}

func orbitType(eccentricity *float64) *string {
	if eccentricity == nil {
		return nil
	}
	var t string
	switch {
	case *eccentricity < 0.1:
		t = OrbitNearlyCircular
	case *eccentricity < 0.3:
		t = OrbitLowEccentricity
	default:
		t = OrbitHighEccentricity
	}
	return &t
}

func inclinationType(inclination *float64) *string {
	if inclination == nil {
		return nil
	}
	var t string
	switch {
	case *inclination < 5:
		t = InclinationLow
	case *inclination < 20:
		t = InclinationMedium
	default:
		t = InclinationHigh
	}
	return &t
}

func velocityCategory(velocityKmH *float64) *string {
	if velocityKmH == nil {
		return nil
	}
	var c string
	switch {
	case *velocityKmH < 20_000:
		c = VelocitySlow
	case *velocityKmH < 50_000:
		c = VelocityMedium
	default:
		c = VelocityFast
	}
	return &c
}

func distanceCategory(distanceKm *float64) *string {
	if distanceKm == nil {
		return nil
	}
	var c string
	switch {
	case *distanceKm < 1_000_000:
		c = DistanceVeryClose
	case *distanceKm < 5_000_000:
		c = DistanceClose
	case *distanceKm < 20_000_000:
		c = DistanceModerate
	default:
		c = DistanceFar
	}
	return &c
}

// daysToApproach returns the signed whole-day difference between the
// approach date (midnight UTC) and now, floored so that a partial day in
// the past counts as -1. Unparsable dates yield nil, not an error.
func daysToApproach(date string, now time.Time) *int {
	approach, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil
	}
	days := int(math.Floor(approach.Sub(now.UTC()).Hours() / 24))
	return &days
}
