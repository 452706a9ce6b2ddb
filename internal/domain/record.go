package domain

import "time"

// ApproachEvent describes one close approach of an object to its orbiting
// body. Velocity and distance arrive from the feed in three units each;
// absent or unparsable values are nil.
type ApproachEvent struct {
	Date          string   `json:"close_approach_date"`
	DateFull      *string  `json:"close_approach_full,omitempty"`
	EpochUnix     *float64 `json:"epoch_osculation,omitempty"`
	VelocityKmS   *float64 `json:"relative_velocity_km_per_sec,omitempty"`
	VelocityKmH   *float64 `json:"relative_velocity_km_per_hour,omitempty"`
	VelocityMiH   *float64 `json:"relative_velocity_miles_per_hour,omitempty"`
	DistanceAU    *float64 `json:"miss_distance_astronomical,omitempty"`
	DistanceLunar *float64 `json:"miss_distance_lunar,omitempty"`
	DistanceKm    *float64 `json:"miss_distance_kilometers,omitempty"`
	OrbitingBody  *string  `json:"orbiting_body,omitempty"`
}

// OrbitalElements is the osculating element set attached to an object.
// Every field is optional; the feed omits elements it has no solution for.
type OrbitalElements struct {
	EpochOsculation           *float64 `json:"epoch_osculation,omitempty"`
	Eccentricity              *float64 `json:"eccentricity,omitempty"`
	SemiMajorAxis             *float64 `json:"semi_major_axis,omitempty"`
	Inclination               *float64 `json:"inclination,omitempty"`
	AscendingNodeLongitude    *float64 `json:"ascending_node_longitude,omitempty"`
	OrbitalPeriod             *float64 `json:"orbital_period,omitempty"`
	PerihelionDistance        *float64 `json:"perihelion_distance,omitempty"`
	PerihelionArgument        *float64 `json:"perihelion_argument,omitempty"`
	AphelionDistance          *float64 `json:"aphelion_distance,omitempty"`
	PerihelionTime            *float64 `json:"perihelion_time,omitempty"`
	MeanAnomaly               *float64 `json:"mean_anomaly,omitempty"`
	MeanMotion                *float64 `json:"mean_motion,omitempty"`
	Equinox                   *string  `json:"equinox,omitempty"`
	OrbitDeterminationDate    *string  `json:"orbit_determination_date,omitempty"`
	OrbitUncertainty          *string  `json:"orbit_uncertainty,omitempty"`
	MinimumOrbitIntersection  *float64 `json:"minimum_orbit_intersection,omitempty"`
	JupiterTisserandInvariant *float64 `json:"jupiter_tisserand_invariant,omitempty"`
	EarthMOID                 *float64 `json:"earth_minimum_orbit_intersection_distance,omitempty"`
	OrbitID                   *string  `json:"orbit_id,omitempty"`
	ObjectDesignation         *string  `json:"object_designation,omitempty"`
}

// NEORecord is the normalized form of one feed record. ID is the external
// natural key: it identifies the object (not the approach event) and is
// stable across re-fetches, which is what makes upserts idempotent.
type NEORecord struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	JPLURL            *string  `json:"nasa_jpl_url,omitempty"`
	AbsoluteMagnitude *float64 `json:"absolute_magnitude_h,omitempty"`
	DiameterMinKm     *float64 `json:"estimated_diameter_min_km,omitempty"`
	DiameterMaxKm     *float64 `json:"estimated_diameter_max_km,omitempty"`
	Hazardous         bool     `json:"is_potentially_hazardous_asteroid"`
	SentryObject      bool     `json:"is_sentry_object"`

	// First close-approach event; nil when the feed carried none.
	Approach *ApproachEvent `json:"approach,omitempty"`
	// Orbital element set; nil when absent.
	Orbit *OrbitalElements `json:"orbit,omitempty"`

	// RawPayload is the original feed record, retained verbatim for
	// provenance and replay. Never reparsed at query time.
	RawPayload []byte    `json:"-"`
	FetchedAt  time.Time `json:"fetched_at"`
}
