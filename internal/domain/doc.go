// Package domain models NASA Near-Earth Object (NEO) feed data and the
// deterministic insight derivation applied to it.
//
// # Data Source
//
// Records originate from NASA's NEO Web Service feed endpoint
// (https://api.nasa.gov/neo/rest/v1/feed), which returns close-approach
// data grouped by calendar date. Each record describes one object at one
// close-approach event: identity, estimated diameter, hazard flags, the
// approach itself (velocity in three units, miss distance in three units),
// and optionally a set of osculating orbital elements.
//
// # Feed Conventions
//
// Numeric fields frequently arrive as strings, sometimes with thousands
// separators ("50,000"). Normalization parses these best-effort; values
// that cannot be parsed are treated as absent rather than as errors, and
// the untouched original survives in the record's raw payload.
//
// Detailed object responses nest orbital elements one level deeper
// (orbital_data.orbit); the feed endpoint places them directly under
// orbital_data. [Normalize] accepts both shapes.
//
// # Insight Derivation
//
// Every categorical field is a pure function of its raw counterpart:
//
//	size:        <0.1km Small | <1km Medium | else Large   (max diameter)
//	orbit:       <0.1 Nearly Circular | <0.3 Low | else High Eccentricity
//	inclination: <5° Low | <20° Medium | else High
//	velocity:    <20000 km/h Slow | <50000 Medium | else Fast
//	distance:    <1e6 km Very Close | <5e6 Close | <2e7 Moderate | else Far
//
// Threshold comparisons are strict on the listed edges, so a value equal
// to a boundary falls into the next bucket (diameter 0.1 is Medium).
//
// The continuous risk score weighs diameter (40%), miss distance (40%) and
// velocity (20%), each normalized to [0,1]; see [ComputeRiskScore]. Hazard
// and threat levels are ordinal views of the score with strict-> cuts at
// 0.7/0.4 and 0.8/0.6/0.4 respectively.
//
// Recomputing insights from the same record yields identical output except
// for the two explicitly time-relative fields (days to approach, processing
// timestamp), which flow from the injectable package clock.
package domain
