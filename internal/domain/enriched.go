package domain

// Enriched pairs a normalized record with the insights derived from it.
// It is the unit of work flowing from insight derivation into storage.
type Enriched struct {
	Record   NEORecord
	Insights InsightSet
}
