// Command genmock generates deterministic mock NEO feed fixtures for
// test suites. It runs the synthesized documents through the actual
// domain package so the derived output matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/neo_feed_20260829.json \
//	  -insights-out data/mock/neo_insights_20260829.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

var baseDate = time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for the raw feed JSON fixture")
	insightsOut := flag.String("insights-out", "", "output path for the derived insights JSON fixture")
	count := flag.Int("count", 50, "number of objects to generate")
	flag.Parse()

	if *rawOut == "" || *insightsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -insights-out")
	}

	// Fixed clock for reproducible processed_at and days_to_approach.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.Add(6 * time.Hour)))
	defer domain.SetClock(nil)

	raws := make([]map[string]any, 0, *count)
	enriched := make([]domain.Enriched, 0, *count)

	for i := 0; i < *count; i++ {
		raw := mockObject(i)
		raws = append(raws, raw)

		rec, err := domain.Normalize(raw, baseDate)
		if err != nil {
			return fmt.Errorf("normalize object %d: %w", i, err)
		}
		enriched = append(enriched, domain.Enriched{
			Record:   rec,
			Insights: domain.ComputeInsights(rec),
		})
	}

	if err := writeJSON(*rawOut, raws); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s (%d objects)", *rawOut, len(raws))

	if err := writeJSON(*insightsOut, enriched); err != nil {
		return fmt.Errorf("writing insights fixture: %w", err)
	}
	log.Printf("wrote insights fixture: %s", *insightsOut)

	printStats(enriched)
	return nil
}

// mockObject synthesizes one feed document. Values are pure functions of
// the index, so fixtures are identical between runs.
func mockObject(i int) map[string]any {
	id := fmt.Sprintf("%07d", 3000000+i)
	diameterMax := 0.02 + 0.09*float64(i%25)  // spans Small through Large
	velocity := 5_000 + 3_700*float64(i%17)   // spans Slow through Fast
	distance := 200_000 + 1.9e6*float64(i%13) // spans Very Close through Far
	approach := baseDate.AddDate(0, 0, i%7)

	return map[string]any{
		"id":                   id,
		"name":                 fmt.Sprintf("(2026 MK%d)", i),
		"nasa_jpl_url":         "https://ssd.jpl.nasa.gov/tools/sbdb_lookup.html#/?sstr=" + id,
		"absolute_magnitude_h": 20.0 + float64(i%10),
		"estimated_diameter": map[string]any{
			"kilometers": map[string]any{
				"estimated_diameter_min": diameterMax / 2.2,
				"estimated_diameter_max": diameterMax,
			},
		},
		"is_potentially_hazardous_asteroid": i%5 == 0,
		"is_sentry_object":                  i%11 == 0,
		"close_approach_data": []any{
			map[string]any{
				"close_approach_date": approach.Format("2006-01-02"),
				"relative_velocity": map[string]any{
					"kilometers_per_second": fmt.Sprintf("%.6f", velocity/3600),
					"kilometers_per_hour":   fmt.Sprintf("%.6f", velocity),
					"miles_per_hour":        fmt.Sprintf("%.6f", velocity*0.621371),
				},
				"miss_distance": map[string]any{
					"astronomical": fmt.Sprintf("%.8f", distance/1.496e8),
					"lunar":        fmt.Sprintf("%.6f", distance/384_400),
					"kilometers":   fmt.Sprintf("%.6f", distance),
				},
				"orbiting_body": "Earth",
			},
		},
		"orbital_data": map[string]any{
			"eccentricity":   fmt.Sprintf("%.6f", 0.02+0.04*float64(i%12)),
			"inclination":    fmt.Sprintf("%.4f", 1.5+2.5*float64(i%10)),
			"orbital_period": fmt.Sprintf("%.4f", 200+40*float64(i%20)),
		},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(enriched []domain.Enriched) {
	sizeCounts := map[string]int{}
	threatCounts := map[string]int{}
	var hazardous, highPriority int

	for i := range enriched {
		e := &enriched[i]
		sizeCounts[e.Insights.SizeCategory]++
		threatCounts[e.Insights.ThreatLevel]++
		if e.Record.Hazardous {
			hazardous++
		}
		if e.Insights.IsHighPriority {
			highPriority++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(enriched))
	fmt.Printf("By size: small=%d, medium=%d, large=%d\n",
		sizeCounts[domain.SizeSmall], sizeCounts[domain.SizeMedium], sizeCounts[domain.SizeLarge])
	fmt.Printf("By threat: low=%d, medium=%d, high=%d, critical=%d\n",
		threatCounts[domain.LevelLow], threatCounts[domain.LevelMedium],
		threatCounts[domain.LevelHigh], threatCounts[domain.LevelCritical])
	fmt.Printf("Hazardous: %d\n", hazardous)
	fmt.Printf("High priority: %d\n", highPriority)
}
