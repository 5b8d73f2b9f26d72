package services

import (
	"sort"

	"enerlyze/internal/models"
)

// Waste multipliers in kilograms per TWh. They are a fixed policy proxy.
const (
	SolarWastePerTWh   = 20000.0
	WindWastePerTWh    = 15000.0
	HydroWastePerTWh   = 10000.0
	BiomassWastePerTWh = 30000.0
)

// EstimateWaste sums generation across every series per year and applies all
// four multipliers to that yearly total. Each category therefore scales with
// total generation rather than with its own source. Years without data get no
// entry. The result is sorted by year.
func EstimateWaste(dataset *models.Dataset) []models.WasteAggregate {
	totals := make(map[int]float64)
	for _, timeline := range dataset.Timelines() {
		for _, p := range timeline.Points {
			totals[p.Year] += p.Value
		}
	}

	aggregates := make([]models.WasteAggregate, 0, len(totals))
	for year, total := range totals {
		aggregates = append(aggregates, wasteFor(year, total))
	}
	sort.Slice(aggregates, func(i, j int) bool { return aggregates[i].Year < aggregates[j].Year })

	return aggregates
}

func wasteFor(year int, total float64) models.WasteAggregate {
	return models.WasteAggregate{
		Year:               year,
		TotalGenerationTWh: total,
		SolarKg:            total * SolarWastePerTWh,
		WindKg:             total * WindWastePerTWh,
		HydroKg:            total * HydroWastePerTWh,
		BiomassKg:          total * BiomassWastePerTWh,
	}
}
