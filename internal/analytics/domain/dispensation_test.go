package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispensationRates(t *testing.T) {
	stats := DispensationStats{Total: 200, Antibiotic: 90, Antimalarial: 40}

	assert.InDelta(t, 45.0, stats.AntibioticRate(), 0.001)
	assert.InDelta(t, 20.0, stats.AntimalarialRate(), 0.001)

	empty := DispensationStats{}
	assert.Equal(t, 0.0, empty.AntibioticRate())
	assert.Equal(t, 0.0, empty.AntimalarialRate())
}

func TestRateConditions(t *testing.T) {
	stats := DispensationStats{
		Total:        100,
		Antibiotic:   45,
		Antimalarial: 35,
		ByService:    map[string]int{"pediatrics": 30, "surgery": 5},
	}

	t.Run("exceeded thresholds raise conditions", func(t *testing.T) {
		conditions := RateConditions(stats, 40, 30, 25)

		types := make(map[AlertType]Condition)
		for _, c := range conditions {
			types[c.Type] = c
		}

		assert.Len(t, conditions, 3)
		assert.Contains(t, types, AlertAntibioticOveruse)
		assert.Contains(t, types, AlertMalariaEpidemic)
		assert.Contains(t, types, AlertServiceOverconsumption)
		assert.Contains(t, types[AlertServiceOverconsumption].Message, "pediatrics")
	})

	t.Run("rates below thresholds stay silent", func(t *testing.T) {
		assert.Empty(t, RateConditions(stats, 50, 40, 35))
	})

	t.Run("empty window raises nothing", func(t *testing.T) {
		assert.Empty(t, RateConditions(DispensationStats{}, 40, 30, 25))
	})

	t.Run("zero thresholds disable the rules", func(t *testing.T) {
		assert.Empty(t, RateConditions(stats, 0, 0, 0))
	})
}
