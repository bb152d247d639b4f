package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogistic(t *testing.T) {
	l := DefaultLogistic()

	clean := l.Score(Signals{StatedIncome: 120000, DerivedIncome: 100000})
	wealthy := l.Score(Signals{StatedIncome: 120000, DerivedIncome: 900000})
	ring := l.Score(Signals{DerivedIncome: 0, RingFlagCount: 5})

	assert.Less(t, clean, 0.1)
	assert.Greater(t, wealthy, 0.9)
	assert.Greater(t, ring, 0.9)

	for _, s := range []float64{clean, wealthy, ring} {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestLogisticZeroScale(t *testing.T) {
	l := Logistic{IncomeGap: 1, IncomeScale: 0}
	assert.InDelta(t, 0.5, l.Score(Signals{}), 1e-9)
}
