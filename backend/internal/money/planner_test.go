package money

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func queueValues(p Plan) []int64 {
	out := make([]int64, 0, len(p.Queue))
	for _, e := range p.Queue {
		out = append(out, e.Denomination.Value)
	}
	return out
}

func TestPlanGreedySmallAmount(t *testing.T) {
	p := NewPlanner(Yen()).Plan(11111, newTestRand())

	assert.Equal(t, int64(1), p.BundleSize)
	assert.Equal(t, int64(11111), p.RepresentedAmount)
	assert.ElementsMatch(t, []int64{10000, 1000, 100, 10, 1}, queueValues(p))

	// банкноты раньше монет
	assert.True(t, p.Queue[0].Denomination.IsBill())
	assert.True(t, p.Queue[1].Denomination.IsBill())
	for _, e := range p.Queue[2:] {
		assert.False(t, e.Denomination.IsBill())
	}
}

func TestPlanNines(t *testing.T) {
	p := NewPlanner(Yen()).Plan(9999, newTestRand())

	counts := map[int64]int64{}
	for _, c := range p.Counts {
		counts[c.Denomination.Value] = c.Count
	}
	assert.Equal(t, int64(1), counts[5000])
	assert.Equal(t, int64(4), counts[1000])
	assert.Equal(t, int64(1), counts[500])
	assert.Equal(t, int64(4), counts[100])
	assert.Equal(t, int64(1), counts[50])
	assert.Equal(t, int64(4), counts[10])
	assert.Equal(t, int64(1), counts[5])
	assert.Equal(t, int64(4), counts[1])
	assert.Len(t, p.Queue, 20)
	assert.Equal(t, int64(9999), p.RepresentedAmount)
}

func TestPlanBundlesLargeAmount(t *testing.T) {
	p := NewPlanner(Yen()).Plan(10_000_000, newTestRand())

	assert.Equal(t, int64(3), p.BundleSize)
	require.Len(t, p.Queue, 334)
	for _, e := range p.Queue {
		assert.Equal(t, int64(10000), e.Denomination.Value)
		assert.Equal(t, int64(30000), e.RepresentedValue)
	}
	assert.Equal(t, int64(10_020_000), p.RepresentedAmount)
}

func TestPlanRepresentationBounds(t *testing.T) {
	planner := NewPlanner(Yen())
	rng := newTestRand()
	for _, amount := range []int64{1, 7, 480, 481, 12345, 987654, 5_000_001, 123_456_789, 1_000_000_000_000} {
		p := planner.Plan(amount, rng)
		require.NotEmpty(t, p.Queue, "amount %d", amount)
		assert.LessOrEqual(t, len(p.Queue), MaxVisualItems+len(yenTable), "amount %d", amount)
		assert.GreaterOrEqual(t, p.RepresentedAmount, amount)

		// каждая строка переоценена меньше чем на одну пачку
		var slack int64
		for _, c := range p.Counts {
			if c.Count > 0 {
				slack += c.Denomination.Value * p.BundleSize
			}
		}
		assert.Less(t, p.RepresentedAmount-amount, slack)
		if p.BundleSize == 1 {
			assert.Equal(t, amount, p.RepresentedAmount)
		}
	}
}

func TestParseAmountRejectsInvalid(t *testing.T) {
	for _, raw := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1), 0.5} {
		_, err := ParseAmount(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, "raw %v", raw)
	}

	v, err := ParseAmount(1234.9)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)
}

func TestPlanZeroIsEmpty(t *testing.T) {
	p := NewPlanner(Yen()).Plan(0, nil)
	assert.True(t, p.Empty())
	assert.Equal(t, int64(0), p.RepresentedAmount)
}

func TestWithMaxVisual(t *testing.T) {
	p := NewPlanner(Yen()).WithMaxVisual(2).Plan(3000, newTestRand())
	assert.Equal(t, int64(2), p.BundleSize)
	require.Len(t, p.Queue, 2)
	assert.Equal(t, int64(4000), p.RepresentedAmount)
}
