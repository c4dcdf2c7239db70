package feetable

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carblue/pricing-cli/internal/model"
)

func testTable(t *testing.T) *Table[float64] {
	t.Helper()
	tbl, err := NewTable("test", Ladder(
		[]float64{18.99, 48.99, 78.99, Unbounded},
		[]float64{1, 2, 3, 4},
		[]string{"low", "mid", "high", "top"},
	))
	require.NoError(t, err)
	return tbl
}

func TestResolve(t *testing.T) {
	t.Parallel()
	tbl := testTable(t)

	tests := []struct {
		name      string
		x         float64
		want      float64
		wantIndex int
	}{
		{"zero", 0, 1, 0},
		{"inside first", 10, 1, 0},
		{"exact first upper", 18.99, 1, 0},
		{"just past first upper", 18.995, 2, 1},
		{"round threshold", 79, 4, 3},
		{"exact third upper", 78.99, 3, 2},
		{"huge", 1e9, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, res, err := tbl.Resolve(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantIndex, res.Index)
			assert.False(t, res.Fallback)
			assert.Equal(t, "test", res.Table)
		})
	}
}

func TestResolveFallback(t *testing.T) {
	t.Parallel()
	tbl, err := NewTable("bounded", Ladder([]float64{0.3, 0.5, 2}, []float64{10, 20, 30}, nil))
	require.NoError(t, err)

	got, res, err := tbl.Resolve(2)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got, 1e-9)
	assert.False(t, res.Fallback)

	got, res, err = tbl.Resolve(3.5)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got, 1e-9)
	assert.True(t, res.Fallback)
	assert.Equal(t, 2, res.Index)
}

func TestResolveRejectsBadInput(t *testing.T) {
	t.Parallel()
	tbl := testTable(t)

	for _, x := range []float64{-0.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, _, err := tbl.Resolve(x)
		require.Error(t, err)
		assert.True(t, model.IsValidation(err))
	}
}

func TestNewTableValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		brackets []Bracket[float64]
	}{
		{"empty", nil},
		{"not starting at zero", []Bracket[float64]{{Lower: 1, Upper: 2}}},
		{"gap", []Bracket[float64]{{Lower: 0, Upper: 18.99}, {Lower: 19, Upper: 48.99}}},
		{"overlap", []Bracket[float64]{{Lower: 0, Upper: 20}, {Lower: 19, Upper: 48.99}}},
		{"inverted", []Bracket[float64]{{Lower: 0, Upper: 10}, {Lower: 10, Upper: 5}}},
		{"NaN", []Bracket[float64]{{Lower: 0, Upper: math.NaN()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTable("bad", tt.brackets)
			require.Error(t, err)
			assert.True(t, model.IsValidation(err))
		})
	}
}

func TestTableIsImmutable(t *testing.T) {
	t.Parallel()
	brackets := Ladder([]float64{10, Unbounded}, []float64{1, 2}, nil)
	tbl, err := NewTable("imm", brackets)
	require.NoError(t, err)

	brackets[0].Value = 99
	got := tbl.Brackets()
	got[1].Value = 99

	v, _, err := tbl.Resolve(5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
	v, _, err = tbl.Resolve(50)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-9)
	assert.Equal(t, 2, tbl.Len())
}

// Randomized tables with non-decreasing values must resolve monotonically.
func TestResolveMonotonicProperty(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(10)
		uppers := make([]float64, n)
		values := make([]float64, n)
		upper, value := 0.0, 0.0
		for i := range n {
			upper += 0.01 + rng.Float64()*50
			value += rng.Float64() * 10
			uppers[i] = upper
			values[i] = value
		}
		if rng.IntN(2) == 0 {
			uppers[n-1] = Unbounded
		}
		tbl, err := NewTable("prop", Ladder(uppers, values, nil))
		require.NoError(t, err)

		xs := make([]float64, 50)
		for i := range xs {
			xs[i] = rng.Float64() * (upper + 20)
		}
		xs = append(xs, uppers...)
		sort.Float64s(xs)

		prev := math.Inf(-1)
		for _, x := range xs {
			if math.IsInf(x, 1) {
				continue
			}
			v, _, err := tbl.Resolve(x)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, prev, "trial %d x=%f", trial, x)
			prev = v
		}
	}
}

func TestLadder(t *testing.T) {
	t.Parallel()
	b := Ladder([]float64{1, 2, Unbounded}, []string{"a", "b", "c"}, []string{"x"})
	require.Len(t, b, 3)
	assert.Equal(t, 0.0, b[0].Lower)
	assert.Equal(t, 1.0, b[1].Lower)
	assert.Equal(t, 2.0, b[2].Lower)
	assert.Equal(t, "x", b[0].Label)
	assert.Equal(t, "", b[2].Label)
}
