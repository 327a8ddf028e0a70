package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// fixedSource returns the same Intn and Float64 values forever.
type fixedSource struct {
	n int
	f float64
}

func (s fixedSource) Intn(n int) int {
	if s.n >= n {
		return n - 1
	}
	return s.n
}
func (s fixedSource) Float64() float64 { return s.f }

// TestRollResult_Total verifies the postcondition: Total() == sum(Dice) + Modifier.
func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

func TestRollResult_String_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.StringMatching(`[0-9]+d[0-9]+[+-][0-9]+`).Draw(rt, "expression")
		rolled := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "dice")
		modifier := rapid.IntRange(-100, 100).Draw(rt, "modifier")

		r := dice.RollResult{Expression: expr, Dice: rolled, Modifier: modifier}
		s := r.String()
		assert.True(rt, strings.HasPrefix(s, expr))
		assert.True(rt, strings.HasSuffix(s, fmt.Sprintf("= %d", r.Total())))
	})
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in    string
		count int
		sides int
		mod   int
	}{
		{"d6", 1, 6, 0},
		{"2d6", 2, 6, 0},
		{"1d4+1", 1, 4, 1},
		{"3d8-2", 3, 8, -2},
		{"2D10 + 5", 2, 10, 5},
		{"3", 0, 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
			assert.Equal(t, tc.in, e.Raw)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "d", "0d6", "2d1", "2d6+", "x2d6", "2d6*3"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expression %q should be rejected", in)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("bogus") })
}

// TestRoll_BoundsProperty verifies every roll total lies within [Min, Max].
func TestRoll_BoundsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-5, 5).Draw(rt, "mod")
		seed := rapid.Uint64().Draw(rt, "seed")

		e := dice.MustParse(fmt.Sprintf("%dd%d%+d", count, sides, mod))
		r := dice.Roll(e, dice.NewSeededSource(seed))
		require.Len(rt, r.Dice, count)
		assert.GreaterOrEqual(rt, r.Total(), e.Min())
		assert.LessOrEqual(rt, r.Total(), e.Max())
	})
}

func TestRoll_Constant(t *testing.T) {
	r, err := dice.RollExpr("4", fixedSource{})
	require.NoError(t, err)
	assert.Empty(t, r.Dice)
	assert.Equal(t, 4, r.Total())
}

func TestChance_Extremes(t *testing.T) {
	src := fixedSource{f: 0.5}
	assert.False(t, dice.Chance(src, 0))
	assert.True(t, dice.Chance(src, 1))
	assert.True(t, dice.Chance(src, 0.6))
	assert.False(t, dice.Chance(src, 0.5))
}

func TestSpread_Range(t *testing.T) {
	assert.InDelta(t, 0.9, dice.Spread(fixedSource{f: 0}, 0.1), 1e-9)
	assert.InDelta(t, 1.0, dice.Spread(fixedSource{f: 0.5}, 0.1), 1e-9)
	assert.Equal(t, 1.0, dice.Spread(fixedSource{f: 0.9}, 0))
}

func TestPick(t *testing.T) {
	assert.Equal(t, -1, dice.Pick(fixedSource{}, 0))
	assert.Equal(t, 2, dice.Pick(fixedSource{n: 2}, 3))
}

func TestCryptoSource_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
		f := src.Float64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Intn(100), b.Intn(100))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestLoggedRoller_LogsRolls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := dice.NewLoggedRoller(fixedSource{n: 3, f: 0.2}, zap.New(core))

	res, err := r.RollExpr("2d6+1")
	require.NoError(t, err)
	assert.Equal(t, 9, res.Total())
	assert.True(t, r.Check("crit", 0.5))
	assert.False(t, r.Check("never", 0))

	entries := logs.All()
	require.Len(t, entries, 2, "zero-probability checks are not logged")
	assert.Equal(t, "dice roll", entries[0].Message)
	assert.Equal(t, int64(9), entries[0].ContextMap()["total"])
	assert.Equal(t, "crit", entries[1].ContextMap()["check"])
}

func TestCheck_LogsOnlyThroughRoller(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := dice.NewLoggedRoller(fixedSource{f: 0.1}, zap.New(core))

	assert.True(t, dice.Check(r, "miss", 0.5))
	assert.True(t, dice.Check(fixedSource{f: 0.1}, "miss", 0.5))
	assert.Equal(t, 1, logs.Len())
}
