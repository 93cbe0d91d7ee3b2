package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(budget int) *Allocator {
	return New(Config{K: 4, M: 2, Budget: budget, Decay: 1.0}, nil)
}

func TestRecipeOfUnseenKeyIsZero(t *testing.T) {
	a := newTestAllocator(6)
	require.Equal(t, 0, a.RecipeOf("never-seen"))
}

func TestAllocationOrderingByPopularity(t *testing.T) {
	a := newTestAllocator(6)
	for i := 0; i < 100; i++ {
		a.OnAccess("A")
	}
	a.OnAccess("B")
	a.Reallocate()

	require.Equal(t, 6, a.RecipeOf("A"))
	require.Equal(t, 0, a.RecipeOf("B"))
}

func TestBudgetSplitEvenlyBetweenEqualKeys(t *testing.T) {
	a := newTestAllocator(6)
	for i := 0; i < 10; i++ {
		a.OnAccess("A")
		a.OnAccess("B")
	}
	a.Reallocate()

	require.Equal(t, 3, a.RecipeOf("A"))
	require.Equal(t, 3, a.RecipeOf("B"))
}

func TestBudgetInvariantNeverExceeded(t *testing.T) {
	a := newTestAllocator(6)
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, k := range keys {
		for j := 0; j < i+1; j++ {
			a.OnAccess(k)
		}
	}
	a.Reallocate()

	total := 0
	for _, k := range keys {
		c := a.RecipeOf(k)
		require.GreaterOrEqual(t, c, 0)
		require.LessOrEqual(t, c, 6)
		total += c
	}
	require.LessOrEqual(t, total, 6)
}

func TestPruneDropsIdleLowWeightKeys(t *testing.T) {
	a := New(Config{K: 4, M: 2, Budget: 6, Decay: 0.5, PruneEpsilon: 1.5}, nil)
	a.OnAccess("idle") // weight becomes 1
	a.Reallocate()     // touchedThisEpoch was true this round, so it survives
	require.Contains(t, a.popularity, "idle")

	a.Reallocate() // not touched since; weight 1 < epsilon 1.5, pruned
	require.NotContains(t, a.popularity, "idle")
}

func TestGainCurveIsDecreasingAndPositive(t *testing.T) {
	// total = k+m = 6 for newTestAllocator's {K:4, M:2}.
	require.Equal(t, 1.0, gain(6, 0))
	require.InDelta(t, 0.5, gain(6, 3), 1e-9)
	require.InDelta(t, 1.0/3.0, gain(6, 4), 1e-9) // still positive past k — a
	// popular key's 5th block still outranks a cold key's 1st.
	require.InDelta(t, 1.0/6.0, gain(6, 5), 1e-9)
	require.Equal(t, 0.0, gain(6, 6))
}
