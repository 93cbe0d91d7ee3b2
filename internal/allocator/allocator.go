// Package allocator implements the proxy's adaptive cache-allocation
// engine: per-key popularity tracking and budget-constrained assignment of
// cached-block counts, via a max-priority-queue marginal-utility algorithm.
package allocator

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tessellate-io/shardcache/internal/logging"
)

// Config holds the allocator's tunable parameters, sourced from the
// longhair.k/m, cache.capacity, allocator.interval_ms, allocator.decay, and
// allocator.prune_epsilon configuration keys.
type Config struct {
	K, M          int
	Budget        int           // B: total cached-block budget across all keys.
	Interval      time.Duration // reallocation period.
	Decay         float64       // alpha in (0, 1]; 1.0 means plain counts.
	PruneEpsilon  float64       // popularity floor below which idle keys are dropped.
}

// popularityEntry tracks one key's recency-weighted weight and whether it
// was touched since the last reallocation (used only for pruning).
type popularityEntry struct {
	weight        float64
	touchedThisEpoch bool
}

// Allocator maintains popularity state and the current recipe table.
// RecipeOf takes the read side of mu; Reallocate takes the write side only
// to swap in the newly computed recipe map. OnAccess never touches mu: it
// takes popMu, which guards the popularity table.
type Allocator struct {
	cfg Config
	log *logging.Logger

	mu         sync.RWMutex
	popularity map[string]*popularityEntry
	recipes    map[string]int

	// tunableMu guards the two fields the admin config hot-reload path may
	// change at runtime (cache.capacity, allocator.interval_ms); everything
	// else in cfg is fixed for the allocator's lifetime.
	tunableMu sync.RWMutex

	// popMu guards the popularity map and its entries (every OnAccess, and
	// Reallocate's prune-and-snapshot scan), separately from the RWMutex
	// above, so that OnAccess never contends with RecipeOf reads.
	popMu sync.Mutex
}

// New constructs an Allocator. cfg.K, cfg.M, and cfg.Budget must already be
// validated by the caller (config loading is where CONFIG-class errors are
// raised, per §7 of the specification).
func New(cfg Config, log *logging.Logger) *Allocator {
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		cfg.Decay = 1.0
	}
	return &Allocator{
		cfg:        cfg,
		log:        log,
		popularity: make(map[string]*popularityEntry),
		recipes:    make(map[string]int),
	}
}

// OnAccess records a request for key, applying exponential decay:
// w <- alpha*w + 1. Thread-safe and O(1) expected.
func (a *Allocator) OnAccess(key string) {
	a.popMu.Lock()
	entry, ok := a.popularity[key]
	if !ok {
		entry = &popularityEntry{}
		a.popularity[key] = entry
	}
	entry.weight = a.cfg.Decay*entry.weight + 1
	entry.touchedThisEpoch = true
	a.popMu.Unlock()
}

// RecipeOf returns the currently assigned cached-block count for key, or 0
// if key has never been seen or no reallocation has run yet. Non-blocking.
func (a *Allocator) RecipeOf(key string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recipes[key]
}

// slot is one (key, i) candidate in the max-priority queue: the marginal
// utility of caching the (i+1)-th block of key.
type slot struct {
	utility float64
	key     string
	index   int
}

// slotHeap is a max-heap over slot.utility, tie-broken by key for
// deterministic allocation. Modeled directly on the teacher's BlockInfoHeap
// (storage/cache/performance.go): Less flips the usual min-heap comparison,
// Push/Pop append to and pop off the backing slice.
type slotHeap []slot

func (h slotHeap) Len() int { return len(h) }
func (h slotHeap) Less(i, j int) bool {
	if h[i].utility != h[j].utility {
		return h[i].utility > h[j].utility
	}
	return h[i].key < h[j].key
}
func (h slotHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x interface{}) { *h = append(*h, x.(slot)) }
func (h *slotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// gain is the decreasing gain curve g(i) = (total-i) / total, where total =
// k+m is the full block count. Unlike a curve that zeroes out at i>=k, this
// stays strictly positive (down to 1/total at the last block) for every
// index in [0, total), so a single very popular key can still claim more
// than k cached blocks before a cold key's first block wins a slot — the
// marginal value of a popular key's (k+1)-th..(k+m)-th block (faster
// reconstruction tolerance, not bare quorum) still outranks letting an
// unseen key in.
func gain(total, i int) float64 {
	if total <= 0 {
		return 0
	}
	g := float64(total-i) / float64(total)
	if g < 0 {
		return 0
	}
	return g
}

// Reallocate recomputes c(.) for all known keys from current popularities,
// prunes idle low-weight keys, and atomically swaps in the new recipe
// table. May be expensive; intended to run off the request path (the
// periodic loop in Run, or an on-demand admin trigger).
func (a *Allocator) Reallocate() {
	a.popMu.Lock()
	keys := make([]string, 0, len(a.popularity))
	weights := make(map[string]float64, len(a.popularity))
	for k, entry := range a.popularity {
		if a.cfg.PruneEpsilon > 0 && !entry.touchedThisEpoch && entry.weight < a.cfg.PruneEpsilon {
			delete(a.popularity, k)
			continue
		}
		entry.touchedThisEpoch = false
		keys = append(keys, k)
		weights[k] = entry.weight
	}
	a.popMu.Unlock()

	// Deterministic ordering before heap construction so ties resolve
	// identically across runs even though map iteration order does not.
	sort.Strings(keys)

	total := a.cfg.K + a.cfg.M
	h := make(slotHeap, 0, len(keys))
	for _, k := range keys {
		h = append(h, slot{utility: weights[k] * gain(total, 0), key: k, index: 0})
	}
	heap.Init(&h)

	newRecipes := make(map[string]int, len(keys))
	budget := a.Budget()
	for budget > 0 && h.Len() > 0 {
		s := heap.Pop(&h).(slot)
		newRecipes[s.key] = s.index + 1
		budget--
		if s.index+1 < total {
			heap.Push(&h, slot{
				utility: weights[s.key] * gain(total, s.index+1),
				key:     s.key,
				index:   s.index + 1,
			})
		}
	}
	for _, k := range keys {
		if _, ok := newRecipes[k]; !ok {
			newRecipes[k] = 0
		}
	}

	a.mu.Lock()
	a.recipes = newRecipes
	a.mu.Unlock()

	if a.log != nil {
		a.log.Debug("reallocated cache recipes", "keys", len(keys), "budget", budget)
	}
}

// Budget returns the current cache-budget tunable (cache.capacity).
func (a *Allocator) Budget() int {
	a.tunableMu.RLock()
	defer a.tunableMu.RUnlock()
	return a.cfg.Budget
}

// Interval returns the current reallocation-period tunable
// (allocator.interval_ms).
func (a *Allocator) Interval() time.Duration {
	a.tunableMu.RLock()
	defer a.tunableMu.RUnlock()
	if a.cfg.Interval <= 0 {
		return 5 * time.Second
	}
	return a.cfg.Interval
}

// SetTunables applies a hot-reloaded cache.capacity/allocator.interval_ms
// pair. The new interval takes effect on Run's next tick; the new budget
// takes effect on the next Reallocate.
func (a *Allocator) SetTunables(budget int, interval time.Duration) {
	a.tunableMu.Lock()
	a.cfg.Budget = budget
	a.cfg.Interval = interval
	a.tunableMu.Unlock()
}

// Run starts the periodic reallocation loop; it blocks until ctx is
// cancelled. Modeled on the teacher's ticker-driven background loops in
// pkg/cache/adaptive_cache.go (predictionLoop/evictionLoop). A fresh timer
// is built each cycle so a hot-reloaded interval takes effect within one
// period rather than only after a restart.
func (a *Allocator) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(a.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			a.Reallocate()
		}
	}
}
