package scoring

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// DefaultSplitSeed is the base seed used when none is configured.
const DefaultSplitSeed uint64 = 69420

// pcgStream is the fixed PCG increment paired with every split seed.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// Split is a disjoint public/private partition of row indices. Both slices
// are sorted ascending.
type Split struct {
	Public  []int
	Private []int
	Seed    uint64
}

// Partition splits [0, n) into floor(n*fraction) public rows and the
// remaining private rows. The same (n, fraction, seed) always yields the same
// partition.
func Partition(n int, fraction float64, seed uint64) (Split, error) {
	if n < 0 {
		return Split{}, fmt.Errorf("row count must be >= 0, got %d", n)
	}
	if math.IsNaN(fraction) || fraction <= 0 || fraction >= 1 {
		return Split{}, fmt.Errorf("split fraction must be in (0, 1), got %v", fraction)
	}

	rng := rand.New(rand.NewPCG(seed, pcgStream))
	perm := rng.Perm(n)
	nPublic := int(math.Floor(float64(n) * fraction))

	public := append(make([]int, 0, nPublic), perm[:nPublic]...)
	private := append(make([]int, 0, n-nPublic), perm[nPublic:]...)
	slices.Sort(public)
	slices.Sort(private)
	return Split{Public: public, Private: private, Seed: seed}, nil
}

// DeriveSeed returns the split seed for a request. It depends only on the
// request payloads and the configured base, never on process state.
func DeriveSeed(strategy domain.SeedStrategy, base uint64, submission, groundTruth []byte) (uint64, error) {
	switch strategy {
	case domain.SeedFixed:
		return base, nil
	case domain.SeedGroundTruth, "":
		return base ^ xxhash.Sum64(groundTruth), nil
	case domain.SeedSubmission:
		return base ^ xxhash.Sum64(submission), nil
	}
	return 0, fmt.Errorf("unknown seed strategy %q", strategy)
}
