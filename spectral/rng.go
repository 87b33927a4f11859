package spectral

import (
	"hash/fnv"
	"math/rand"
	"strconv"
)

// RunKey identifies a reproducible synthetic observation. Two runs with the
// same RunKey and identical photon lists MUST keep the same photons.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

// PhotonListStream names the culling stream of the i-th photon list.
func PhotonListStream(i int) string {
	return "photons/" + strconv.Itoa(i)
}

// PartitionedRNG hands out one deterministic stream per photon list, so a
// list's decisions depend only on the RunKey and its position, not on how
// many lists are culled or in which order the workers run.
//
// Stream seed: masterSeed XOR fnv1a64(streamName).
//
// Not safe for concurrent use: derive the streams up front, then give each
// worker its own.
type PartitionedRNG struct {
	key     RunKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*rand.Rand),
	}
}

// Stream returns the named stream. Repeated calls with the same name return
// the same *rand.Rand.
func (p *PartitionedRNG) Stream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.streams[name] = rng
	return rng
}

// PhotonListStreams returns the culling streams of photon lists 0..n-1.
func (p *PartitionedRNG) PhotonListStreams(n int) []*rand.Rand {
	out := make([]*rand.Rand, n)
	for i := range out {
		out[i] = p.Stream(PhotonListStream(i))
	}
	return out
}

// Key returns the RunKey this PartitionedRNG was created from.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
