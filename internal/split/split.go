// Package split partitions validated pairs into train and validation sets.
package split

import (
	"math"
	"math/rand/v2"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

// DefaultSeed keeps splits reproducible when no seed is configured.
const DefaultSeed uint64 = 42

// pcgIncrement is the fixed stream selector paired with the seed.
const pcgIncrement uint64 = 0x9e3779b97f4a7c15

type Splitter struct {
	Ratio float64
	Seed  uint64
}

// New returns a Splitter after checking that ratio lies in (0,1).
func New(ratio float64, seed uint64) (Splitter, error) {
	s := Splitter{Ratio: ratio, Seed: seed}
	if err := s.check(); err != nil {
		return Splitter{}, err
	}
	return s, nil
}

func (s Splitter) check() error {
	if s.Ratio <= 0 || s.Ratio >= 1 || math.IsNaN(s.Ratio) {
		return common.InvalidInputErrorf("train ratio %v outside (0,1)", s.Ratio)
	}
	return nil
}

// Permutation returns a uniformly random permutation of [0, n) that depends only
// on n and seed. The generator is created per call; no global random state is used.
func Permutation(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, pcgIncrement))
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(rng.Uint64N(uint64(i + 1)))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// TrainSize is floor(ratio * n).
func TrainSize(n int, ratio float64) int {
	return int(math.Floor(ratio * float64(n)))
}

// Split shuffles pairs and cuts the permutation at TrainSize. Only valid pairs
// are expected; invalid ones are rejected with ErrInvalidInput.
func (s Splitter) Split(pairs []entity.ValidatedPair) (entity.DatasetSplit, error) {
	if err := s.check(); err != nil {
		return entity.DatasetSplit{}, err
	}
	for _, p := range pairs {
		if !p.Valid {
			return entity.DatasetSplit{}, common.InvalidInputErrorf("invalid pair at line %d cannot be split", p.Record.Line)
		}
	}

	perm := Permutation(len(pairs), s.Seed)
	cut := TrainSize(len(pairs), s.Ratio)

	out := entity.DatasetSplit{
		Train:        make([]entity.ValidatedPair, 0, cut),
		Val:          make([]entity.ValidatedPair, 0, len(pairs)-cut),
		TrainIndices: append([]int(nil), perm[:cut]...),
		ValIndices:   append([]int(nil), perm[cut:]...),
	}
	for _, i := range out.TrainIndices {
		out.Train = append(out.Train, pairs[i])
	}
	for _, i := range out.ValIndices {
		out.Val = append(out.Val, pairs[i])
	}
	return out, nil
}
