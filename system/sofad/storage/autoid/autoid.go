// Package autoid generates document identifiers.
package autoid

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Algorithm names accepted by New.
const (
	RandomAlgorithm     = "random"
	SequentialAlgorithm = "sequential"
)

// Generator produces document ids. Implementations are safe for concurrent
// use.
type Generator interface {
	NewID() string
}

// New returns the generator for the named algorithm. The empty name
// selects RandomAlgorithm.
func New(algorithm string) (Generator, error) {
	switch algorithm {
	case "", RandomAlgorithm:
		return Random{}, nil
	case SequentialAlgorithm:
		return NewSequential(), nil
	}
	return nil, fmt.Errorf("unknown id algorithm %q", algorithm)
}

// Random generates 32 hex character ids from random UUIDs.
type Random struct{}

func (Random) NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Sequential generates ids which sort lexicographically in the order they
// were generated within one process.
//
// Format: formatLex(counter) followed by 16 random hex digits. The random
// suffix keeps ids from two processes (or two restarts) apart.
//
// Examples (suffix elided):
//   - counter=1    → "a1…"
//   - counter=16   → "b10…"
//   - counter=256  → "c100…"
//
// Sorting: "a1…" < "af…" < "b10…" < "c100…"
type Sequential struct {
	counter atomic.Uint64
}

func NewSequential() *Sequential {
	return &Sequential{}
}

func (s *Sequential) NewID() string {
	n := s.counter.Add(1)
	u := uuid.New()
	return formatLex(n) + hex.EncodeToString(u[:8])
}

// hexDigits returns the number of hex digits needed to represent n.
func hexDigits(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n) + 3) / 4
}

// formatLex encodes n using length-prefixed hex format.
// The length prefix is a letter where 'a'=1 hex digit, 'b'=2 hex digits, etc.
// This ensures lexicographic sorting matches numeric sorting.
func formatLex(n uint64) string {
	length := hexDigits(n)
	prefix := byte('a' + length - 1)
	return string(prefix) + strconv.FormatUint(n, 16)
}
