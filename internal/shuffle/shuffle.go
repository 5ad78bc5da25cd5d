// Package shuffle derives deterministic permutations from a session code.
// The same code always yields the same question and answer order, so a
// student who reloads mid-exam sees an identical paper, while two sessions
// with different codes see different ones.
package shuffle

import (
	"fmt"
	"hash/fnv"
)

// Linear congruential generator constants (Knuth MMIX).
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

type lcg struct {
	state uint64
}

func (g *lcg) next() uint64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// intn returns a value in [0, n) using the high bits of the generator
// state; the low bits of an LCG are weak.
func (g *lcg) intn(n int) int {
	return int((g.next() >> 33) % uint64(n))
}

// SeedFromToken hashes an opaque token (the session code) into a seed.
func SeedFromToken(token string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return h.Sum64()
}

// QuestionSeed derives a per-question seed so each question's answer
// options shuffle independently of the question order and of each other.
func QuestionSeed(token string, questionID uint) uint64 {
	return SeedFromToken(fmt.Sprintf("%s:%d", token, questionID))
}

// Perm returns a pseudo-random permutation of [0, n) for the given seed
// via a Fisher-Yates shuffle. It is pure: equal inputs give equal output.
func Perm(seed uint64, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}

	g := &lcg{state: seed}
	for i := n - 1; i > 0; i-- {
		j := g.intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
