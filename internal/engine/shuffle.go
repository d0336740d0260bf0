package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Package-level source seeded from crypto/rand so no two processes ever
// replay the same draw order. math/rand's Shuffle is a Fisher-Yates
// permutation, so every ordering is equally likely.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(cryptoSeed()))
)

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("engine: crypto seed unavailable: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Shuffle returns a uniform random permutation of ids. The input slice is
// left untouched.
func Shuffle(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	rngMu.Lock()
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	rngMu.Unlock()
	return out
}

// insertRandom places id at a uniformly random index of ids, used when an
// undone candidate re-enters the deck.
func insertRandom(ids []string, id string) []string {
	rngMu.Lock()
	i := rng.Intn(len(ids) + 1)
	rngMu.Unlock()
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	out = append(out, ids[i:]...)
	return out
}
