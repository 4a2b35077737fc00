package shard

import (
	"sync"
	"sync/atomic"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/partition"
)

// Shard is the running word batch a worker accumulates for one letter range.
// It only grows: words are appended in arrival order and never deduplicated.
type Shard struct {
	Stats *ShardStats     // Operation statistics
	words []string        // Every matched word, repeats included
	Range partition.Range // Letters this shard owns
	mu    sync.RWMutex    // Protects words
}

// ShardStats tracks operation counts
type ShardStats struct {
	Lines    uint64 // Lines offered to the shard
	Matched  uint64 // Words appended
	Forwards uint64 // Batches handed to the transport
}

// ShardInfo contains metadata about a shard
type ShardInfo struct {
	Range    string   `json:"range"`
	Words    []string `json:"words"`
	Count    int      `json:"count"`
	Lines    uint64   `json:"lines"`
	Forwards uint64   `json:"forwards"`
}

// NewShard creates an empty batch for r
func NewShard(r partition.Range) *Shard {
	return &Shard{
		Range: r,
		Stats: &ShardStats{},
	}
}

// OwnsWord determines if a word belongs to this shard's range
func (s *Shard) OwnsWord(word string) bool {
	return s.Range.ContainsWord(word)
}

// Filter keeps the tokens this shard owns, preserving order and repeats
func (s *Shard) Filter(tokens []string) []string {
	var matched []string
	for _, tok := range tokens {
		if s.OwnsWord(tok) {
			matched = append(matched, tok)
		}
	}
	return matched
}

// Append adds matched words to the running batch and counts the line
func (s *Shard) Append(words []string) {
	atomic.AddUint64(&s.Stats.Lines, 1)
	atomic.AddUint64(&s.Stats.Matched, uint64(len(words)))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = append(s.words, words...)
}

// Batch returns a copy of the cumulative batch ready to send
func (s *Shard) Batch() cluster.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := make([]string, len(s.words))
	copy(words, s.words)
	return cluster.Batch{
		LetterRange: s.Range.String(),
		Count:       len(words),
		Words:       words,
	}
}

// RecordForward counts one batch handed to the transport
func (s *Shard) RecordForward() {
	atomic.AddUint64(&s.Stats.Forwards, 1)
}

// Info returns metadata about the shard
func (s *Shard) Info() ShardInfo {
	b := s.Batch()
	return ShardInfo{
		Range:    b.LetterRange,
		Count:    b.Count,
		Words:    b.Words,
		Lines:    atomic.LoadUint64(&s.Stats.Lines),
		Forwards: atomic.LoadUint64(&s.Stats.Forwards),
	}
}
