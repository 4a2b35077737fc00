package storage

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/slices"
)

// Store defines the aggregate word table.
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Merge adds each word to the bucket of its first letter unless that
	// exact word is already there. Returns how many words were new.
	Merge(words []string) int

	// Rows returns the table sorted by letter
	Rows() []Row

	// Stats returns table statistics
	Stats() StoreStats
}

// Row is one letter of the results table.
type Row struct {
	Letter string `json:"letter"`
	Words  string `json:"words"`
	Count  int    `json:"count"`
}

// StoreStats contains statistics about the table
type StoreStats struct {
	Letters    int `json:"letters"`    // Number of non-empty buckets
	Words      int `json:"words"`      // Distinct words across all buckets
	Merged     int `json:"merged"`     // Words offered to Merge, including repeats
	Duplicates int `json:"duplicates"` // Words ignored because they were already present
}

// bucket keeps insertion order for display and a set for membership.
type bucket struct {
	seen  map[string]struct{}
	words []string
}

// MemoryStore implements Store with in-memory buckets.
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	buckets map[string]*bucket // lowercase first letter -> bucket
	stats   StoreStats
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty table
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
	}
}

// Merge is idempotent per word: replaying the same words, or a longer
// cumulative list containing them, never double counts.
func (m *MemoryStore) Merge(words []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, word := range words {
		if word == "" {
			continue
		}
		m.stats.Merged++
		key := letterKey(word)
		b, ok := m.buckets[key]
		if !ok {
			b = &bucket{seen: make(map[string]struct{})}
			m.buckets[key] = b
		}
		if _, dup := b.seen[word]; dup {
			m.stats.Duplicates++
			continue
		}
		b.seen[word] = struct{}{}
		b.words = append(b.words, word)
		added++
	}
	return added
}

// Rows returns a fresh copy of the table sorted by letter
func (m *MemoryStore) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.buckets))
	for k := range m.buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		b := m.buckets[k]
		rows = append(rows, Row{
			Letter: strings.ToUpper(k),
			Count:  len(b.words),
			Words:  strings.Join(b.words, ", "),
		})
	}
	return rows
}

// Count returns the number of distinct words for letter (either case).
func (m *MemoryStore) Count(letter string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.buckets[strings.ToLower(letter)]; ok {
		return len(b.words)
	}
	return 0
}

// Stats returns table statistics
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.Letters = len(m.buckets)
	for _, b := range m.buckets {
		stats.Words += len(b.words)
	}
	return stats
}

func letterKey(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(unicode.ToLower(r))
}
