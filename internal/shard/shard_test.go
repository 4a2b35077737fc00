package shard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/wordshard/internal/partition"
)

func mustRange(t *testing.T, text string) partition.Range {
	t.Helper()
	r, err := partition.Parse(text)
	require.NoError(t, err)
	return r
}

// TestNewShard tests shard creation
func TestNewShard(t *testing.T) {
	s := NewShard(mustRange(t, "A-I"))

	assert.Equal(t, "A-I", s.Range.String())
	assert.NotNil(t, s.Stats)
	b := s.Batch()
	assert.Equal(t, "A-I", b.LetterRange)
	assert.Equal(t, 0, b.Count)
	assert.Empty(t, b.Words)
}

// TestShardFilter tests range ownership of tokens
func TestShardFilter(t *testing.T) {
	tests := []struct {
		name   string
		rng    string
		tokens []string
		want   []string
	}{
		{name: "full alphabet keeps all", rng: "A-Z", tokens: []string{"cat", "dog"}, want: []string{"cat", "dog"}},
		{name: "keeps repeats", rng: "A-C", tokens: []string{"cat", "zoo", "cat"}, want: []string{"cat", "cat"}},
		{name: "boundaries inclusive", rng: "J-R", tokens: []string{"ice", "jam", "rat", "sun"}, want: []string{"jam", "rat"}},
		{name: "nothing matches", rng: "X-Z", tokens: []string{"cat"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShard(mustRange(t, tt.rng))
			assert.Equal(t, tt.want, s.Filter(tt.tokens))
		})
	}
}

// TestShardCumulativeBatch tests that batches accumulate across lines
func TestShardCumulativeBatch(t *testing.T) {
	s := NewShard(mustRange(t, "A-Z"))

	s.Append([]string{"cat", "dog"})
	first := s.Batch()
	s.Append([]string{"eagle", "cat"})
	second := s.Batch()

	assert.Equal(t, 2, first.Count)
	assert.Equal(t, []string{"cat", "dog"}, first.Words, "earlier batch must not see later appends")
	assert.Equal(t, 4, second.Count)
	assert.Equal(t, []string{"cat", "dog", "eagle", "cat"}, second.Words)

	s.RecordForward()
	info := s.Info()
	assert.Equal(t, uint64(2), info.Lines)
	assert.Equal(t, uint64(1), info.Forwards)
	assert.Equal(t, 4, info.Count)
}

// TestShardConcurrentAppend tests concurrent appends
func TestShardConcurrentAppend(t *testing.T) {
	s := NewShard(mustRange(t, "A-Z"))
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append([]string{"word"})
				_ = s.Batch()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, s.Batch().Count)
	assert.Equal(t, uint64(1000), s.Stats.Matched)
}
