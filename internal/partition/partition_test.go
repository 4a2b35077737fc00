package partition

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Range
		wantErr bool
	}{
		{name: "full alphabet", text: "A-Z", want: Range{Start: 'A', End: 'Z'}},
		{name: "lowercase", text: "a-m", want: Range{Start: 'A', End: 'M'}},
		{name: "single letter", text: "Q-Q", want: Range{Start: 'Q', End: 'Q'}},
		{name: "no separator", text: "AZ", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "two separators", text: "A-M-Z", wantErr: true},
		{name: "empty start", text: "-Z", wantErr: true},
		{name: "empty end", text: "A-", wantErr: true},
		{name: "multi letter token", text: "AB-Z", wantErr: true},
		{name: "digit", text: "1-9", wantErr: true},
		{name: "reversed", text: "Z-A", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 'A', End: 'M'}

	assert.True(t, r.Contains('a'))
	assert.True(t, r.Contains('M'))
	assert.False(t, r.Contains('n'))
	assert.True(t, r.ContainsWord("mango"))
	assert.True(t, r.ContainsWord("Apple"))
	assert.False(t, r.ContainsWord("zebra"))
	assert.False(t, r.ContainsWord(""))
	assert.Equal(t, 13, r.Size())
}

func TestRangeJSON(t *testing.T) {
	type entry struct {
		Range *Range `json:"range"`
	}

	data, err := json.Marshal(entry{Range: &Range{Start: 'J', End: 'R'}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":"J-R"}`, string(data))

	data, err = json.Marshal(entry{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":null}`, string(data))

	var decoded entry
	require.NoError(t, json.Unmarshal([]byte(`{"range":"s-z"}`), &decoded))
	require.NotNil(t, decoded.Range)
	assert.Equal(t, "S-Z", decoded.Range.String())

	assert.Error(t, json.Unmarshal([]byte(`{"range":"SZ"}`), &decoded))
}

func TestAssign(t *testing.T) {
	tests := []struct {
		n    int
		want []string
	}{
		{n: 1, want: []string{"A-Z"}},
		{n: 2, want: []string{"A-M", "N-Z"}},
		{n: 3, want: []string{"A-I", "J-R", "S-Z"}},
		{n: 4, want: []string{"A-G", "H-N", "O-U", "V-Z"}},
		{n: 10, want: []string{"A-C", "D-F", "G-I", "J-L", "M-O", "P-R", "S-U", "V-X", "Y-Z", ""}},
	}

	for _, tt := range tests {
		got := Assign(tt.n)
		require.Len(t, got, tt.n)
		for i, r := range got {
			if tt.want[i] == "" {
				assert.Nil(t, r, "worker %d of %d", i, tt.n)
				continue
			}
			require.NotNil(t, r, "worker %d of %d", i, tt.n)
			assert.Equal(t, tt.want[i], r.String())
		}
	}

	assert.Nil(t, Assign(0))
}

func TestAssignCoversAlphabet(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(rt, "workers")
		ranges := Assign(n)

		if len(ranges) != n {
			rt.Fatalf("got %d ranges for %d workers", len(ranges), n)
		}

		next := byte('A')
		seenNil := false
		for i, r := range ranges {
			if r == nil {
				seenNil = true
				continue
			}
			if seenNil {
				rt.Fatalf("worker %d has a range after an unassigned worker", i)
			}
			if r.Start != next {
				rt.Fatalf("worker %d starts at %c, want %c", i, r.Start, next)
			}
			if r.End < r.Start {
				rt.Fatalf("worker %d has inverted range %s", i, r)
			}
			next = r.End + 1
		}
		if next != 'Z'+1 {
			rt.Fatalf("ranges stop at %c", next-1)
		}
	})
}
