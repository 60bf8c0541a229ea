package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/index"
)

func buildIndex() *index.InvertedIndex {
	ii := index.NewInvertedIndex()
	ii.Add(0, "title", []string{"the", "quick", "brown", "fox"})
	ii.Add(1, "title", []string{"the", "brown", "dog"})
	ii.Add(2, "title", []string{"quick", "reference", "guide"})
	return ii
}

func TestBM25(t *testing.T) {
	ii := buildIndex()
	sim := NewBM25()

	t.Run("IDF calculation", func(t *testing.T) {
		// "quick" appears in 2 of 3 docs
		expected := math.Log(3.0 / 2.0)
		assert.InDelta(t, expected, idf(3, 2), 0.0001)
		assert.Equal(t, 0.0, idf(3, 0))
		assert.Equal(t, 0.0, idf(0, 0))
	})

	t.Run("shorter fields score higher", func(t *testing.T) {
		long := sim.Score(Stats(ii, 3, "title", "quick", 0))
		short := sim.Score(Stats(ii, 3, "title", "quick", 2))
		assert.Greater(t, long, 0.0)
		assert.Greater(t, short, long)

		brownLong := sim.Score(Stats(ii, 3, "title", "brown", 0))
		brownShort := sim.Score(Stats(ii, 3, "title", "brown", 1))
		assert.Greater(t, brownShort, brownLong)
	})

	t.Run("missing term scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, sim.Score(Stats(ii, 3, "title", "zebra", 0)))
		assert.Equal(t, 0.0, sim.Score(Stats(ii, 3, "title", "fox", 1)))
	})

	t.Run("term in every document scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, sim.Score(TermStats{TermFreq: 1, DocFreq: 3, DocCount: 3, FieldLength: 3, AvgFieldLength: 3}))
	})
}

func TestStats(t *testing.T) {
	stats := Stats(buildIndex(), 3, "title", "brown", 1)
	assert.Equal(t, 1.0, stats.TermFreq)
	assert.Equal(t, 3, stats.FieldLength)
	assert.InDelta(t, 10.0/3.0, stats.AvgFieldLength, 0.0001)
	assert.Equal(t, 2, stats.DocFreq)
	assert.Equal(t, 3, stats.DocCount)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, BM25Name, provider(nil).Name())

	provider, err = NewProvider(BooleanName)
	require.NoError(t, err)
	sim := provider(nil)
	assert.Equal(t, BooleanName, sim.Name())
	assert.Equal(t, 1.0, sim.Score(TermStats{TermFreq: 3}))
	assert.Equal(t, 0.0, sim.Score(TermStats{}))

	_, err = NewProvider("DFR")
	assert.Error(t, err)
}
