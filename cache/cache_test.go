package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhkl-dev/SonicCLI/domain"
)

func TestTableNormalizesKeys(t *testing.T) {
	table := NewTable[int](Lower)

	table.Put("Daft Punk", 1)
	v, ok := table.Get("DAFT PUNK")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	table.Put("daft punk", 2)
	v, _ = table.Get("Daft Punk")
	assert.Equal(t, 2, v, "newest write wins")
	assert.Equal(t, 1, table.Len())
}

func TestTableMissDoesNotCreateEntry(t *testing.T) {
	table := NewTable[string](nil)

	_, ok := table.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())

	table.Put("Key", "v")
	_, ok = table.Get("key")
	assert.False(t, ok, "exact normalizer is case sensitive")
}

func TestResultCacheSearch(t *testing.T) {
	c := New()
	tracks := []domain.Track{
		{ID: "t1", Title: "One More Time", Duration: 320},
		{ID: "t2", Title: "Aerodynamic", Duration: 212},
	}

	c.StoreSearch("Daft Punk", tracks, map[string]string{"t2": "https://cdn/t2", "": "ignored"})

	got, ok := c.Search("daft punk")
	require.True(t, ok)
	assert.Equal(t, tracks, got)

	got[0].Title = "mutated"
	again, _ := c.Search("daft punk")
	assert.Equal(t, "One More Time", again[0].Title, "callers get a copy")

	_, ok = c.StreamURL("t1")
	assert.False(t, ok)
	url, ok := c.StreamURL("t2")
	require.True(t, ok)
	assert.Equal(t, "https://cdn/t2", url)
}

func TestResultCacheStreams(t *testing.T) {
	c := New()

	c.StoreStream("t1", "a")
	c.StoreStream("t1", "b")
	url, ok := c.StreamURL("t1")
	require.True(t, ok)
	assert.Equal(t, "b", url)

	_, ok = c.StreamURL("T1")
	assert.False(t, ok)
}
