package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/ratecheck/internal/source"
)

func TestSourceYieldsUpToLimit(t *testing.T) {
	want := source.Descriptor{Method: "GET", URL: "http://example.com/ping"}
	src := source.New(want, 5)

	var got []source.Descriptor
	for {
		d, ok := src.Next()
		if !ok {
			break
		}
		got = append(got, d)
	}

	require.Len(t, got, 5)
	for _, d := range got {
		assert.Equal(t, want, d)
	}
	assert.Equal(t, 5, src.Emitted())
}

func TestSourceIsNotRestartable(t *testing.T) {
	src := source.New(source.Descriptor{Method: "POST", URL: "http://example.com"}, 1)
	_, ok := src.Next()
	require.True(t, ok)

	_, ok = src.Next()
	assert.False(t, ok)
	_, ok = src.Next()
	assert.False(t, ok)
	assert.Equal(t, 1, src.Emitted())
}

func TestSourceNormalizesMethod(t *testing.T) {
	src := source.New(source.Descriptor{Method: " post ", URL: "http://example.com"}, 1)
	d, ok := src.Next()
	require.True(t, ok)
	assert.Equal(t, "POST", d.Method)

	src = source.New(source.Descriptor{URL: "http://example.com"}, 1)
	d, _ = src.Next()
	assert.Equal(t, "GET", d.Method)
}

func TestSourceNegativeLimit(t *testing.T) {
	src := source.New(source.Descriptor{URL: "http://example.com"}, -3)
	_, ok := src.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, src.Emitted())
}
