package ir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternFloatDedupesEqualValues(t *testing.T) {
	g := NewGlobalContext()
	a := g.InternFloat(1.5)
	b := g.InternFloat(2.5)
	c := g.InternFloat(1.5)

	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Equal(t, []float32{1.5, 2.5}, g.Floats())
}

func TestInternDoubleKeepsSeparatePoolFromFloat(t *testing.T) {
	g := NewGlobalContext()
	fi := g.InternFloat(1.0)
	di := g.InternDouble(1.0)

	require.Equal(t, 0, fi)
	require.Equal(t, 0, di)
	require.Equal(t, []float32{1.0}, g.Floats())
	require.Equal(t, []float64{1.0}, g.Doubles())
}

// TestInternFloatIsSafeForConcurrentCallers covers spec.md §5's "must be
// serialised by the caller" requirement: many goroutines interning the
// same small set of values concurrently must never corrupt the pool or
// race, and duplicates must still collapse to one entry each.
func TestInternFloatIsSafeForConcurrentCallers(t *testing.T) {
	g := NewGlobalContext()
	values := []float32{1, 2, 3, 4, 5}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		v := values[i%len(values)]
		wg.Add(1)
		go func(v float32) {
			defer wg.Done()
			g.InternFloat(v)
		}(v)
	}
	wg.Wait()

	require.Len(t, g.Floats(), len(values))
}
