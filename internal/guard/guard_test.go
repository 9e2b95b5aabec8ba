package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaseRunsInReverseOrder(t *testing.T) {
	var order []int
	g := New()
	for i := 0; i < 5; i++ {
		i := i
		g.Track(func() { order = append(order, i) })
	}
	g.Release()
	assert.Equal(t, []int{4, 3, 2, 1, 0}, order)
}

func TestReleaseIsIdempotent(t *testing.T) {
	calls := 0
	g := New()
	g.Track(func() { calls++ })
	g.Release()
	g.Release()
	assert.Equal(t, 1, calls)
}

func TestTrackPanicsPastLimit(t *testing.T) {
	g := New()
	assert.NotPanics(t, func() {
		for i := 0; i < MaxHandles; i++ {
			g.Track(func() {})
		}
	})
	assert.Panics(t, func() {
		g.Track(func() {})
	})
}
