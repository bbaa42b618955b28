package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageOverWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// a second window must not accumulate on top of the first
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.020)
	}
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)
}

func TestMetricsFPSOncePerSecond(t *testing.T) {
	m := NewMetrics()
	produced := 0
	for i := 0; i < 100; i++ {
		if m.Update(0.025) {
			produced++
		}
	}
	// 100 frames of 25ms is two and a half seconds
	assert.Equal(t, 2, produced)
	assert.InDelta(t, 40.0, m.FPS(), 1)
}

func TestClockMeasuresSeconds(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())
	assert.False(t, c.Running())

	c.Start()
	c.Update()
	assert.True(t, c.Running())
	assert.GreaterOrEqual(t, c.Elapsed(), 0.0)
	assert.Less(t, c.Elapsed(), 1.0)

	c.Stop()
	assert.False(t, c.Running())
}
