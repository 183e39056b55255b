package pipeline

import "time"

// fpsCounter recomputes frames per second once per elapsed second.
type fpsCounter struct {
	now    func() time.Time
	start  time.Time
	frames int
	fps    float64
}

func newFPSCounter(now func() time.Time) *fpsCounter {
	return &fpsCounter{now: now}
}

// tick records a frame and returns the latest rate.
func (c *fpsCounter) tick() float64 {
	t := c.now()
	if c.start.IsZero() {
		c.start = t
	}
	c.frames++

	if elapsed := t.Sub(c.start); elapsed >= time.Second {
		c.fps = float64(c.frames) / elapsed.Seconds()
		c.frames = 0
		c.start = t
	}
	return c.fps
}
