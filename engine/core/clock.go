package core

import "time"

type Clock struct {
	startTime float64
	elapsed   float64
	lastTick  float64
	delta     float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called once per frame, just before
// checking elapsed or delta time. Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = (float64(time.Now().UnixNano()) - c.startTime) / float64(time.Second)
		c.delta = c.elapsed - c.lastTick
		c.lastTick = c.elapsed
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = float64(time.Now().UnixNano())
	c.elapsed = 0
	c.lastTick = 0
	c.delta = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Elapsed returns the seconds since Start, as of the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Delta returns the seconds between the last two Update calls.
func (c *Clock) Delta() float64 {
	return c.delta
}
