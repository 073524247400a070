// Package collector contains the poll cycle controller that reads the
// meter on a fixed interval and forwards readings to the persistence
// sink. Per-cycle failures are logged and the cycle skipped; the loop
// itself runs until the context is cancelled.
package collector

import (
	"context"
	"encoding/hex"
	"io"
	"log"
	"time"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/sml"
)

// New creates a collector over an already opened channel. A nil sink
// disables publishing (readings are still extracted and reported via
// OnResult).
func New(channel io.Reader, registers []Register, sink Sink, opts Options) *Collector {
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &Collector{
		channel:   channel,
		reader:    sml.NewReader(channel),
		registers: registers,
		sink:      sink,
		opts:      opts,
	}
}

// OnResult registers a hook called with every cycle's result, failed
// cycles included. Must be set before Run.
func (c *Collector) OnResult(fn func(*interpreter.PollResult)) {
	c.onResult = fn
}

// GetLatestResult returns the most recent cycle result, or nil before
// the first cycle completes.
func (c *Collector) GetLatestResult() *interpreter.PollResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Run polls until ctx is cancelled. The first cycle starts
// immediately; cancellation is observed at the idle sleep boundary, so
// shutdown latency is bounded by one interval plus one cycle.
func (c *Collector) Run(ctx context.Context) error {
	for {
		res := c.RunOnce(ctx)

		c.mu.Lock()
		c.latest = res
		c.mu.Unlock()
		if c.onResult != nil {
			c.onResult(res)
		}

		c.setState(stateIdle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.Interval):
		}
	}
}

// RunOnce executes a single acquisition cycle.
func (c *Collector) RunOnce(ctx context.Context) *interpreter.PollResult {
	res := &interpreter.PollResult{Timestamp: time.Now()}

	c.setState(stateReading)
	frame, err := c.reader.ReadFrame(time.Now().Add(c.opts.ReadTimeout))
	if err != nil {
		return c.fail(res, "reading frame", err)
	}
	if c.opts.Verbose {
		log.Printf("Frame length: %d", len(frame.Raw))
		log.Printf("%s", hex.EncodeToString(frame.Raw))
	}

	c.setState(stateDecoding)
	tree, err := sml.Decode(frame)
	if err != nil {
		return c.fail(res, "decoding message", err)
	}

	c.setState(stateExtracting)
	wanted := make([]interpreter.OBIS, len(c.registers))
	for i, r := range c.registers {
		wanted[i] = r.OBIS
	}
	res.Readings = interpreter.Extract(tree, wanted)
	res.Success = true
	if c.opts.Verbose {
		for _, rd := range res.Readings {
			log.Printf("%s: %10.3f kWh", rd.OBIS, rd.Value)
		}
	}

	c.setState(statePublishing)
	if c.sink != nil {
		for _, rd := range res.Readings {
			entity, ok := c.entityFor(rd.OBIS)
			if !ok {
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, c.opts.PublishTimeout)
			if err := c.sink.Publish(pubCtx, entity, res.Timestamp, rd.Value); err != nil {
				// Reading is dropped for this cycle, never buffered.
				log.Printf("Sink error for %s: %v", rd.OBIS, err)
			}
			cancel()
		}
	}

	return res
}

func (c *Collector) entityFor(id interpreter.OBIS) (int64, bool) {
	for _, r := range c.registers {
		if r.OBIS == id {
			return r.EntityID, true
		}
	}
	return 0, false
}

// fail moves the controller to backoff: the failure is logged, the
// cycle's reading skipped, and polling resumes at the next interval.
func (c *Collector) fail(res *interpreter.PollResult, stage string, err error) *interpreter.PollResult {
	c.setState(stateBackoff)
	res.Success = false
	res.Error = err.Error()
	log.Printf("Cycle failed while %s: %v", stage, err)
	return res
}

func (c *Collector) setState(s state) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if c.opts.Verbose && prev != s {
		log.Printf("Collector state: %s -> %s", prev, s)
	}
}
