package collector

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/sml"
)

// Sink receives one value per matched register per cycle. A failed
// publish is logged and dropped; the collector never retries within
// the cycle.
type Sink interface {
	Publish(ctx context.Context, entityID int64, ts time.Time, value float64) error
}

// Register pairs a wanted OBIS code with the sink entity it feeds.
type Register struct {
	OBIS     interpreter.OBIS
	EntityID int64
}

type state int

const (
	stateIdle state = iota
	stateReading
	stateDecoding
	stateExtracting
	statePublishing
	stateBackoff
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateReading:
		return "reading"
	case stateDecoding:
		return "decoding"
	case stateExtracting:
		return "extracting"
	case statePublishing:
		return "publishing"
	case stateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

type Options struct {
	Interval       time.Duration // cycle interval, default 60s
	ReadTimeout    time.Duration // per-cycle frame read window, default 3s
	PublishTimeout time.Duration // per-publish bound, default 5s
	Verbose        bool
}

// Collector drives the read -> decode -> extract -> publish cycle on a
// fixed interval. It owns the channel for the process lifetime; the
// caller opens it at startup and closes it on shutdown.
type Collector struct {
	channel   io.Reader
	reader    *sml.Reader
	registers []Register
	sink      Sink
	opts      Options

	onResult func(*interpreter.PollResult)

	mu     sync.RWMutex
	state  state
	latest *interpreter.PollResult
}
