package replay

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// State is the clock's transport state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

var (
	// ErrInvalidSpeed is returned for non-positive speed multipliers. A zero
	// or negative rate would make stream completion undecidable, so it is
	// rejected rather than clamped.
	ErrInvalidSpeed = errors.New("speed multiplier must be positive")

	// ErrSeekOutOfRange is returned when seek progress falls outside [0, 1].
	ErrSeekOutOfRange = errors.New("seek progress must be within [0, 1]")
)

// Clock maps wall-clock elapsed time and a speed multiplier onto a position
// within the indexed event timeline. It owns all replay state and must be
// driven by a single caller: the host invokes Play, Pause, Tick, Seek,
// SetSpeed sequentially, never concurrently, feeding its own notion of "now".
// The clock embeds no scheduler of its own.
type Clock struct {
	index  *EventIndex
	logger *slog.Logger

	state        State
	speed        float64
	elapsed      time.Duration // simulated time since minTimestamp
	anchor       time.Time     // wall-clock reference while playing
	lastRevealed time.Time     // zero value = sentinel below any real timestamp
	completed    bool

	nextSubID    int
	eventSubs    map[int]func(models.Event)
	completeSubs map[int]func()
}

// NewClock wraps an EventIndex in a replay clock starting at Idle, speed 1x.
func NewClock(index *EventIndex, logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{
		index:        index,
		logger:       logger,
		speed:        1,
		eventSubs:    make(map[int]func(models.Event)),
		completeSubs: make(map[int]func()),
	}
}

// Play starts or resumes playback. The wall-clock anchor is chosen so the
// already-accumulated simulated elapsed time is preserved: pausing and
// resuming never jumps or rewinds. A zero-duration timeline (empty or
// single-instant dataset) completes immediately instead of looping.
func (c *Clock) Play(now time.Time) {
	if c.state == StatePlaying {
		return
	}

	_, max, total := c.index.TimeRange()
	if total == 0 {
		for _, it := range c.index.window(c.lastRevealed, max) {
			c.lastRevealed = it.at
			c.emitEvent(it.ev)
		}
		c.state = StatePaused
		c.signalComplete()
		return
	}

	c.anchor = now.Add(-time.Duration(float64(c.elapsed) / c.speed))
	c.state = StatePlaying
}

// Pause freezes simulated time at its current value. After Pause returns,
// Tick is a no-op until the next Play, so no tick can land in between.
func (c *Clock) Pause(now time.Time) {
	if c.state != StatePlaying {
		return
	}
	c.elapsed = c.clampElapsed(c.simulated(now))
	c.state = StatePaused
}

// Tick advances simulated time and returns the events newly revealed since
// the previous call, in global timeline order. When the cutoff reaches the
// end of the timeline the clock pauses itself after returning the final
// batch and signals completion exactly once per play-through. Outside of
// Playing, Tick returns nil.
func (c *Clock) Tick(now time.Time) []models.Event {
	if c.state != StatePlaying {
		return nil
	}

	min, max, _ := c.index.TimeRange()
	c.elapsed = c.clampElapsed(c.simulated(now))
	cutoff := min.Add(c.elapsed)

	window := c.index.window(c.lastRevealed, cutoff)
	var batch []models.Event
	if len(window) > 0 {
		batch = make([]models.Event, len(window))
		for i, it := range window {
			batch[i] = it.ev
		}
		c.lastRevealed = window[len(window)-1].at
	}

	for _, ev := range batch {
		c.emitEvent(ev)
	}

	if !cutoff.Before(max) {
		c.state = StatePaused
		c.signalComplete()
	}
	return batch
}

// Seek jumps to a timeline position given as a progress fraction in [0, 1].
// Out-of-range values are rejected without touching any state. The reveal
// cursor resets so the next tick or snapshot re-surfaces the whole prefix up
// to the new cutoff; downstream consumers rebuild derived state from the
// revealed set rather than from an event delta log.
func (c *Clock) Seek(now time.Time, progress float64) error {
	if math.IsNaN(progress) || progress < 0 || progress > 1 {
		return ErrSeekOutOfRange
	}

	_, _, total := c.index.TimeRange()
	c.elapsed = time.Duration(float64(total) * progress)
	c.lastRevealed = time.Time{}
	if progress < 1 {
		c.completed = false
	}
	if c.state == StatePlaying {
		c.anchor = now.Add(-time.Duration(float64(c.elapsed) / c.speed))
	}
	return nil
}

// SetSpeed changes the playback rate without a discontinuity: the current
// simulated elapsed time is frozen under the old rate, then the wall-clock
// anchor is recomputed for the new one.
func (c *Clock) SetSpeed(now time.Time, multiplier float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return ErrInvalidSpeed
	}

	if c.state == StatePlaying {
		c.elapsed = c.clampElapsed(c.simulated(now))
	}
	c.speed = multiplier
	if c.state == StatePlaying {
		c.anchor = now.Add(-time.Duration(float64(c.elapsed) / c.speed))
	}
	return nil
}

// Progress returns simulated elapsed over total duration, clamped to [0, 1].
// A zero-duration timeline reports 0.
func (c *Clock) Progress() float64 {
	_, _, total := c.index.TimeRange()
	if total == 0 {
		return 0
	}
	p := float64(c.elapsed) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Reset stops playback and returns the clock to Idle at the start of the
// timeline. The speed multiplier is kept.
func (c *Clock) Reset() {
	c.state = StateIdle
	c.elapsed = 0
	c.lastRevealed = time.Time{}
	c.completed = false
}

// Revealed returns every event at or before the current cutoff, in global
// time order. This is the "seen so far" snapshot consumers rebuild from.
func (c *Clock) Revealed() []models.Event {
	return c.index.EventsUpTo(c.elapsed)
}

// CurrentTime returns the absolute simulated instant, or the zero time for
// an empty timeline.
func (c *Clock) CurrentTime() time.Time {
	min, _, _ := c.index.TimeRange()
	if min.IsZero() {
		return time.Time{}
	}
	return min.Add(c.elapsed)
}

// State returns the current transport state.
func (c *Clock) State() State { return c.state }

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// Elapsed returns the current simulated elapsed duration.
func (c *Clock) Elapsed() time.Duration { return c.elapsed }

// OnEvent registers an observer invoked synchronously for each newly
// revealed event. The returned handle unsubscribes it.
func (c *Clock) OnEvent(fn func(models.Event)) func() {
	id := c.nextSubID
	c.nextSubID++
	c.eventSubs[id] = fn
	return func() { delete(c.eventSubs, id) }
}

// OnComplete registers an observer invoked once per full forward
// play-through, when the cutoff reaches the end of the timeline.
func (c *Clock) OnComplete(fn func()) func() {
	id := c.nextSubID
	c.nextSubID++
	c.completeSubs[id] = fn
	return func() { delete(c.completeSubs, id) }
}

func (c *Clock) simulated(now time.Time) time.Duration {
	d := time.Duration(float64(now.Sub(c.anchor)) * c.speed)
	if d < 0 {
		return 0
	}
	return d
}

func (c *Clock) clampElapsed(d time.Duration) time.Duration {
	_, _, total := c.index.TimeRange()
	if d > total {
		return total
	}
	return d
}

func (c *Clock) emitEvent(ev models.Event) {
	for _, id := range sortedIDs(c.eventSubs) {
		fn := c.eventSubs[id]
		c.invoke(func() { fn(ev) })
	}
}

func (c *Clock) signalComplete() {
	if c.completed {
		return
	}
	c.completed = true
	for _, id := range sortedIDs(c.completeSubs) {
		c.invoke(c.completeSubs[id])
	}
}

// invoke isolates observer failures: a panicking observer is logged and
// must not corrupt clock state or starve the remaining observers.
func (c *Clock) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("replay observer panicked", "panic", r)
		}
	}()
	fn()
}

func sortedIDs[T any](subs map[int]T) []int {
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
