package progress

import (
	"fmt"
	"sync"
	"time"
)

// TimeLayout is the timestamp prefix of rendered lines.
const TimeLayout = "2006-01-02 15:04:05"

// Line is one timestamped progress message.
type Line struct {
	// Time is when the line was produced.
	Time time.Time
	// Text is the message without trailing newline.
	Text string
}

// String renders the line as "[2006-01-02 15:04:05] text".
func (l Line) String() string {
	return fmt.Sprintf("[%s] %s", l.Time.Format(TimeLayout), l.Text)
}

// Publisher accepts progress text. Publish must not block on observers.
type Publisher interface {
	Publish(text string)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(text string)

// Publish calls f(text).
func (f PublisherFunc) Publish(text string) {
	f(text)
}

// Discard drops every line.
//
//nolint:gochecknoglobals // Stateless sink.
var Discard Publisher = PublisherFunc(func(string) {})

// Publishf formats and publishes a line.
func Publishf(p Publisher, format string, args ...any) {
	p.Publish(fmt.Sprintf(format, args...))
}

// Observer receives lines on the feed's consumer goroutine.
type Observer func(Line)

// Feed is an ordered, unbounded queue drained by a single goroutine that hands each
// line to the observers. Producers never wait for observers.
type Feed struct {
	observers []Observer
	now       func() time.Time

	mu      sync.Mutex
	pending []Line
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewFeed starts a feed delivering to observers.
func NewFeed(observers ...Observer) *Feed {
	return newFeed(time.Now, observers...)
}

func newFeed(now func() time.Time, observers ...Observer) *Feed {
	f := &Feed{
		observers: observers,
		now:       now,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	go f.drain()

	return f
}

// Publish timestamps text and queues it. Lines published after Close are dropped.
func (f *Feed) Publish(text string) {
	line := Line{Time: f.now(), Text: text}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	f.pending = append(f.pending, line)

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting lines and waits until everything queued has been delivered.
func (f *Feed) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.wake)
	}
	f.mu.Unlock()

	<-f.done
}

func (f *Feed) drain() {
	defer close(f.done)

	for {
		_, open := <-f.wake

		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()

		for _, line := range batch {
			for _, observe := range f.observers {
				observe(line)
			}
		}

		if !open {
			return
		}
	}
}

// Recorder keeps every published text in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Publish appends text.
func (r *Recorder) Publish(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, text)
}

// Lines returns a copy of the recorded texts.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.lines...)
}
