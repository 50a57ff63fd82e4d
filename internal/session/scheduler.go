package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQuietPeriod is how long fields must stay unchanged before a save.
const DefaultQuietPeriod = 2 * time.Second

// SaveFunc performs one save. It reads the freshest field values itself, so
// a countdown that was re-armed many times still saves the latest state.
type SaveFunc func(ctx context.Context) error

// State is the scheduler's externally visible phase.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateInFlight
)

func (s State) String() string {
	switch s {
	case StateCountdown:
		return "countdown"
	case StateInFlight:
		return "in_flight"
	default:
		return "idle"
	}
}

// Scheduler debounces save requests for one entry.
//
// A single event loop owns the countdown timer and the in-flight counter;
// public methods talk to it over channels. Signal (re)arms the countdown,
// Cancel drops it, Flush fires it at once. When serialize is set, a countdown
// that elapses while a save is running is held and fired as soon as that save
// settles, so at most one save per entry runs at a time. Close drops any
// pending countdown; saves already started run to completion.
type Scheduler struct {
	quiet     time.Duration
	serialize bool
	save      SaveFunc

	signalCh  chan struct{}
	cancelCh  chan struct{}
	flushCh   chan struct{}
	settledCh chan error
	stateReq  chan chan State

	running sync.WaitGroup

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewScheduler starts the event loop.
func NewScheduler(quiet time.Duration, serialize bool, save SaveFunc) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	s := &Scheduler{
		quiet:     quiet,
		serialize: serialize,
		save:      save,
		signalCh:  make(chan struct{}),
		cancelCh:  make(chan struct{}),
		flushCh:   make(chan struct{}),
		settledCh: make(chan error),
		stateReq:  make(chan chan State),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.stopped)

	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		inFlight int
		queued   bool
	)

	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
		timerC = nil
	}
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(s.quiet)
		} else {
			timer.Reset(s.quiet)
		}
		timerC = timer.C
	}
	start := func() {
		inFlight++
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			err := s.save(context.Background())
			select {
			case s.settledCh <- err:
			case <-s.stopped:
			}
		}()
	}
	fire := func() {
		if s.serialize && inFlight > 0 {
			queued = true
			return
		}
		start()
	}

	for {
		select {
		case <-s.stopCh:
			disarm()
			return

		case <-s.signalCh:
			arm()

		case <-s.cancelCh:
			disarm()
			queued = false

		case <-s.flushCh:
			disarm()
			fire()

		case <-timerC:
			timerC = nil
			fire()

		case <-s.settledCh:
			inFlight--
			if queued && inFlight == 0 {
				queued = false
				start()
			}

		case resp := <-s.stateReq:
			switch {
			case inFlight > 0:
				resp <- StateInFlight
			case timerC != nil || queued:
				resp <- StateCountdown
			default:
				resp <- StateIdle
			}
		}
	}
}

func (s *Scheduler) send(ch chan struct{}) {
	if s.closed.Load() {
		return
	}
	select {
	case ch <- struct{}{}:
	case <-s.stopped:
	}
}

// Signal restarts the quiet period.
func (s *Scheduler) Signal() { s.send(s.signalCh) }

// Cancel drops a pending countdown.
func (s *Scheduler) Cancel() { s.send(s.cancelCh) }

// Flush saves now instead of waiting for the quiet period.
func (s *Scheduler) Flush() { s.send(s.flushCh) }

// State reports the current phase.
func (s *Scheduler) State() State {
	if s.closed.Load() {
		return StateIdle
	}
	resp := make(chan State, 1)
	select {
	case s.stateReq <- resp:
	case <-s.stopped:
		return StateIdle
	}
	select {
	case st := <-resp:
		return st
	case <-s.stopped:
		return StateIdle
	}
}

// Close stops the loop and drops any pending countdown. It does not wait for
// a running save; use Wait for that.
func (s *Scheduler) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}

// Wait blocks until every started save has returned.
func (s *Scheduler) Wait() {
	s.running.Wait()
}
