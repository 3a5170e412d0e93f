package player

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"groovebox/internal/music/queue"
	"groovebox/internal/music/sources"
	"groovebox/internal/music/voice"
)

// State is the lifecycle phase of a playback session.
type State string

const (
	StateIdle         State = "Idle"
	StateConnecting   State = "Connecting"
	StatePlaying      State = "Playing"
	StatePaused       State = "Paused"
	StateDisconnected State = "Disconnected"
)

// DefaultIdleTimeout is how long an empty session stays connected before
// tearing itself down.
const DefaultIdleTimeout = 60 * time.Second

// maxStartFailures bounds how many broken queued items the advance loop
// will burn through in a row before giving up and going idle.
const maxStartFailures = 3

// Opener creates the PCM stream for a song. The returned cleanup kills the
// underlying decoder and is safe to call after the reader is drained.
type Opener interface {
	Open(ctx context.Context, song sources.Song) (io.ReadCloser, func(), error)
}

type eventKind int

const (
	evKick eventKind = iota
	evStreamEnd
	evIdleExpired
)

type event struct {
	kind eventKind
	gen  int
	song sources.Song
	err  error
}

// Session is the per-guild playback state machine. It owns one queue, at
// most one voice connection, at most one in-flight stream and at most one
// armed idle timer.
//
// All state lives behind mu. Stream completions and timer expiries arrive
// from foreign goroutines as events on a channel drained by a single run
// goroutine, so the advance loop is never entered concurrently.
type Session struct {
	guildID string
	dialer  voice.Dialer
	opener  Opener

	ctx    context.Context
	cancel context.CancelFunc
	events chan event

	mu          sync.Mutex
	state       State
	conn        voice.Conn
	queue       *queue.Queue
	idleTimeout time.Duration
	idleTimer   *time.Timer
	timerGen    int
	streamGen   int
	failStreak  int

	onClose    func(guildID string)
	removeFile func(string) error // os.Remove, replaceable in tests
}

func newSession(guildID string, dialer voice.Dialer, opener Opener, idleTimeout time.Duration, onClose func(string)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		guildID:     guildID,
		dialer:      dialer,
		opener:      opener,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan event, 8),
		state:       StateIdle,
		queue:       queue.New(),
		idleTimeout: idleTimeout,
		onClose:     onClose,
		removeFile:  os.Remove,
	}
	go s.run()
	return s
}

func (s *Session) GuildID() string {
	return s.guildID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect joins channelID, moving if already connected elsewhere. It is
// idempotent for the channel the session is already in.
func (s *Session) Connect(ctx context.Context, channelID string) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == StateConnecting {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if s.conn != nil {
		conn := s.conn
		s.mu.Unlock()
		if conn.ChannelID() == channelID {
			return nil
		}
		if err := conn.Move(channelID); err != nil {
			return &VoiceConnectError{ChannelID: channelID, Err: err}
		}
		return nil
	}
	prev := s.state
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dialer.Join(ctx, s.guildID, channelID)

	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Disconnect()
		}
		return ErrSessionClosed
	}
	if err != nil {
		s.state = prev
		s.mu.Unlock()
		return &VoiceConnectError{ChannelID: channelID, Err: err}
	}
	s.conn = conn
	s.state = prev
	// The idle countdown is armed only by the playback loop finding the
	// queue empty, never here: the caller may still be resolving input, and
	// a teardown racing that resolution would swallow its enqueue.
	pending := s.queue.Len()
	s.mu.Unlock()

	// Songs queued while the handshake was in flight are waiting on us.
	if pending > 0 {
		s.post(event{kind: evKick})
	}
	return nil
}

// Connected reports whether a voice connection is held.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Enqueue appends songs and starts the playback loop if the session is
// sitting idle. Any armed idle timer is cancelled first, so a song queued
// during the idle countdown always plays instead of being lost to a
// disconnect race.
func (s *Session) Enqueue(songs ...sources.Song) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		for _, song := range songs {
			s.deleteTemp(song)
		}
		return ErrSessionClosed
	}
	s.queue.Enqueue(songs...)
	s.stopIdleTimerLocked()
	idle := s.state != StatePlaying && s.state != StatePaused
	s.mu.Unlock()

	if idle {
		s.post(event{kind: evKick})
	}
	return nil
}

// Skip stops the active stream; the voice layer fires the completion
// continuation exactly once, which is the same path a natural track end
// takes, so history and advancement are never duplicated.
func (s *Session) Skip() error {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StatePaused {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	conn := s.conn
	s.mu.Unlock()

	conn.Stop()
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return ErrInvalidState
	}
	s.conn.Pause()
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return ErrInvalidState
	}
	s.conn.Resume()
	s.state = StatePlaying
	return nil
}

// StopAndClear stops any active stream and empties the queue, keeping the
// voice connection. Cleared pending uploads are deleted here; the current
// song's upload is deleted by its completion continuation.
func (s *Session) StopAndClear() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	removed := s.queue.Clear()
	active := s.state == StatePlaying || s.state == StatePaused
	conn := s.conn
	s.mu.Unlock()

	for _, song := range removed {
		s.deleteTemp(song)
	}
	if active && conn != nil {
		conn.Stop()
	}
	return nil
}

// Disconnect tears the session down: cancels the idle timer, stops the
// stream, releases the voice connection, clears the queue and deletes every
// lingering uploaded file. Safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.stopIdleTimerLocked()
	prev := s.state
	s.state = StateDisconnected
	// Stale the in-flight continuation: its temp cleanup moves here.
	s.streamGen++

	var lingering []sources.Song
	if cur, ok := s.queue.Current(); ok && (prev == StatePlaying || prev == StatePaused) {
		lingering = append(lingering, cur)
	}
	lingering = append(lingering, s.queue.Clear()...)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		if prev == StatePlaying || prev == StatePaused {
			conn.Stop()
		}
		if err := conn.Disconnect(); err != nil {
			log.Printf("[Session %s] Voice disconnect error: %v", s.guildID, err)
		}
	}
	for _, song := range lingering {
		s.deleteTemp(song)
	}

	s.cancel()
	log.Printf("[Session %s] Disconnected", s.guildID)

	if s.onClose != nil {
		s.onClose(s.guildID)
	}
}

// Queue accessors. The queue itself is unexported; commands reach it
// through the session so all access stays serialized.

func (s *Session) Current() (sources.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying && s.state != StatePaused {
		return sources.Song{}, false
	}
	return s.queue.Current()
}

func (s *Session) Upcoming(n int) []sources.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PeekUpcoming(n)
}

func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Session) History() []sources.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.History()
}

// RemoveTrack removes the pending song at index; out of range reports
// failure without touching the queue.
func (s *Session) RemoveTrack(index int) (sources.Song, bool) {
	s.mu.Lock()
	song, ok := s.queue.Remove(index)
	s.mu.Unlock()
	if ok {
		s.deleteTemp(song)
	}
	return song, ok
}

// MoveTrack relocates a pending song.
func (s *Session) MoveTrack(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Move(from, to)
}

// Shuffle randomizes the pending queue.
func (s *Session) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Shuffle()
}

// run is the session's control loop. It is the only goroutine that enters
// advance, which makes "at most one advance at a time" true by
// construction.
func (s *Session) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			switch ev.kind {
			case evKick:
				s.advance()

			case evStreamEnd:
				s.mu.Lock()
				stale := s.state == StateDisconnected || ev.gen != s.streamGen
				if !stale {
					s.state = StateIdle
					s.queue.FinishCurrent()
				}
				s.mu.Unlock()
				if stale {
					continue
				}
				if ev.err != nil {
					log.Printf("[Session %s] Stream ended with error: %v", s.guildID, ev.err)
				}
				s.deleteTemp(ev.song)
				s.advance()

			case evIdleExpired:
				s.mu.Lock()
				expired := s.state == StateIdle && ev.gen == s.timerGen && s.queue.Len() == 0
				s.mu.Unlock()
				if expired {
					log.Printf("[Session %s] Idle for %v, disconnecting", s.guildID, s.idleTimeout)
					s.Disconnect()
				}
			}
		}
	}
}

// advance drives the play → wait → play-next loop: dequeue, open the audio
// stream, hand it to the voice connection and register the one completion
// continuation. Streaming failures are logged and the next item is tried,
// bounded by maxStartFailures; an empty queue arms the idle timer.
func (s *Session) advance() {
	for {
		s.mu.Lock()
		if s.state != StateIdle {
			// Busy, torn down, or mid-handshake; Connect kicks again once
			// the connection is up.
			s.mu.Unlock()
			return
		}
		s.stopIdleTimerLocked()

		song, ok := s.queue.DequeueNext()
		if !ok {
			s.state = StateIdle
			s.armIdleTimerLocked()
			s.mu.Unlock()
			return
		}
		conn := s.conn
		s.mu.Unlock()

		if conn == nil {
			log.Printf("[Session %s] Dropping %q: no voice connection", s.guildID, song.Title)
			s.deleteTemp(song)
			continue
		}

		pcm, cleanup, err := s.opener.Open(s.ctx, song)
		if err != nil {
			log.Printf("[Session %s] Skipping %q: %v", s.guildID, song.Title, err)
			s.deleteTemp(song)
			if s.bumpFailStreak() {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.state == StateDisconnected {
			s.mu.Unlock()
			cleanup()
			pcm.Close()
			s.deleteTemp(song)
			return
		}
		s.failStreak = 0
		s.streamGen++
		gen := s.streamGen
		s.state = StatePlaying
		conn = s.conn
		s.mu.Unlock()

		err = conn.Play(pcm, func(streamErr error) {
			cleanup()
			s.post(event{kind: evStreamEnd, gen: gen, song: song, err: streamErr})
		})
		if err != nil {
			log.Printf("[Session %s] Failed to start %q: %v", s.guildID, song.Title, err)
			cleanup()
			pcm.Close()
			s.deleteTemp(song)
			s.mu.Lock()
			if s.state == StatePlaying {
				s.state = StateIdle
			}
			s.mu.Unlock()
			if s.bumpFailStreak() {
				return
			}
			continue
		}

		log.Printf("[Session %s] Now playing %q", s.guildID, song.Title)
		return
	}
}

// bumpFailStreak counts a failed start and reports whether the loop should
// stop auto-advancing. After too many broken items in a row the session
// goes idle rather than chewing through the rest of the queue.
func (s *Session) bumpFailStreak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStreak++
	if s.failStreak < maxStartFailures {
		return false
	}
	log.Printf("[Session %s] %d consecutive playback failures, pausing auto-advance", s.guildID, s.failStreak)
	s.failStreak = 0
	if s.state != StateDisconnected {
		s.state = StateIdle
		s.armIdleTimerLocked()
	}
	return true
}

// post hands an event to the run loop. It blocks until accepted so stream
// completions are never lost, except when the session is already gone.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) armIdleTimerLocked() {
	if s.idleTimeout <= 0 {
		return
	}
	s.timerGen++
	gen := s.timerGen
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.post(event{kind: evIdleExpired, gen: gen})
	})
}

func (s *Session) stopIdleTimerLocked() {
	s.timerGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// deleteTemp removes the file behind an uploaded song. Callers are
// structured so this runs at most once per song: either its completion
// continuation, the clear that dropped it, or session teardown.
func (s *Session) deleteTemp(song sources.Song) {
	if !song.Temporary || song.Locator == "" {
		return
	}
	if err := s.removeFile(song.Locator); err != nil && !os.IsNotExist(err) {
		log.Printf("[Session %s] Failed to delete upload %s: %v", s.guildID, song.Locator, err)
	}
}
