package player

import (
	"sync"
	"time"

	"groovebox/internal/music/voice"
)

// Registry maps guild IDs to their playback sessions. Sessions are created
// lazily and remove themselves when they disconnect.
type Registry struct {
	dialer      voice.Dialer
	opener      Opener
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// SessionInfo is a point-in-time view of one session, shaped for the
// status endpoint.
type SessionInfo struct {
	GuildID   string `json:"guild_id"`
	State     string `json:"state"`
	NowTitle  string `json:"now_playing,omitempty"`
	QueueSize int    `json:"queue_size"`
}

func NewRegistry(dialer voice.Dialer, opener Opener, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		dialer:      dialer,
		opener:      opener,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for guildID, making one if needed.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := newSession(guildID, r.dialer, r.opener, r.idleTimeout, r.drop)
	r.sessions[guildID] = s
	return s
}

// Get returns the session for guildID if one exists.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove disconnects and forgets the guild's session. The entry is popped
// under the lock and torn down outside it so the session's own close
// callback cannot deadlock against us.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()
	if ok {
		s.Disconnect()
	}
}

// drop is the session close callback: forget the entry without another
// Disconnect round trip.
func (r *Registry) drop(guildID string) {
	r.mu.Lock()
	delete(r.sessions, guildID)
	r.mu.Unlock()
}

// Snapshot lists every live session.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(live))
	for _, s := range live {
		info := SessionInfo{
			GuildID:   s.GuildID(),
			State:     string(s.State()),
			QueueSize: s.QueueLen(),
		}
		if cur, ok := s.Current(); ok {
			info.NowTitle = cur.Title
		}
		infos = append(infos, info)
	}
	return infos
}

// Shutdown disconnects every session. Used on process exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range live {
		s.Disconnect()
	}
}
