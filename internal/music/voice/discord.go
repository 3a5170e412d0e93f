package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// DiscordDialer joins guild voice channels over an open discordgo session.
type DiscordDialer struct {
	dg *discordgo.Session
}

func NewDialer(dg *discordgo.Session) *DiscordDialer {
	return &DiscordDialer{dg: dg}
}

func (d *DiscordDialer) Join(ctx context.Context, guildID, channelID string) (Conn, error) {
	vc, err := d.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	log.Printf("[Voice] Joined voice channel %s on guild %s", channelID, guildID)
	return &discordConn{vc: vc, channelID: channelID}, nil
}

// playback is one active stream. The sender goroutine owns the encode loop;
// stopOnce/doneOnce guarantee that stopping and completion each happen once.
type playback struct {
	stop     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
	mu       sync.Mutex
	paused   bool
}

func (pb *playback) setPaused(v bool) {
	pb.mu.Lock()
	pb.paused = v
	pb.mu.Unlock()
}

func (pb *playback) isPaused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

type discordConn struct {
	mu        sync.Mutex
	vc        *discordgo.VoiceConnection
	cur       *playback
	channelID string // snapshot, updated on Move; vc's own field is not ours to read
}

func (c *discordConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *discordConn) Move(channelID string) error {
	if err := c.vc.ChangeChannel(channelID, false, true); err != nil {
		return fmt.Errorf("failed to move voice channel: %w", err)
	}
	c.mu.Lock()
	c.channelID = channelID
	c.mu.Unlock()
	return nil
}

func (c *discordConn) Play(pcm io.ReadCloser, onDone func(error)) error {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return errors.New("a stream is already active on this connection")
	}
	pb := &playback{stop: make(chan struct{})}
	c.cur = pb
	c.mu.Unlock()

	go func() {
		err := c.send(pcm, pb)
		pcm.Close()

		c.mu.Lock()
		if c.cur == pb {
			c.cur = nil
		}
		c.mu.Unlock()

		// Natural end of the source is not an error.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		pb.doneOnce.Do(func() { onDone(err) })
	}()
	return nil
}

// send encodes PCM frames to opus and pushes them to Discord until the
// source drains or the stream is stopped.
func (c *discordConn) send(pcm io.Reader, pb *playback) error {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	_ = c.vc.Speaking(true)
	defer func() { _ = c.vc.Speaking(false) }()

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-pb.stop:
			return nil
		default:
		}

		if pb.isPaused() {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		if _, err := io.ReadFull(pcm, pcmBuf); err != nil {
			return err
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case c.vc.OpusSend <- opus:
		case <-pb.stop:
			return nil
		}
	}
}

func (c *discordConn) Stop() {
	c.mu.Lock()
	pb := c.cur
	c.mu.Unlock()
	if pb != nil {
		pb.stopOnce.Do(func() { close(pb.stop) })
	}
}

func (c *discordConn) Pause() {
	c.mu.Lock()
	pb := c.cur
	c.mu.Unlock()
	if pb != nil {
		pb.setPaused(true)
	}
}

func (c *discordConn) Resume() {
	c.mu.Lock()
	pb := c.cur
	c.mu.Unlock()
	if pb != nil {
		pb.setPaused(false)
	}
}

func (c *discordConn) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil && !c.cur.isPaused()
}

func (c *discordConn) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil && c.cur.isPaused()
}

func (c *discordConn) Disconnect() error {
	c.Stop()
	return c.vc.Disconnect()
}
