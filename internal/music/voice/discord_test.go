package voice

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnChannelIDIsSnapshot(t *testing.T) {
	c := &discordConn{channelID: "chan-1"}
	assert.Equal(t, "chan-1", c.ChannelID())
}

func TestConnChannelIDConcurrentReads(t *testing.T) {
	// Readers race a writer taking the same path Move takes after a
	// successful channel change; the race detector keeps this honest.
	c := &discordConn{channelID: "chan-1"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.mu.Lock()
			c.channelID = "chan-2"
			c.mu.Unlock()
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				got := c.ChannelID()
				assert.Contains(t, []string{"chan-1", "chan-2"}, got)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, "chan-2", c.ChannelID())
}
