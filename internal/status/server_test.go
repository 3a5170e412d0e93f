package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groovebox/internal/music/player"
	"groovebox/internal/music/voice"
)

type nullDialer struct{}

func (nullDialer) Join(context.Context, string, string) (voice.Conn, error) {
	return nil, context.Canceled
}

func TestStatusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := player.NewRegistry(nullDialer{}, nil, time.Hour)
	t.Cleanup(registry.Shutdown)
	registry.GetOrCreate("g1")

	router := newRouter(registry)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	var payload struct {
		Sessions []player.SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Sessions, 1)
	assert.Equal(t, "g1", payload.Sessions[0].GuildID)
	assert.Equal(t, string(player.StateIdle), payload.Sessions[0].State)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := player.NewRegistry(nullDialer{}, nil, time.Hour)
	t.Cleanup(registry.Shutdown)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	newRouter(registry).ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
