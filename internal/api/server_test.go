package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sociogram/internal/cache"
	"sociogram/internal/social"
)

type stubFetcher struct{}

func (stubFetcher) User(context.Context, string) (*discordgo.User, error) {
	return nil, assert.AnError
}
func (stubFetcher) Guild(context.Context, string) (*discordgo.Guild, error) {
	return nil, assert.AnError
}
func (stubFetcher) GuildRoles(context.Context, string) ([]*discordgo.Role, error) {
	return nil, assert.AnError
}
func (stubFetcher) GuildMember(context.Context, string, string) (*discordgo.Member, error) {
	return nil, assert.AnError
}
func (stubFetcher) Channel(context.Context, string) (*discordgo.Channel, error) {
	return nil, assert.AnError
}
func (stubFetcher) ChannelMessage(context.Context, string, string) (*discordgo.Message, error) {
	return nil, assert.AnError
}

func newTestServer(t *testing.T) (*Server, *cache.Cache, *social.Store) {
	t.Helper()

	c, err := cache.New(stubFetcher{}, 16, zap.NewNop())
	require.NoError(t, err)

	graphs := social.NewStore(nil, nil, zap.NewNop())
	exporter := social.NewExporter(c)

	return NewServer(c, graphs, exporter, true, zap.NewNop()), c, graphs
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStats(t *testing.T) {
	s, c, _ := newTestServer(t)

	c.PutMessage(&discordgo.Message{
		ID:     "m1",
		Author: &discordgo.User{ID: "u1", Username: "alice"},
	})

	w := get(t, s, "/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.Messages)
}

func TestGuilds(t *testing.T) {
	s, _, graphs := newTestServer(t)

	graphs.EnsureGuild("g1")
	graphs.EnsureGuild("g2")

	w := get(t, s, "/guilds")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"guilds":["g1","g2"]}`, w.Body.String())
}

func TestGuildDot(t *testing.T) {
	s, c, graphs := newTestServer(t)

	c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u1", Username: "alice", Discriminator: "0001"},
	}})
	c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u2", Username: "bob", Discriminator: "0002"},
	}})

	in := &social.Interaction{
		Kind:      social.KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	graphs.Apply(context.Background(), in, graphs.Infer(in))

	w := get(t, s, "/guilds/g1/graph.dot")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u1" -> "u2" [label="1"]`)
}

func TestGuildDot_UnknownGuild(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/guilds/never-seen/graph.dot")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
