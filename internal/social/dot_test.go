package social

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	c := newOfflineCache(t)

	c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u1", Username: "alice", Discriminator: "0001"},
	}})
	c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u2", Username: "bob", Discriminator: "0002"},
		Nick:    "bobby",
	}})

	g := &GuildGraph{
		GuildID: "g1",
		Nodes:   []string{"u1", "u2"},
		Edges: map[Edge]float64{
			{SourceID: "u1", TargetID: "u2"}: 3,
			{SourceID: "u2", TargetID: "u1"}: 1,
		},
	}

	exporter := NewExporter(c)
	dot, err := exporter.Export(context.Background(), g, "u1")
	require.NoError(t, err)

	// Requester is highlighted, the nickname wins over the tag
	assert.Contains(t, dot, `"u1" [label="alice#0001", style=filled, fillcolor=lightblue]`)
	assert.Contains(t, dot, `"u2" [label="bobby"]`)
	assert.Contains(t, dot, `"u1" -> "u2" [label="3"]`)
	assert.Contains(t, dot, `"u2" -> "u1" [label="1"]`)
	assert.True(t, len(dot) > 0 && dot[0:9] == "digraph {")
}

func TestExport_UnresolvableNodeFails(t *testing.T) {
	exporter := NewExporter(newOfflineCache(t))

	g := &GuildGraph{
		GuildID: "g1",
		Nodes:   []string{"ghost"},
		Edges:   map[Edge]float64{},
	}

	_, err := exporter.Export(context.Background(), g, "")
	require.Error(t, err)
}

func TestExport_Deterministic(t *testing.T) {
	c := newOfflineCache(t)
	for _, id := range []string{"u1", "u2", "u3"} {
		c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
			GuildID: "g1",
			User:    &discordgo.User{ID: id, Username: "user-" + id, Discriminator: "0001"},
		}})
	}

	g := &GuildGraph{
		GuildID: "g1",
		Nodes:   []string{"u1", "u2", "u3"},
		Edges: map[Edge]float64{
			{SourceID: "u1", TargetID: "u2"}: 1,
			{SourceID: "u1", TargetID: "u3"}: 2,
			{SourceID: "u3", TargetID: "u1"}: 1,
		},
	}

	exporter := NewExporter(c)
	first, err := exporter.Export(context.Background(), g, "")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := exporter.Export(context.Background(), g, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExport_FractionalWeights(t *testing.T) {
	c := newOfflineCache(t)
	for _, id := range []string{"u1", "u2"} {
		c.Update(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
			GuildID: "g1",
			User:    &discordgo.User{ID: id, Username: "user-" + id, Discriminator: "0001"},
		}})
	}

	g := &GuildGraph{
		GuildID: "g1",
		Nodes:   []string{"u1", "u2"},
		Edges: map[Edge]float64{
			{SourceID: "u1", TargetID: "u2"}: 2.5,
		},
	}

	dot, err := NewExporter(c).Export(context.Background(), g, "")
	require.NoError(t, err)
	assert.Contains(t, dot, `[label="2.5"]`)
}
