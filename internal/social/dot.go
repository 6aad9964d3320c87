package social

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sociogram/internal/cache"
)

// Exporter serializes guild graph snapshots to graphviz DOT text, the sole
// interface to the external renderer. Node labels are resolved through the
// cache; an unresolvable user propagates as an error since every node in the
// graph should have been backfilled when its interactions were cached.
type Exporter struct {
	cache *cache.Cache
}

// NewExporter creates an exporter over the given cache.
func NewExporter(c *cache.Cache) *Exporter {
	return &Exporter{cache: c}
}

// Export renders the snapshot as a DOT digraph. Each node is labeled with
// the member's nickname, falling back to "name#discriminator"; each edge is
// labeled with its accumulated weight. When highlightID names a node, that
// node gets a filled style so the requesting user can spot themselves.
func (e *Exporter) Export(ctx context.Context, g *GuildGraph, highlightID string) (string, error) {
	var b strings.Builder
	b.WriteString("digraph {\n")

	for _, node := range g.Nodes {
		label, err := e.nodeLabel(ctx, g.GuildID, node)
		if err != nil {
			return "", err
		}

		if node == highlightID {
			fmt.Fprintf(&b, "    %q [label=%q, style=filled, fillcolor=lightblue]\n", node, label)
		} else {
			fmt.Fprintf(&b, "    %q [label=%q]\n", node, label)
		}
	}

	for _, edge := range sortedEdges(g.Edges) {
		fmt.Fprintf(&b, "    %q -> %q [label=%q]\n",
			edge.SourceID, edge.TargetID, formatWeight(g.Edges[edge]))
	}

	b.WriteString("}\n")
	return b.String(), nil
}

func (e *Exporter) nodeLabel(ctx context.Context, guildID, userID string) (string, error) {
	user, err := e.cache.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	member, err := e.cache.GetMember(ctx, guildID, userID)
	if err != nil {
		return "", err
	}

	if member.Nick != "" {
		return member.Nick, nil
	}
	return user.DisplayTag(), nil
}

func sortedEdges(edges map[Edge]float64) []Edge {
	out := make([]Edge, 0, len(edges))
	for edge := range edges {
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

func formatWeight(w float64) string {
	if w == float64(int64(w)) {
		return strconv.FormatInt(int64(w), 10)
	}
	return strconv.FormatFloat(w, 'g', -1, 64)
}
