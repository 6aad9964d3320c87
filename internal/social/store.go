package social

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"sociogram/internal/store"
	apperrors "sociogram/pkg/errors"
)

// Change is one proposed edge mutation, produced by Infer and committed by
// Apply. Applying the same change twice increments twice; Apply is an
// accumulator, not a set union.
type Change struct {
	SourceID string
	TargetID string
	Reason   Reason
	Delta    float64
}

// Edge identifies a directed (source, target) pair in a snapshot.
type Edge struct {
	SourceID string
	TargetID string
}

// GuildGraph is an immutable snapshot of one guild's graph, aggregated
// across channel partitions. Nodes are sorted for deterministic export.
type GuildGraph struct {
	GuildID string
	Nodes   []string
	Edges   map[Edge]float64
}

// guildState holds one guild's live graph: weights partitioned per channel
// so a deleted channel's contribution can be dropped exactly. Guarded by its
// own mutex so guilds never contend with each other.
type guildState struct {
	mu       sync.Mutex
	channels map[string]map[Edge]float64
}

// Store holds one weighted directed graph per guild. The store-level lock
// only guards the guild map; all edge mutation happens under the per-guild
// lock. The recorder is invoked with no lock held.
type Store struct {
	mu     sync.RWMutex
	guilds map[string]*guildState

	weights  WeightPolicy
	recorder store.Recorder
	logger   *zap.Logger
}

// NewStore creates an empty store. A nil policy means the fixed +1 default;
// a nil recorder means no persistence.
func NewStore(weights WeightPolicy, recorder store.Recorder, logger *zap.Logger) *Store {
	if weights == nil {
		weights = DefaultWeights()
	}
	if recorder == nil {
		recorder = store.NewNoop()
	}

	return &Store{
		guilds:   make(map[string]*guildState),
		weights:  weights,
		recorder: recorder,
		logger:   logger,
	}
}

// Infer derives relationship changes from an interaction. Pure: reads the
// interaction and the weight policy, mutates nothing.
func (s *Store) Infer(in *Interaction) []Change {
	var changes []Change

	switch in.Kind {
	case KindReaction:
		for _, target := range in.TargetIDs {
			changes = append(changes, Change{
				SourceID: in.SourceID,
				TargetID: target,
				Reason:   ReasonReaction,
				Delta:    s.weights.Delta(ReasonReaction),
			})
		}
	default:
		for _, target := range in.TargetIDs {
			changes = append(changes, Change{
				SourceID: in.SourceID,
				TargetID: target,
				Reason:   ReasonMention,
				Delta:    s.weights.Delta(ReasonMention),
			})
		}
		if in.ReplyToID != "" {
			changes = append(changes, Change{
				SourceID: in.SourceID,
				TargetID: in.ReplyToID,
				Reason:   ReasonReply,
				Delta:    s.weights.Delta(ReasonReply),
			})
		}
	}

	return changes
}

// Apply commits changes into the interaction's guild graph, creating it
// lazily, then forwards each change to the recorder. Recorder failures are
// logged and swallowed; an empty change list is a no-op.
func (s *Store) Apply(ctx context.Context, in *Interaction, changes []Change) {
	if len(changes) == 0 {
		return
	}

	guild := s.ensureGuild(in.GuildID)

	guild.mu.Lock()
	edges := guild.channels[in.ChannelID]
	if edges == nil {
		edges = make(map[Edge]float64)
		guild.channels[in.ChannelID] = edges
	}
	for _, change := range changes {
		edges[Edge{SourceID: change.SourceID, TargetID: change.TargetID}] += change.Delta
	}
	guild.mu.Unlock()

	// Sink writes happen outside every lock; they can block indefinitely.
	now := time.Now().UnixMilli()
	for _, change := range changes {
		err := s.recorder.Record(ctx, store.Event{
			Timestamp: now,
			GuildID:   in.GuildID,
			ChannelID: in.ChannelID,
			SourceID:  change.SourceID,
			TargetID:  change.TargetID,
			Reason:    string(change.Reason),
		})
		if err != nil {
			s.logger.Warn("failed to persist relationship change",
				zap.String("guild_id", in.GuildID),
				zap.Error(err),
			)
		}
	}
}

// EnsureGuild creates empty graph state for a guild if none exists, so a
// guild is listed as known from the moment it is observed.
func (s *Store) EnsureGuild(guildID string) {
	s.ensureGuild(guildID)
}

func (s *Store) ensureGuild(guildID string) *guildState {
	s.mu.RLock()
	guild, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if ok {
		return guild
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if guild, ok = s.guilds[guildID]; ok {
		return guild
	}

	guild = &guildState{channels: make(map[string]map[Edge]float64)}
	s.guilds[guildID] = guild
	return guild
}

// Snapshot returns the guild's graph aggregated across channels, or a
// not-found error if the guild has never been observed. The snapshot is
// detached: later writes do not affect it.
func (s *Store) Snapshot(guildID string) (*GuildGraph, error) {
	s.mu.RLock()
	guild, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewGuildGraphNotFound(guildID)
	}

	snapshot := &GuildGraph{
		GuildID: guildID,
		Edges:   make(map[Edge]float64),
	}

	nodes := make(map[string]bool)

	guild.mu.Lock()
	for _, edges := range guild.channels {
		for edge, weight := range edges {
			snapshot.Edges[edge] += weight
			nodes[edge.SourceID] = true
			nodes[edge.TargetID] = true
		}
	}
	guild.mu.Unlock()

	snapshot.Nodes = make([]string, 0, len(nodes))
	for node := range nodes {
		snapshot.Nodes = append(snapshot.Nodes, node)
	}
	sort.Strings(snapshot.Nodes)

	return snapshot, nil
}

// RemoveGuild drops all graph state for a guild. Unknown guilds are a no-op.
func (s *Store) RemoveGuild(guildID string) {
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()
}

// RemoveChannel drops one channel's contribution to a guild's graph.
// Unknown guilds or channels are a no-op.
func (s *Store) RemoveChannel(guildID, channelID string) {
	s.mu.RLock()
	guild, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	guild.mu.Lock()
	delete(guild.channels, channelID)
	guild.mu.Unlock()
}

// GuildIDs returns the ids of every guild with resident graph state, sorted.
func (s *Store) GuildIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
