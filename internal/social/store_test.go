package social

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sociogram/internal/store"
	apperrors "sociogram/pkg/errors"
)

// memoryRecorder captures recorded events for assertions.
type memoryRecorder struct {
	mu     sync.Mutex
	events []store.Event
	fail   bool
}

func (r *memoryRecorder) Record(_ context.Context, event store.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return apperrors.NewPersistenceWriteFailed(event.GuildID, assert.AnError)
	}
	r.events = append(r.events, event)
	return nil
}

func newTestStore(recorder store.Recorder) *Store {
	return NewStore(nil, recorder, zap.NewNop())
}

func TestInfer_MentionAndReply(t *testing.T) {
	s := newTestStore(nil)

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2", "u3"},
		ReplyToID: "u4",
		ChannelID: "c1",
		GuildID:   "g1",
	}

	changes := s.Infer(in)
	require.Len(t, changes, 3)

	assert.Equal(t, Change{SourceID: "u1", TargetID: "u2", Reason: ReasonMention, Delta: 1}, changes[0])
	assert.Equal(t, Change{SourceID: "u1", TargetID: "u3", Reason: ReasonMention, Delta: 1}, changes[1])
	assert.Equal(t, Change{SourceID: "u1", TargetID: "u4", Reason: ReasonReply, Delta: 1}, changes[2])
}

func TestInfer_Reaction(t *testing.T) {
	s := newTestStore(nil)

	changes := s.Infer(&Interaction{
		Kind:      KindReaction,
		SourceID:  "u2",
		TargetIDs: []string{"u1"},
		ChannelID: "c1",
		GuildID:   "g1",
	})
	require.Len(t, changes, 1)
	assert.Equal(t, Change{SourceID: "u2", TargetID: "u1", Reason: ReasonReaction, Delta: 1}, changes[0])
}

func TestInfer_IsPure(t *testing.T) {
	s := newTestStore(nil)

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}

	first := s.Infer(in)
	s.Apply(context.Background(), in, first)
	second := s.Infer(in)

	assert.Equal(t, first, second)
}

func TestApply_IsAdditive(t *testing.T) {
	s := newTestStore(nil)

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	changes := s.Infer(in)

	for i := 0; i < 5; i++ {
		s.Apply(context.Background(), in, changes)
	}

	g, err := s.Snapshot("g1")
	require.NoError(t, err)
	assert.Equal(t, float64(5), g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])
}

func TestApply_EmptyChangesIsNoop(t *testing.T) {
	s := newTestStore(nil)

	s.Apply(context.Background(), &Interaction{GuildID: "g1", ChannelID: "c1"}, nil)

	_, err := s.Snapshot("g1")
	require.Error(t, err, "empty apply should not create guild state")
}

func TestApply_ForwardsToRecorder(t *testing.T) {
	recorder := &memoryRecorder{}
	s := newTestStore(recorder)

	in := &Interaction{
		Kind:      KindReaction,
		SourceID:  "u2",
		TargetIDs: []string{"u1"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	s.Apply(context.Background(), in, s.Infer(in))

	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	assert.Equal(t, "g1", event.GuildID)
	assert.Equal(t, "c1", event.ChannelID)
	assert.Equal(t, "u2", event.SourceID)
	assert.Equal(t, "u1", event.TargetID)
	assert.Equal(t, "reaction", event.Reason)
	assert.NotZero(t, event.Timestamp)
}

func TestApply_RecorderFailureDoesNotAffectGraph(t *testing.T) {
	recorder := &memoryRecorder{fail: true}
	s := newTestStore(recorder)

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	s.Apply(context.Background(), in, s.Infer(in))

	g, err := s.Snapshot("g1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])
}

func TestSnapshot_UnknownGuild(t *testing.T) {
	s := newTestStore(nil)

	_, err := s.Snapshot("never-seen")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// Asking must not create graph state as a side effect
	assert.Empty(t, s.GuildIDs())
}

func TestSnapshot_AggregatesChannels(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()

	for _, channelID := range []string{"c1", "c2"} {
		in := &Interaction{
			Kind:      KindMessage,
			SourceID:  "u1",
			TargetIDs: []string{"u2"},
			ChannelID: channelID,
			GuildID:   "g1",
		}
		s.Apply(ctx, in, s.Infer(in))
	}

	g, err := s.Snapshot("g1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])
	assert.Equal(t, []string{"u1", "u2"}, g.Nodes)
}

func TestRemoveChannel_DropsOnlyThatChannel(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()

	for _, channelID := range []string{"c1", "c2"} {
		in := &Interaction{
			Kind:      KindMessage,
			SourceID:  "u1",
			TargetIDs: []string{"u2"},
			ChannelID: channelID,
			GuildID:   "g1",
		}
		s.Apply(ctx, in, s.Infer(in))
	}

	s.RemoveChannel("g1", "c1")

	g, err := s.Snapshot("g1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])

	// Removing unknown targets never fails
	s.RemoveChannel("g1", "unknown")
	s.RemoveChannel("unknown", "c1")
}

func TestRemoveGuild(t *testing.T) {
	s := newTestStore(nil)

	s.EnsureGuild("g1")
	s.EnsureGuild("g2")
	assert.Equal(t, []string{"g1", "g2"}, s.GuildIDs())

	s.RemoveGuild("g1")
	assert.Equal(t, []string{"g2"}, s.GuildIDs())

	s.RemoveGuild("never-seen")
	assert.Equal(t, []string{"g2"}, s.GuildIDs())
}

func TestSnapshot_IsDetached(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	s.Apply(ctx, in, s.Infer(in))

	g, err := s.Snapshot("g1")
	require.NoError(t, err)

	s.Apply(ctx, in, s.Infer(in))

	assert.Equal(t, float64(1), g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])
}

func TestWeightPolicy_Pluggable(t *testing.T) {
	s := NewStore(FixedWeight{Increment: 2.5}, nil, zap.NewNop())

	in := &Interaction{
		Kind:      KindMessage,
		SourceID:  "u1",
		TargetIDs: []string{"u2"},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	s.Apply(context.Background(), in, s.Infer(in))

	g, err := s.Snapshot("g1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, g.Edges[Edge{SourceID: "u1", TargetID: "u2"}])
}
