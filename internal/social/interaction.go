// Package social turns gateway events into weighted per-guild interaction
// graphs: extraction (event -> Interaction), inference (Interaction ->
// relationship changes) and accumulation (changes -> graph edges).
package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sociogram/internal/cache"
	apperrors "sociogram/pkg/errors"
)

// Kind tags how an interaction was triggered.
type Kind int

const (
	KindMessage Kind = iota
	KindReaction
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindReaction:
		return "reaction"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Reason tags why a relationship change was inferred.
type Reason string

const (
	ReasonMention  Reason = "mention"
	ReasonReply    Reason = "reply"
	ReasonReaction Reason = "reaction"
)

// Interaction is the normalized form of one interaction-bearing event. It is
// built per event, consumed by the graph store, then discarded.
type Interaction struct {
	Kind      Kind
	SourceID  string
	TargetIDs []string // mentioned users (message) or the reacted-to author (reaction)
	ReplyToID string   // author of the referenced message, set for replies only
	ChannelID string
	GuildID   string
}

// Extractor builds Interactions, resolving referenced entities through the
// cache. Callers pre-filter bot/self/webhook events; the extractor assumes
// it only sees eligible ones.
type Extractor struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// NewExtractor creates an extractor over the given cache.
func NewExtractor(c *cache.Cache, logger *zap.Logger) *Extractor {
	return &Extractor{
		cache:  c,
		logger: logger,
	}
}

// FromMessage builds an Interaction from a message-create event. Targets are
// the mentioned users; for a reply, the referenced message's author is added
// as the reply target, resolved through the cache when the gateway did not
// embed the referenced message.
func (e *Extractor) FromMessage(ctx context.Context, m *discordgo.Message) (*Interaction, error) {
	if m.GuildID == "" {
		return nil, apperrors.ErrMissingGuildContext
	}

	targets := make([]string, 0, len(m.Mentions))
	seen := make(map[string]bool, len(m.Mentions))
	for _, mentioned := range m.Mentions {
		if !seen[mentioned.ID] {
			seen[mentioned.ID] = true
			targets = append(targets, mentioned.ID)
		}
	}

	interaction := &Interaction{
		Kind:      KindMessage,
		SourceID:  m.Author.ID,
		TargetIDs: targets,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	}

	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		replyTo, err := e.resolveReplyAuthor(ctx, m)
		if err != nil {
			return nil, err
		}
		interaction.ReplyToID = replyTo
	}

	return interaction, nil
}

func (e *Extractor) resolveReplyAuthor(ctx context.Context, m *discordgo.Message) (string, error) {
	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		return m.ReferencedMessage.Author.ID, nil
	}

	ref := m.MessageReference
	channelID := ref.ChannelID
	if channelID == "" {
		channelID = m.ChannelID
	}

	referenced, err := e.cache.GetMessage(ctx, channelID, ref.MessageID)
	if err != nil {
		return "", err
	}
	return referenced.AuthorID, nil
}

// FromReaction builds an Interaction from a reaction-add event, attributed
// toward the reacted-to message's author.
func (e *Extractor) FromReaction(r *discordgo.MessageReaction, target cache.Message) (*Interaction, error) {
	if r.GuildID == "" {
		return nil, apperrors.ErrMissingGuildContext
	}

	return &Interaction{
		Kind:      KindReaction,
		SourceID:  r.UserID,
		TargetIDs: []string{target.AuthorID},
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
	}, nil
}

// Describe renders the interaction with cache-resolved display names. It is
// observability output only, but an unresolvable entity is propagated as an
// error: a broken label means the backfill invariants did not hold.
func (e *Extractor) Describe(ctx context.Context, in *Interaction) (string, error) {
	source, err := e.displayName(ctx, in.GuildID, in.SourceID)
	if err != nil {
		return "", err
	}

	targetIDs := in.TargetIDs
	if in.ReplyToID != "" {
		targetIDs = append(append([]string{}, targetIDs...), in.ReplyToID)
	}

	targets := make([]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		name, err := e.displayName(ctx, in.GuildID, id)
		if err != nil {
			return "", err
		}
		targets = append(targets, name)
	}

	channel, err := e.cache.GetChannel(ctx, in.ChannelID)
	if err != nil {
		return "", err
	}

	guild, err := e.cache.GetGuild(ctx, in.GuildID)
	if err != nil {
		return "", err
	}

	switch in.Kind {
	case KindReaction:
		return fmt.Sprintf("%s reacted to a message by %s in #%s @ %q",
			source, strings.Join(targets, ", "), channel.Name, guild.Name), nil
	default:
		return fmt.Sprintf("new message from %s in #%s @ %q, mentions: [%s]",
			source, channel.Name, guild.Name, strings.Join(targets, ", ")), nil
	}
}

// displayName renders a user as `"nick-or-name" (name#discriminator)`.
func (e *Extractor) displayName(ctx context.Context, guildID, userID string) (string, error) {
	user, err := e.cache.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	member, err := e.cache.GetMember(ctx, guildID, userID)
	if err != nil {
		return "", err
	}

	name := member.Nick
	if name == "" {
		name = user.Name
	}

	return fmt.Sprintf("%q (%s)", name, user.DisplayTag()), nil
}
