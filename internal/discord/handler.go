// Package discord wires gateway events into the cache and the social graph
// pipeline, and serves the mention-prefixed command surface.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sociogram/internal/cache"
	"sociogram/internal/render"
	"sociogram/internal/social"
	"sociogram/pkg/config"
)

// Handler receives gateway events. The gateway dispatches events one at a
// time in order, so the event-driven write path never races itself; command
// handling runs on the same dispatch and shares the same safety.
type Handler struct {
	cfg       *config.Config
	cache     *cache.Cache
	extractor *social.Extractor
	graphs    *social.Store
	exporter  *social.Exporter
	renderer  render.Renderer
	logger    *zap.Logger
}

// NewHandler creates a handler around the assembled pipeline.
func NewHandler(
	cfg *config.Config,
	c *cache.Cache,
	extractor *social.Extractor,
	graphs *social.Store,
	exporter *social.Exporter,
	renderer render.Renderer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		cfg:       cfg,
		cache:     c,
		extractor: extractor,
		graphs:    graphs,
		exporter:  exporter,
		renderer:  renderer,
		logger:    logger,
	}
}

// Register attaches the handler to a session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onMessageUpdate)
	s.AddHandler(h.onReactionAdd)
	s.AddHandler(h.onGuildCreate)
	s.AddHandler(h.onGuildUpdate)
	s.AddHandler(h.onGuildDelete)
	s.AddHandler(h.onChannelCreate)
	s.AddHandler(h.onChannelUpdate)
	s.AddHandler(h.onChannelDelete)
	s.AddHandler(h.onMemberAdd)
	s.AddHandler(h.onMemberUpdate)
	s.AddHandler(h.onMembersChunk)
	s.AddHandler(h.onRoleCreate)
	s.AddHandler(h.onRoleUpdate)
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("connected to gateway",
		zap.String("user_id", r.User.ID),
		zap.String("username", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)

	if err := s.UpdateWatchStatus(0, fmt.Sprintf("you: @%s invite", r.User.Username)); err != nil {
		h.logger.Warn("failed to set activity", zap.Error(err))
	}
}

func (h *Handler) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	h.cache.Update(e)
	// Guilds get graph state the moment they are observed so dump lists them
	// before any interaction happens.
	h.graphs.EnsureGuild(e.ID)
}

func (h *Handler) onGuildUpdate(_ *discordgo.Session, e *discordgo.GuildUpdate) {
	h.cache.Update(e)
}

func (h *Handler) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	h.cache.Update(e)
	h.graphs.RemoveGuild(e.ID)
	h.logger.Info("guild removed", zap.String("guild_id", e.ID))
}

func (h *Handler) onChannelCreate(_ *discordgo.Session, e *discordgo.ChannelCreate) {
	h.cache.Update(e)
	if e.GuildID != "" {
		h.graphs.EnsureGuild(e.GuildID)
	}
}

func (h *Handler) onChannelUpdate(_ *discordgo.Session, e *discordgo.ChannelUpdate) {
	h.cache.Update(e)
}

func (h *Handler) onChannelDelete(_ *discordgo.Session, e *discordgo.ChannelDelete) {
	h.cache.Update(e)
	if e.GuildID != "" {
		h.graphs.RemoveChannel(e.GuildID, e.ID)
	}
}

func (h *Handler) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	h.cache.Update(e)
}

func (h *Handler) onMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	h.cache.Update(e)
}

func (h *Handler) onMembersChunk(_ *discordgo.Session, e *discordgo.GuildMembersChunk) {
	h.cache.Update(e)
}

func (h *Handler) onRoleCreate(_ *discordgo.Session, e *discordgo.GuildRoleCreate) {
	h.cache.Update(e)
}

func (h *Handler) onRoleUpdate(_ *discordgo.Session, e *discordgo.GuildRoleUpdate) {
	h.cache.Update(e)
}

func (h *Handler) onMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	h.cache.Update(e)
}

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	// Ignore ourselves, other bots, and webhook-authored messages
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if m.Author.Bot || m.WebhookID != "" {
		return
	}

	if h.dispatchCommand(s, m) {
		return
	}

	h.cache.Update(m)

	if m.GuildID == "" {
		h.logger.Debug("dropping direct message", zap.String("message_id", m.ID))
		return
	}

	// Only regular messages and replies carry interactions
	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return
	}

	ctx := context.Background()

	interaction, err := h.extractor.FromMessage(ctx, m.Message)
	if err != nil {
		h.logger.Warn("dropping message event",
			zap.String("message_id", m.ID),
			zap.Error(err),
		)
		return
	}

	h.processInteraction(ctx, interaction)
}

func (h *Handler) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}

	h.cache.Update(r)

	if r.GuildID == "" {
		return
	}

	ctx := context.Background()

	// The reacted-to author comes from the message table; cold caches
	// trigger a fetch here, never during graph mutation.
	message, err := h.cache.GetMessage(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		h.logger.Warn("dropping reaction event",
			zap.String("message_id", r.MessageID),
			zap.Error(err),
		)
		return
	}

	if message.Kind != discordgo.MessageTypeDefault && message.Kind != discordgo.MessageTypeReply {
		return
	}

	interaction, err := h.extractor.FromReaction(r.MessageReaction, message)
	if err != nil {
		h.logger.Warn("dropping reaction event",
			zap.String("message_id", r.MessageID),
			zap.Error(err),
		)
		return
	}

	h.processInteraction(ctx, interaction)
}

// processInteraction runs the inference pipeline: describe for the log,
// infer the changes, apply them. Errors never escape; the handler must stay
// able to process the next event.
func (h *Handler) processInteraction(ctx context.Context, interaction *social.Interaction) {
	description, err := h.extractor.Describe(ctx, interaction)
	if err != nil {
		// A label that cannot be resolved points at a backfill bug, but the
		// graph update itself only needs IDs.
		h.logger.Error("failed to describe interaction",
			zap.String("guild_id", interaction.GuildID),
			zap.Error(err),
		)
	} else {
		h.logger.Info(description)
	}

	changes := h.graphs.Infer(interaction)
	for _, change := range changes {
		h.logger.Debug("relationship change",
			zap.String("source", change.SourceID),
			zap.String("target", change.TargetID),
			zap.String("reason", string(change.Reason)),
			zap.Float64("delta", change.Delta),
		)
	}

	h.graphs.Apply(ctx, interaction, changes)
}
