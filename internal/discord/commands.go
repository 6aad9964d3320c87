package discord

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const genericFailureReply = "Sorry, there was an error handling that command"

// command is a parsed mention-prefixed command.
type command struct {
	Name string
	Args []string
}

// parseCommand recognizes messages of the form "@bot <name> [args...]".
// The mention must be the prefix; mentions elsewhere are ordinary messages.
func parseCommand(botID, content string) (command, bool) {
	content = strings.TrimSpace(content)

	prefixes := []string{"<@" + botID + ">", "<@!" + botID + ">"}
	var rest string
	found := false
	for _, prefix := range prefixes {
		if strings.HasPrefix(content, prefix) {
			rest = strings.TrimSpace(strings.TrimPrefix(content, prefix))
			found = true
			break
		}
	}
	if !found || rest == "" {
		return command{}, false
	}

	fields := strings.Fields(rest)
	args := fields[1:]
	if len(args) == 0 {
		args = nil
	}

	switch fields[0] {
	case "help", "invite", "graph", "stats", "dump":
		return command{Name: fields[0], Args: args}, true
	default:
		return command{}, false
	}
}

// dispatchCommand handles a command if the message is one, reporting whether
// it was. Any handler failure becomes the generic reply; the real error only
// goes to the log.
func (h *Handler) dispatchCommand(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if s.State.User == nil {
		return false
	}

	cmd, ok := parseCommand(s.State.User.ID, m.Content)
	if !ok {
		return false
	}

	h.logger.Info("received command",
		zap.String("command", cmd.Name),
		zap.Strings("args", cmd.Args),
		zap.String("user_id", m.Author.ID),
		zap.String("channel_id", m.ChannelID),
	)

	ctx := context.Background()

	var err error
	switch cmd.Name {
	case "help", "invite":
		err = h.commandHelp(s, m)
	case "graph":
		err = h.commandGraph(ctx, s, m)
	case "stats":
		err = h.commandStats(s, m)
	case "dump":
		err = h.commandDump(ctx, s, m, cmd.Args)
	}

	if err != nil {
		h.logger.Error("command failed",
			zap.String("command", cmd.Name),
			zap.Error(err),
		)
		if _, sendErr := s.ChannelMessageSend(m.ChannelID, genericFailureReply); sendErr != nil {
			h.logger.Error("failed to send failure reply", zap.Error(sendErr))
		}
	}

	return true
}

func (h *Handler) commandHelp(s *discordgo.Session, m *discordgo.MessageCreate) error {
	botUser := s.State.User

	description := fmt.Sprintf(
		"I'm a Discord bot that infers relationships between users and draws pretty graphs.\n"+
			"I'll only respond to messages that directly mention me, like `@%s help`.",
		botUser.Username,
	)

	inviteURL := fmt.Sprintf(
		"https://discord.com/api/oauth2/authorize?client_id=%s&permissions=117824&scope=bot",
		botUser.ID,
	)

	embed := &discordgo.MessageEmbed{
		Description: description,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Commands",
				Value: strings.Join([]string{
					"` help  ` This message.",
					"` graph ` Get a preview-quality graph image.",
					"` stats ` Cache table sizes.",
				}, "\n"),
			},
			{
				Name:  "Want graphs for your guild?",
				Value: fmt.Sprintf("[Click here](%s) to invite the bot to join your server.", inviteURL),
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Sent in response to a command from %s#%s",
				m.Author.Username, m.Author.Discriminator),
		},
	}

	_, err := s.ChannelMessageSendEmbed(m.ChannelID, embed)
	return err
}

func (h *Handler) commandGraph(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) error {
	if m.GuildID == "" {
		_, err := s.ChannelMessageSend(m.ChannelID, "Graphs only exist for guilds, invite me to one!")
		return err
	}

	guild, err := h.cache.GetGuild(ctx, m.GuildID)
	if err != nil {
		return err
	}

	snapshot, err := h.graphs.Snapshot(m.GuildID)
	if err != nil {
		return err
	}

	dot, err := h.exporter.Export(ctx, snapshot, m.Author.ID)
	if err != nil {
		return err
	}

	png, err := h.renderer.Render(ctx, dot)
	if err != nil {
		return err
	}

	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{
			{Name: guild.Name + ".png", Reader: bytes.NewReader(png)},
		},
	})
	return err
}

func (h *Handler) commandStats(s *discordgo.Session, m *discordgo.MessageCreate) error {
	_, err := s.ChannelMessageSend(m.ChannelID, h.cache.Stats().String())
	return err
}

// commandDump is restricted to configured owners; anyone else is silently
// ignored. With a guild ID it attaches the raw DOT alongside the PNG, and
// without one it lists every guild with resident graph state.
func (h *Handler) commandDump(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if !h.cfg.IsOwner(m.Author.ID) {
		h.logger.Info("non-owner tried to run dump", zap.String("user_id", m.Author.ID))
		return nil
	}

	if len(args) > 0 {
		return h.dumpGuild(ctx, s, m, args[0])
	}
	return h.dumpGuildList(ctx, s, m)
}

func (h *Handler) dumpGuild(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, guildID string) error {
	snapshot, err := h.graphs.Snapshot(guildID)
	if err != nil {
		return err
	}

	guild, err := h.cache.GetGuild(ctx, guildID)
	if err != nil {
		return err
	}

	dot, err := h.exporter.Export(ctx, snapshot, "")
	if err != nil {
		return err
	}

	png, err := h.renderer.Render(ctx, dot)
	if err != nil {
		return err
	}

	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{
			{Name: guild.Name + ".dot", Reader: strings.NewReader(dot)},
			{Name: guild.Name + ".png", Reader: bytes.NewReader(png)},
		},
	})
	return err
}

func (h *Handler) dumpGuildList(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) error {
	guildIDs := h.graphs.GuildIDs()

	// Resolve names concurrently; a guild whose name cannot be fetched is
	// listed by ID alone rather than failing the whole listing.
	lines := make([]string, len(guildIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, guildID := range guildIDs {
		g.Go(func() error {
			guild, err := h.cache.GetGuild(gctx, guildID)
			if err != nil {
				h.logger.Warn("failed to resolve guild name",
					zap.String("guild_id", guildID),
					zap.Error(err),
				)
				lines[i] = guildID
				return nil
			}
			lines[i] = fmt.Sprintf("%s - %s", guildID, guild.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	content := "Guilds:\n" + strings.Join(lines, "\n")
	if len(guildIDs) == 0 {
		content = "No guilds known yet"
	}

	_, err := s.ChannelMessageSend(m.ChannelID, content)
	return err
}
