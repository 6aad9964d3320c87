package cache

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Fetcher is the remote source consulted on cache miss. It is the only
// network dependency of the cache, kept narrow so tests can substitute a
// counting double.
type Fetcher interface {
	User(ctx context.Context, userID string) (*discordgo.User, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
}

// SessionFetcher adapts a discordgo session's REST client to the Fetcher
// interface. No timeout or retry is applied here; callers own that policy.
type SessionFetcher struct {
	session *discordgo.Session
}

// NewSessionFetcher wraps the given session.
func NewSessionFetcher(session *discordgo.Session) *SessionFetcher {
	return &SessionFetcher{session: session}
}

func (f *SessionFetcher) User(ctx context.Context, userID string) (*discordgo.User, error) {
	return f.session.User(userID, discordgo.WithContext(ctx))
}

func (f *SessionFetcher) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	return f.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (f *SessionFetcher) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	return f.session.GuildRoles(guildID, discordgo.WithContext(ctx))
}

func (f *SessionFetcher) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	return f.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

func (f *SessionFetcher) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return f.session.Channel(channelID, discordgo.WithContext(ctx))
}

func (f *SessionFetcher) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	return f.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
}
