package cache

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Cached entities are value records projected down from the discordgo
// payloads. They hold IDs, never pointers into other records, so a copy
// handed to a reader is immune to later cache writes. Resolution of a
// referenced entity always goes back through the cache by key.

// User is the global (guild-independent) identity of a Discord user.
type User struct {
	ID            string
	Name          string
	Discriminator string
	Avatar        string
	Bot           bool
}

func userFrom(u *discordgo.User) User {
	return User{
		ID:            u.ID,
		Name:          u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
		Bot:           u.Bot,
	}
}

// DisplayTag renders the user as "name#discriminator".
func (u User) DisplayTag() string {
	return fmt.Sprintf("%s#%s", u.Name, u.Discriminator)
}

// Guild is a cached guild header. Roles holds role IDs in the order the
// gateway delivered them; the Role records themselves live in their own table.
type Guild struct {
	ID      string
	Name    string
	Icon    string
	Roles   []string
	OwnerID string
}

func guildFrom(g *discordgo.Guild) Guild {
	roles := make([]string, 0, len(g.Roles))
	for _, role := range g.Roles {
		roles = append(roles, role.ID)
	}

	return Guild{
		ID:      g.ID,
		Name:    g.Name,
		Icon:    g.Icon,
		Roles:   roles,
		OwnerID: g.OwnerID,
	}
}

// Role is a cached guild role. Role IDs are unique platform-wide, so the
// table is keyed by role ID alone.
type Role struct {
	ID          string
	Name        string
	Color       int
	Position    int
	Permissions int64
}

func roleFrom(r *discordgo.Role) Role {
	return Role{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Position:    r.Position,
		Permissions: r.Permissions,
	}
}

// Member is a user's guild-scoped profile, keyed by (guild ID, user ID).
// Its Roles may reference role IDs that are not separately cached; roles are
// fetched independently and that absence is expected.
type Member struct {
	Nick  string
	Roles []string
}

func memberFrom(m *discordgo.Member) Member {
	roles := make([]string, len(m.Roles))
	copy(roles, m.Roles)

	return Member{
		Nick:  m.Nick,
		Roles: roles,
	}
}

// memberKey is the composite key of the members table.
type memberKey struct {
	GuildID string
	UserID  string
}

// Channel is a cached channel header. Name falls back to "<kind>:<id>" when
// the remote payload carries no name.
type Channel struct {
	ID   string
	Name string
	Kind discordgo.ChannelType
}

func channelFrom(c *discordgo.Channel) Channel {
	name := c.Name
	if name == "" {
		name = fmt.Sprintf("%s:%s", channelKindString(c.Type), c.ID)
	}

	return Channel{
		ID:   c.ID,
		Name: name,
		Kind: c.Type,
	}
}

func channelKindString(t discordgo.ChannelType) string {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return "GuildText"
	case discordgo.ChannelTypeDM:
		return "DM"
	case discordgo.ChannelTypeGuildVoice:
		return "GuildVoice"
	case discordgo.ChannelTypeGroupDM:
		return "GroupDM"
	case discordgo.ChannelTypeGuildCategory:
		return "GuildCategory"
	case discordgo.ChannelTypeGuildNews:
		return "GuildNews"
	case discordgo.ChannelTypeGuildNewsThread:
		return "GuildNewsThread"
	case discordgo.ChannelTypeGuildPublicThread:
		return "GuildPublicThread"
	case discordgo.ChannelTypeGuildPrivateThread:
		return "GuildPrivateThread"
	case discordgo.ChannelTypeGuildForum:
		return "GuildForum"
	default:
		return fmt.Sprintf("ChannelType(%d)", t)
	}
}

// Message is the minimal projection of a message: enough to attribute a
// later reaction to the original author without re-fetching the message.
type Message struct {
	AuthorID string
	Kind     discordgo.MessageType
}

func messageFrom(m *discordgo.Message) Message {
	return Message{
		AuthorID: m.Author.ID,
		Kind:     m.Type,
	}
}

// Stats is an on-demand snapshot of per-table entry counts.
type Stats struct {
	Users    int `json:"users"`
	Guilds   int `json:"guilds"`
	Roles    int `json:"roles"`
	Members  int `json:"members"`
	Channels int `json:"channels"`
	Messages int `json:"messages"`
}

func (s Stats) String() string {
	return fmt.Sprintf("users: %d, guilds: %d, roles: %d, members: %d, channels: %d, messages: %d",
		s.Users, s.Guilds, s.Roles, s.Members, s.Channels, s.Messages)
}
