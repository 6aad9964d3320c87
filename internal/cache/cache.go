package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	apperrors "sociogram/pkg/errors"
)

// Cache is a bounded fetch-through cache over the Discord API, one LRU table
// per entity type. Each table locks independently and only for the duration
// of the map operation; remote fetches always happen with no lock held, so a
// slow fetch on one key never blocks lookups on others.
//
// Two concurrent misses for the same key may both hit the remote source.
// That duplicate fetch is accepted: both writes carry the same data and the
// read path stays free of cross-request wait points.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger

	users    *lru.Cache[string, User]
	guilds   *lru.Cache[string, Guild]
	roles    *lru.Cache[string, Role]
	members  *lru.Cache[memberKey, Member]
	channels *lru.Cache[string, Channel]
	// messages exists to attribute reactions to the reacted-to author.
	messages *lru.Cache[string, Message]
}

// New creates a cache whose tables each hold at most size entries. Tables
// do not share an eviction budget.
func New(fetcher Fetcher, size int, logger *zap.Logger) (*Cache, error) {
	users, err := lru.New[string, User](size)
	if err != nil {
		return nil, err
	}
	guilds, err := lru.New[string, Guild](size)
	if err != nil {
		return nil, err
	}
	roles, err := lru.New[string, Role](size)
	if err != nil {
		return nil, err
	}
	members, err := lru.New[memberKey, Member](size)
	if err != nil {
		return nil, err
	}
	channels, err := lru.New[string, Channel](size)
	if err != nil {
		return nil, err
	}
	messages, err := lru.New[string, Message](size)
	if err != nil {
		return nil, err
	}

	return &Cache{
		fetcher:  fetcher,
		logger:   logger,
		users:    users,
		guilds:   guilds,
		roles:    roles,
		members:  members,
		channels: channels,
		messages: messages,
	}, nil
}

// Stats returns a point-in-time snapshot of per-table entry counts.
func (c *Cache) Stats() Stats {
	return Stats{
		Users:    c.users.Len(),
		Guilds:   c.guilds.Len(),
		Roles:    c.roles.Len(),
		Members:  c.members.Len(),
		Channels: c.channels.Len(),
		Messages: c.messages.Len(),
	}
}

// Update is the write path driven by the gateway. It is total over the
// recognized event types; anything else is a logged no-op.
func (c *Cache) Update(event any) {
	switch e := event.(type) {
	case *discordgo.ChannelCreate:
		c.putTextChannel(e.Channel)
	case *discordgo.ChannelUpdate:
		c.putTextChannel(e.Channel)
	case *discordgo.ChannelDelete:
		c.RemoveChannel(e.ID)
	case *discordgo.GuildCreate:
		c.putFullGuild(e.Guild)
	case *discordgo.GuildUpdate:
		c.putGuild(e.Guild)
	case *discordgo.GuildDelete:
		c.RemoveGuild(e.ID)
	case *discordgo.GuildMemberAdd:
		c.putFullMember(e.GuildID, e.Member)
	case *discordgo.GuildMemberUpdate:
		c.putFullMember(e.GuildID, e.Member)
	case *discordgo.GuildMembersChunk:
		for _, member := range e.Members {
			c.putFullMember(e.GuildID, member)
		}
	case *discordgo.GuildRoleCreate:
		c.putRole(e.Role)
	case *discordgo.GuildRoleUpdate:
		c.putRole(e.Role)
	case *discordgo.MessageCreate:
		c.PutMessage(e.Message)
	case *discordgo.MessageUpdate:
		c.putMessageUpdate(e)
	case *discordgo.MessageReactionAdd:
		if e.GuildID != "" && e.Member != nil {
			c.putFullMember(e.GuildID, e.Member)
		}
	default:
		c.logger.Debug("event not used by cache", zap.String("type", fmt.Sprintf("%T", event)))
	}
}

// GetUser returns the cached user or fetches it from the remote source.
func (c *Cache) GetUser(ctx context.Context, userID string) (User, error) {
	if user, ok := c.users.Get(userID); ok {
		return user, nil
	}

	c.logger.Info("user not in cache, fetching", zap.String("user_id", userID))

	user, err := c.fetcher.User(ctx, userID)
	if err != nil {
		return User{}, fetchError("user", userID, err)
	}

	cached := userFrom(user)
	c.users.Add(cached.ID, cached)
	return cached, nil
}

// GetGuild returns the cached guild or fetches it, caching its channels and
// roles alongside.
func (c *Cache) GetGuild(ctx context.Context, guildID string) (Guild, error) {
	if guild, ok := c.guilds.Get(guildID); ok {
		return guild, nil
	}

	c.logger.Info("guild not in cache, fetching", zap.String("guild_id", guildID))

	guild, err := c.fetcher.Guild(ctx, guildID)
	if err != nil {
		return Guild{}, fetchError("guild", guildID, err)
	}

	c.putFullGuild(guild)
	return guildFrom(guild), nil
}

// GetRole returns the cached role or fetches the guild's full role list,
// caching every role before selecting the requested one.
func (c *Cache) GetRole(ctx context.Context, guildID, roleID string) (Role, error) {
	if role, ok := c.roles.Get(roleID); ok {
		return role, nil
	}

	c.logger.Info("role not in cache, fetching",
		zap.String("guild_id", guildID),
		zap.String("role_id", roleID),
	)

	remoteRoles, err := c.fetcher.GuildRoles(ctx, guildID)
	if err != nil {
		return Role{}, fetchError("role", roleID, err)
	}

	var found *Role
	for _, role := range remoteRoles {
		c.putRole(role)
		if role.ID == roleID {
			cached := roleFrom(role)
			found = &cached
		}
	}

	if found == nil {
		return Role{}, apperrors.NewEntityNotFound("role", roleID)
	}
	return *found, nil
}

// GetMember returns the cached member record or fetches it.
func (c *Cache) GetMember(ctx context.Context, guildID, userID string) (Member, error) {
	if member, ok := c.members.Get(memberKey{GuildID: guildID, UserID: userID}); ok {
		return member, nil
	}

	c.logger.Info("member not in cache, fetching",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
	)

	member, err := c.fetcher.GuildMember(ctx, guildID, userID)
	if err != nil {
		return Member{}, fetchError("member", guildID+"/"+userID, err)
	}

	c.putFullMember(guildID, member)
	return memberFrom(member), nil
}

// GetChannel returns the cached channel or fetches it.
func (c *Cache) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	if channel, ok := c.channels.Get(channelID); ok {
		return channel, nil
	}

	c.logger.Info("channel not in cache, fetching", zap.String("channel_id", channelID))

	channel, err := c.fetcher.Channel(ctx, channelID)
	if err != nil {
		return Channel{}, fetchError("channel", channelID, err)
	}

	cached := channelFrom(channel)
	c.channels.Add(cached.ID, cached)
	return cached, nil
}

// GetMessage returns the cached message projection or fetches the full
// message, backfilling its author and mentions on the way in.
func (c *Cache) GetMessage(ctx context.Context, channelID, messageID string) (Message, error) {
	if message, ok := c.messages.Get(messageID); ok {
		return message, nil
	}

	c.logger.Info("message not in cache, fetching",
		zap.String("channel_id", channelID),
		zap.String("message_id", messageID),
	)

	message, err := c.fetcher.ChannelMessage(ctx, channelID, messageID)
	if err != nil {
		return Message{}, fetchError("message", messageID, err)
	}

	c.PutMessage(message)
	return messageFrom(message), nil
}

// RemoveChannel drops a channel entry. Removal of an absent key is a no-op.
func (c *Cache) RemoveChannel(channelID string) {
	c.channels.Remove(channelID)
}

// RemoveGuild drops a guild entry. Removal of an absent key is a no-op.
func (c *Cache) RemoveGuild(guildID string) {
	c.guilds.Remove(guildID)
}

// PutMessage stores the message projection and backfills the author's User
// (and Member, when the gateway attached a membership snippet) plus a User
// record for every mentioned user. This is what lets interaction rendering
// and graph export resolve names without further fetches.
func (c *Cache) PutMessage(m *discordgo.Message) {
	if m.Author == nil {
		return
	}

	c.putUser(m.Author)

	if m.GuildID != "" && m.Member != nil {
		c.putMember(m.GuildID, m.Author.ID, m.Member)
	}

	for _, mentioned := range m.Mentions {
		c.putUser(mentioned)
	}

	c.messages.Add(m.ID, messageFrom(m))
}

func (c *Cache) putMessageUpdate(e *discordgo.MessageUpdate) {
	if e.Author != nil {
		c.putUser(e.Author)

		if e.GuildID != "" && e.Member != nil {
			c.putMember(e.GuildID, e.Author.ID, e.Member)
		}
	}

	for _, mentioned := range e.Mentions {
		c.putUser(mentioned)
	}

	// Partial updates can arrive without an author; only rewrite the cached
	// projection when the payload identifies one.
	if e.Author != nil {
		c.messages.Add(e.ID, Message{AuthorID: e.Author.ID, Kind: e.Type})
	}
}

func (c *Cache) putUser(u *discordgo.User) {
	cached := userFrom(u)
	c.users.Add(cached.ID, cached)
}

func (c *Cache) putGuild(g *discordgo.Guild) {
	for _, role := range g.Roles {
		c.putRole(role)
	}

	cached := guildFrom(g)
	c.guilds.Add(cached.ID, cached)
}

func (c *Cache) putFullGuild(g *discordgo.Guild) {
	for _, channel := range g.Channels {
		c.putTextChannel(channel)
	}

	c.putGuild(g)
}

func (c *Cache) putRole(r *discordgo.Role) {
	cached := roleFrom(r)
	c.roles.Add(cached.ID, cached)
}

func (c *Cache) putMember(guildID, userID string, m *discordgo.Member) {
	c.members.Add(memberKey{GuildID: guildID, UserID: userID}, memberFrom(m))
}

func (c *Cache) putFullMember(guildID string, m *discordgo.Member) {
	if m.User != nil {
		c.putUser(m.User)
		c.putMember(guildID, m.User.ID, m)
	}
}

func (c *Cache) putTextChannel(ch *discordgo.Channel) {
	if ch.Type != discordgo.ChannelTypeGuildText && ch.Type != discordgo.ChannelTypeGuildNews {
		return
	}

	cached := channelFrom(ch)
	c.channels.Add(cached.ID, cached)
}

// fetchError classifies a remote failure: a 404 means the entity does not
// exist anywhere, anything else is a failed remote call.
func fetchError(entity, key string, err error) error {
	if isRemoteNotFound(err) {
		return apperrors.NewEntityNotFound(entity, key)
	}
	return apperrors.NewRemoteFetchFailed(entity, key, err)
}

func isRemoteNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

