package dtos

import "time"

// Discord REST payloads (API v10), trimmed to the fields the portal reads.

type DiscordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Avatar     *string `json:"avatar"`
	Bot        bool    `json:"bot,omitempty"`
}

// DisplayName prefers the global display name over the username.
func (u DiscordUser) DisplayName() string {
	if u.GlobalName != nil && *u.GlobalName != "" {
		return *u.GlobalName
	}
	return u.Username
}

// AvatarURL is the CDN url of the user's avatar, "" when unset.
func (u DiscordUser) AvatarURL() string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	return "https://cdn.discordapp.com/avatars/" + u.ID + "/" + *u.Avatar + ".png"
}

type DiscordGuildMember struct {
	User     DiscordUser `json:"user"`
	Nick     *string     `json:"nick"`
	Roles    []string    `json:"roles"`
	JoinedAt time.Time   `json:"joined_at"`
}

// Name is the guild nickname when set.
func (m DiscordGuildMember) Name() string {
	if m.Nick != nil && *m.Nick != "" {
		return *m.Nick
	}
	return m.User.DisplayName()
}

type DiscordMessage struct {
	ID        string        `json:"id"`
	ChannelID string        `json:"channel_id"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Author    DiscordUser   `json:"author"`
	Mentions  []DiscordUser `json:"mentions"`
}
