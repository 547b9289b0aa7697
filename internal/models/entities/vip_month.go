package entities

import "time"

type VipMonth struct {
	Month     string    `json:"month"`
	Logins    []string  `json:"logins"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TwitchToken is the OAuth token of a member who linked their Twitch account.
type TwitchToken struct {
	TwitchLogin  string    `json:"twitchLogin"`
	TwitchUserID string    `json:"twitchUserId"`
	DiscordID    string    `json:"discordId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
	LinkedAt     time.Time `json:"linkedAt"`
}
