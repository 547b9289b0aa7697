package services

import (
	"context"
	"fmt"

	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
)

// DiscordClient is the part of the Discord REST API the services use.
type DiscordClient interface {
	GetGuildMembers(ctx context.Context) ([]dtos.DiscordGuildMember, error)
	GetGuildMember(ctx context.Context, userID string) (*dtos.DiscordGuildMember, error)
	GetChannelMessages(ctx context.Context, channelID, after string, limit int) ([]dtos.DiscordMessage, error)
}

// TwitchClient is the part of Helix the services use.
type TwitchClient interface {
	GetUsers(ctx context.Context, logins []string) ([]dtos.TwitchUser, error)
	GetStreams(ctx context.Context, logins []string) ([]dtos.TwitchStream, error)
	GetClips(ctx context.Context, broadcasterID string, first int) ([]dtos.TwitchClip, error)
	GetVideos(ctx context.Context, userID string, first int) ([]dtos.TwitchVideo, error)
}

// AuditRecorder persists admin write actions.
type AuditRecorder interface {
	Insert(ctx context.Context, entry *entities.AuditLog) error
}

// audit records an admin action. A failed audit write is logged and never
// fails the action itself.
func audit(ctx context.Context, rec AuditRecorder, actor, action, target string, details string, args ...interface{}) {
	if rec == nil {
		return
	}
	if len(args) > 0 {
		details = fmt.Sprintf(details, args...)
	}
	entry := &entities.AuditLog{Actor: actor, Action: action, Target: target, Details: details}
	if err := rec.Insert(ctx, entry); err != nil {
		logging.Error("Failed to write audit log", "action", action, "target", target, "error", err.Error())
	}
}
