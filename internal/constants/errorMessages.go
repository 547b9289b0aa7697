package constants

const (
	MsgInvalidJSON        = "invalid JSON body"
	MsgUnauthenticated    = "authentication required"
	MsgForbidden          = "insufficient permissions"
	MsgSafeModeEnabled    = "safe mode is enabled: only founders can write"
	MsgNotFound           = "resource not found"
	MsgAlreadyRegistered  = "member already registered for this event"
	MsgMonthClosed        = "evaluation month is closed"
	MsgInternal           = "internal server error"
	MsgInvalidMonth       = "invalid month, expected YYYY-MM"
	MsgOAuthStateMismatch = "oauth state mismatch"
)

// Audit actions written to audit_logs.
const (
	AuditMemberCreate     = "member.create"
	AuditMemberUpdate     = "member.update"
	AuditMemberDeactivate = "member.deactivate"
	AuditMemberImport     = "member.import"
	AuditDiscordSync      = "member.discord_sync"
	AuditEventCreate      = "event.create"
	AuditEventUpdate      = "event.update"
	AuditEventDelete      = "event.delete"
	AuditRaidAdd          = "raid.add"
	AuditRaidScan         = "raid.scan"
	AuditRaidDedupe       = "raid.dedupe"
	AuditRaidIgnore       = "raid.ignore"
	AuditEvaluationBonus  = "evaluation.bonus"
	AuditEvaluationClose  = "evaluation.close"
	AuditEvaluationFeed   = "evaluation.feed"
	AuditSpotlight        = "spotlight.update"
	AuditAcademy          = "academy.update"
	AuditVipMonth         = "vip_month.update"
	AuditSafeMode         = "safe_mode.toggle"
	AuditSyncImport       = "sync.import"
)
