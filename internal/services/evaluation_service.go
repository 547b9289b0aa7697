package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
	gormModels "tenf/portal/internal/models/gorm"
	"tenf/portal/internal/parsers"
)

// Evaluation components, one per sub-system feeding the monthly record.
const (
	ComponentSpotlight = "spotlight"
	ComponentRaids     = "raids"
	ComponentDiscord   = "discord"
	ComponentEvents    = "events"
	ComponentFollow    = "follow"
	ComponentBonus     = "bonus"
	ComponentClose     = "close"
)

// ValidateMonth checks the YYYY-MM month key.
func ValidateMonth(month string) error {
	if _, err := time.Parse(constants.MonthLayout, month); err != nil {
		return common.Validationf("%s", constants.MsgInvalidMonth)
	}
	return nil
}

func MonthOf(t time.Time) string { return t.UTC().Format(constants.MonthLayout) }

type EvaluationService struct {
	store   repositories.EvaluationStore
	events  repositories.EventStore
	members repositories.MemberStore
	audit   AuditRecorder
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

func NewEvaluationService(
	store repositories.EvaluationStore,
	events repositories.EventStore,
	members repositories.MemberStore,
	audit AuditRecorder,
	m *metrics.MetricsRegistry,
) *EvaluationService {
	return &EvaluationService{
		store:   store,
		events:  events,
		members: members,
		audit:   audit,
		metrics: m,
		now:     time.Now,
	}
}

// Recompute refreshes the derived totals of e from its sub-scores.
func Recompute(e *gormModels.Evaluation) {
	base := CalculateTotalHorsBonus(e.SpotlightScore, e.RaidPoints, e.DiscordScore, e.EventScore, e.FollowScore)
	tz := 0.0
	if e.TimezoneBonus {
		tz = TimezoneBonus
	}
	e.TotalHorsBonus = base.Total
	e.TotalAvecBonus = CalculateTotalAvecBonus(base.Total, tz, e.ModerationBonus).Total
	e.AutoStatus = GetAutoStatus(e.TotalAvecBonus)
}

func (s *EvaluationService) Get(ctx context.Context, login, month string) (*gormModels.Evaluation, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	e, err := s.store.Find(ctx, gormModels.NormalizeLogin(login), month)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("evaluation %s/%s: %w", login, month, common.ErrNotFound)
	}
	return e, nil
}

func (s *EvaluationService) ListMonth(ctx context.Context, month string) ([]gormModels.Evaluation, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	return s.store.FindByMonth(ctx, month)
}

func (s *EvaluationService) History(ctx context.Context, login string) ([]gormModels.Evaluation, error) {
	return s.store.FindByMember(ctx, gormModels.NormalizeLogin(login))
}

// IsMonthClosed reports whether any record of month has been finalized.
func (s *EvaluationService) IsMonthClosed(ctx context.Context, month string) (bool, error) {
	evals, err := s.store.FindByMonth(ctx, month)
	if err != nil {
		return false, err
	}
	for i := range evals {
		if evals[i].Finalized() {
			return true, nil
		}
	}
	return false, nil
}

func (s *EvaluationService) ensureMonthOpen(ctx context.Context, month string, force bool) error {
	if err := ValidateMonth(month); err != nil {
		return err
	}
	if force {
		return nil
	}
	closed, err := s.IsMonthClosed(ctx, month)
	if err != nil {
		return err
	}
	if closed {
		return fmt.Errorf("%s: %w", month, common.ErrMonthClosed)
	}
	return nil
}

// merge loads (or starts) the record of login/month, lets mutate update
// one component, recomputes the totals and writes the record back. Other
// components are left as they are.
func (s *EvaluationService) merge(ctx context.Context, login, month, component string, force bool, mutate func(*gormModels.Evaluation)) (*gormModels.Evaluation, error) {
	login = gormModels.NormalizeLogin(login)
	if login == "" {
		return nil, common.Validationf("member login is required")
	}

	e, err := s.store.Find(ctx, login, month)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &gormModels.Evaluation{MemberLogin: login, Month: month}
	} else if e.Finalized() && !force {
		return nil, fmt.Errorf("%s/%s: %w", login, month, common.ErrMonthClosed)
	}

	mutate(e)
	Recompute(e)

	if err := s.store.Upsert(ctx, e); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EvaluationUpsertsTotal.WithLabelValues(component).Inc()
	}
	return e, nil
}

// BonusUpdate carries the optional bonus fields; nil leaves a field as is.
type BonusUpdate struct {
	TimezoneBonus   *bool
	ModerationBonus *float64
}

func (s *EvaluationService) SetBonus(ctx context.Context, actor, login, month string, upd BonusUpdate, force bool) (*gormModels.Evaluation, error) {
	if err := s.ensureMonthOpen(ctx, month, force); err != nil {
		return nil, err
	}
	if upd.ModerationBonus != nil && (*upd.ModerationBonus < 0 || *upd.ModerationBonus > MaxModeration) {
		return nil, common.Validationf("moderation bonus must be between 0 and %v", MaxModeration)
	}

	e, err := s.merge(ctx, login, month, ComponentBonus, force, func(e *gormModels.Evaluation) {
		if upd.TimezoneBonus != nil {
			e.TimezoneBonus = *upd.TimezoneBonus
		}
		if upd.ModerationBonus != nil {
			e.ModerationBonus = *upd.ModerationBonus
		}
	})
	if err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditEvaluationBonus, e.Key(),
		"timezone=%t moderation=%v force=%t", e.TimezoneBonus, e.ModerationBonus, force)
	return e, nil
}

// SetRaidStats writes the raid component of one member.
func (s *EvaluationService) SetRaidStats(ctx context.Context, login, month string, done, received int, force bool) (*gormModels.Evaluation, error) {
	return s.merge(ctx, login, month, ComponentRaids, force, func(e *gormModels.Evaluation) {
		e.RaidsDone = done
		e.RaidsReceived = received
		e.RaidPoints = RaidPoints(done)
	})
}

func (s *EvaluationService) SetSpotlightStats(ctx context.Context, login, month string, present, total int, force bool) (*gormModels.Evaluation, error) {
	return s.merge(ctx, login, month, ComponentSpotlight, force, func(e *gormModels.Evaluation) {
		e.SpotlightPresent = present
		e.SpotlightTotal = total
		e.SpotlightScore = SpotlightScore(present, total)
	})
}

// DiscordEngagementRow is one member's Discord activity for a month. Name
// is a Twitch login or a Discord username.
type DiscordEngagementRow struct {
	Name         string `json:"name"`
	Messages     int    `json:"messages"`
	VoiceMinutes int    `json:"voiceMinutes"`
}

// FeedReport summarises a bulk sub-score write.
type FeedReport struct {
	Updated   int      `json:"updated"`
	Unmatched []string `json:"unmatched"`
}

func (s *EvaluationService) SetDiscordEngagement(ctx context.Context, actor, month string, rows []DiscordEngagementRow, force bool) (*FeedReport, error) {
	if err := s.ensureMonthOpen(ctx, month, force); err != nil {
		return nil, err
	}
	resolve, err := s.loginResolver(ctx)
	if err != nil {
		return nil, err
	}

	report := &FeedReport{Unmatched: []string{}}
	for _, row := range rows {
		login := resolve(row.Name)
		if login == "" {
			report.Unmatched = append(report.Unmatched, row.Name)
			continue
		}
		_, err := s.merge(ctx, login, month, ComponentDiscord, force, func(e *gormModels.Evaluation) {
			e.DiscordMessages = row.Messages
			e.DiscordVoiceMinutes = row.VoiceMinutes
			e.DiscordMessageScore = DiscordMessageScore(row.Messages)
			e.DiscordVoiceScore = DiscordVoiceScore(row.VoiceMinutes)
			e.DiscordScore = DiscordScore(e.DiscordMessageScore, e.DiscordVoiceScore)
		})
		if err != nil {
			return nil, err
		}
		report.Updated++
	}

	audit(ctx, s.audit, actor, constants.AuditEvaluationFeed, month,
		"component=discord updated=%d unmatched=%d", report.Updated, len(report.Unmatched))
	return report, nil
}

// ParseDiscordEngagement reads an engagement export (TSV, CSV or XLSX)
// with a name column and message/voice columns.
func ParseDiscordEngagement(fileName string, data []byte) ([]DiscordEngagementRow, error) {
	p, err := parsers.GetParser(fileName)
	if err != nil {
		return nil, common.Validationf("%s", err.Error())
	}
	table, err := p.Parse(data)
	if err != nil {
		return nil, common.Validationf("%s", err.Error())
	}

	nameCol := table.Column("login", "twitch_login", "pseudo", "username", "name")
	msgCol := table.Column("messages", "message_count", "nb_messages")
	voiceCol := table.Column("voice_minutes", "minutes_vocal", "vocal", "voice")
	if nameCol < 0 {
		nameCol = 0
	}
	if msgCol < 0 && voiceCol < 0 {
		return nil, common.Validationf("file needs a messages or voice_minutes column")
	}

	var rows []DiscordEngagementRow
	for i, r := range table.Rows {
		name := parsers.Cell(r, nameCol)
		if name == "" {
			continue
		}
		msgs, err := parseCount(parsers.Cell(r, msgCol))
		if err != nil {
			return nil, common.Validationf("row %d: invalid message count", i+2)
		}
		voice, err := parseCount(parsers.Cell(r, voiceCol))
		if err != nil {
			return nil, common.Validationf("row %d: invalid voice minutes", i+2)
		}
		rows = append(rows, DiscordEngagementRow{Name: name, Messages: msgs, VoiceMinutes: voice})
	}
	return rows, nil
}

func parseCount(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid count %q", v)
	}
	return int(f), nil
}

// FollowEntry is a staff-reported follow count for one member.
type FollowEntry struct {
	Login    string `json:"login"`
	Followed int    `json:"followed"`
	Total    int    `json:"total"`
}

func (s *EvaluationService) SetFollow(ctx context.Context, actor, month string, entries []FollowEntry, force bool) (*FeedReport, error) {
	if err := s.ensureMonthOpen(ctx, month, force); err != nil {
		return nil, err
	}
	// Validate the whole batch before writing any of it.
	for _, entry := range entries {
		if entry.Followed < 0 || entry.Total < 0 || entry.Followed > entry.Total {
			return nil, common.Validationf("invalid follow counts for %s", entry.Login)
		}
		if err := s.requireMember(ctx, entry.Login); err != nil {
			return nil, err
		}
	}

	report := &FeedReport{Unmatched: []string{}}
	for _, entry := range entries {
		_, err := s.merge(ctx, entry.Login, month, ComponentFollow, force, func(e *gormModels.Evaluation) {
			e.FollowedCount = entry.Followed
			e.FollowTotal = entry.Total
			e.FollowScore = FollowScore(entry.Followed, entry.Total)
		})
		if err != nil {
			return nil, err
		}
		report.Updated++
	}
	audit(ctx, s.audit, actor, constants.AuditEvaluationFeed, month, "component=follow updated=%d", report.Updated)
	return report, nil
}

// RecomputeEvents derives event participation from registrations on the
// published events of month. Members with an evaluation but no
// registration get 0 out of the month's total.
func (s *EvaluationService) RecomputeEvents(ctx context.Context, actor, month string, force bool) (*FeedReport, error) {
	if err := s.ensureMonthOpen(ctx, month, force); err != nil {
		return nil, err
	}
	events, err := s.events.FindPublishedInMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	attended := map[string]int{}
	for _, ev := range events {
		for _, reg := range ev.Registrations {
			attended[gormModels.NormalizeLogin(reg.MemberLogin)]++
		}
	}
	existing, err := s.store.FindByMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if _, ok := attended[e.MemberLogin]; !ok {
			attended[e.MemberLogin] = 0
		}
	}

	total := len(events)
	report := &FeedReport{Unmatched: []string{}}
	for login, count := range attended {
		_, err := s.merge(ctx, login, month, ComponentEvents, force, func(e *gormModels.Evaluation) {
			e.EventsAttended = count
			e.EventsTotal = total
			e.EventScore = EventScore(count, total)
		})
		if err != nil {
			return nil, err
		}
		report.Updated++
	}
	audit(ctx, s.audit, actor, constants.AuditEvaluationFeed, month, "component=events events=%d updated=%d", total, report.Updated)
	return report, nil
}

// CloseMonth finalizes every record of month. Later writes fail with
// ErrMonthClosed unless forced by a founder.
func (s *EvaluationService) CloseMonth(ctx context.Context, actor, month string) (int, error) {
	if err := ValidateMonth(month); err != nil {
		return 0, err
	}
	evals, err := s.store.FindByMonth(ctx, month)
	if err != nil {
		return 0, err
	}
	if len(evals) == 0 {
		return 0, common.Validationf("no evaluation recorded for %s", month)
	}

	now := s.now().UTC()
	closed := 0
	for i := range evals {
		e := &evals[i]
		if e.Finalized() {
			continue
		}
		e.FinalizedAt = &now
		if err := s.store.Upsert(ctx, e); err != nil {
			return closed, err
		}
		closed++
	}
	if s.metrics != nil {
		s.metrics.EvaluationUpsertsTotal.WithLabelValues(ComponentClose).Add(float64(closed))
	}

	logging.Info("Evaluation month closed", "month", month, "records", closed, "actor", actor)
	audit(ctx, s.audit, actor, constants.AuditEvaluationClose, month, "records=%d", closed)
	return closed, nil
}

// requireMember fails with ErrNotFound when login is not on the roster.
func (s *EvaluationService) requireMember(ctx context.Context, login string) error {
	login = gormModels.NormalizeLogin(login)
	if login == "" {
		return common.Validationf("member login is required")
	}
	m, err := s.members.FindByLogin(ctx, login)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("member %s: %w", login, common.ErrNotFound)
	}
	return nil
}

// rosterLogins returns the set of member logins.
func (s *EvaluationService) rosterLogins(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.members.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	logins := make(map[string]struct{}, len(members))
	for _, m := range members {
		logins[m.TwitchLogin] = struct{}{}
	}
	return logins, nil
}

// loginResolver maps a name to a member login: an exact login first, then
// a case-insensitive Discord username.
func (s *EvaluationService) loginResolver(ctx context.Context) (func(string) string, error) {
	members, err := s.members.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	logins := make(map[string]struct{}, len(members))
	byDiscord := make(map[string]string, len(members))
	for _, m := range members {
		logins[m.TwitchLogin] = struct{}{}
		if m.DiscordUsername != "" {
			byDiscord[strings.ToLower(m.DiscordUsername)] = m.TwitchLogin
		}
	}
	return func(name string) string {
		if l := gormModels.NormalizeLogin(name); l != "" {
			if _, ok := logins[l]; ok {
				return l
			}
		}
		return byDiscord[strings.ToLower(strings.TrimSpace(name))]
	}, nil
}
