package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
	"tenf/portal/internal/models/entities"
)

// RaidAlertThreshold is the monthly count at which a single raider->target
// pair gets flagged.
const RaidAlertThreshold = 3

const (
	discordEpochMs = 1420070400000
	scanPageSize   = 100
	maxScanPages   = 50
)

type RaidMemberStats struct {
	Login    string         `json:"login"`
	Done     int            `json:"done"`
	Received int            `json:"received"`
	Points   float64        `json:"points"`
	Targets  map[string]int `json:"targets"`
}

type RaidAlert struct {
	Raider string `json:"raider"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

type RaidSummary struct {
	Month   string            `json:"month"`
	Members []RaidMemberStats `json:"members"`
	Alerts  []RaidAlert       `json:"alerts"`
	Ignored int               `json:"ignored"`
}

type ScanReport struct {
	Month      string   `json:"month"`
	Channels   int      `json:"channels"`
	Messages   int      `json:"messages"`
	Recorded   int      `json:"recorded"`
	Unresolved []string `json:"unresolved"`
}

// RaidService keeps one blob document per month with every raid edge, the
// ignored pairs and the scan cursor of each Discord channel.
type RaidService struct {
	months      *blob.Collection[entities.RaidMonth]
	members     repositories.MemberStore
	evaluations *EvaluationService
	discord     DiscordClient
	channelIDs  []string
	audit       AuditRecorder
	metrics     *metrics.MetricsRegistry
	now         func() time.Time
}

func NewRaidService(
	store blob.Store,
	members repositories.MemberStore,
	evaluations *EvaluationService,
	discord DiscordClient,
	channelIDs []string,
	audit AuditRecorder,
	m *metrics.MetricsRegistry,
) *RaidService {
	return &RaidService{
		months:      blob.NewCollection[entities.RaidMonth](store, constants.StoreRaids),
		members:     members,
		evaluations: evaluations,
		discord:     discord,
		channelIDs:  channelIDs,
		audit:       audit,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *RaidService) load(ctx context.Context, month string) *entities.RaidMonth {
	doc, ok := s.months.Get(ctx, month)
	if !ok {
		doc = &entities.RaidMonth{Month: month}
	}
	if doc.Raids == nil {
		doc.Raids = []entities.RaidRecord{}
	}
	if doc.Ignored == nil {
		doc.Ignored = []entities.RaidPair{}
	}
	if doc.ScannedUntil == nil {
		doc.ScannedUntil = map[string]string{}
	}
	return doc
}

// List returns the stored month document; a month without data is empty.
func (s *RaidService) List(ctx context.Context, month string) (*entities.RaidMonth, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	return s.load(ctx, month), nil
}

// AddRaid records a manual or twitch-live raid.
func (s *RaidService) AddRaid(ctx context.Context, actor, raider, target string, date time.Time, source string) (*entities.RaidRecord, error) {
	raider, target = NormalizeHandle(raider), NormalizeHandle(target)
	if raider == "" || target == "" {
		return nil, common.Validationf("raider and target are required")
	}
	if raider == target {
		return nil, common.Validationf("a streamer cannot raid themselves")
	}
	switch source {
	case entities.RaidSourceManual, entities.RaidSourceTwitchLive:
	case "":
		source = entities.RaidSourceManual
	default:
		return nil, common.Validationf("invalid raid source %q", source)
	}
	if date.IsZero() {
		date = s.now()
	}
	date = date.UTC()
	month := MonthOf(date)
	if err := s.evaluations.ensureMonthOpen(ctx, month, false); err != nil {
		return nil, err
	}

	doc := s.load(ctx, month)
	rec := entities.RaidRecord{ID: uuid.NewString(), Raider: raider, Target: target, Date: date, Source: source}
	doc.Raids = append(doc.Raids, rec)
	if err := s.months.Put(ctx, month, doc); err != nil {
		return nil, err
	}
	s.recorded(source, 1)

	audit(ctx, s.audit, actor, constants.AuditRaidAdd, month, "%s -> %s (%s)", raider, target, source)
	if err := s.RecomputePoints(ctx, month); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Aggregate computes per-member done/received counts, target histograms
// and alerts. Ignored pairs are left out.
func (s *RaidService) Aggregate(ctx context.Context, month string) (*RaidSummary, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	return AggregateRaids(s.load(ctx, month)), nil
}

func AggregateRaids(doc *entities.RaidMonth) *RaidSummary {
	stats := map[string]*RaidMemberStats{}
	get := func(login string) *RaidMemberStats {
		st, ok := stats[login]
		if !ok {
			st = &RaidMemberStats{Login: login, Targets: map[string]int{}}
			stats[login] = st
		}
		return st
	}

	summary := &RaidSummary{Month: doc.Month, Members: []RaidMemberStats{}, Alerts: []RaidAlert{}}
	for _, r := range doc.Raids {
		if doc.IsIgnored(r.Raider, r.Target) {
			summary.Ignored++
			continue
		}
		raider := get(r.Raider)
		raider.Done++
		raider.Targets[r.Target]++
		get(r.Target).Received++
	}

	for _, st := range stats {
		st.Points = RaidPoints(st.Done)
		for target, n := range st.Targets {
			if n >= RaidAlertThreshold {
				summary.Alerts = append(summary.Alerts, RaidAlert{Raider: st.Login, Target: target, Count: n})
			}
		}
		summary.Members = append(summary.Members, *st)
	}
	sort.Slice(summary.Members, func(i, j int) bool { return summary.Members[i].Login < summary.Members[j].Login })
	sort.Slice(summary.Alerts, func(i, j int) bool {
		a, b := summary.Alerts[i], summary.Alerts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Raider != b.Raider {
			return a.Raider < b.Raider
		}
		return a.Target < b.Target
	})
	return summary
}

// DedupeRaids keeps one record per raid, ordered by date, and reports how
// many were dropped. Bot records are keyed on (raider, target, timestamp)
// since each one comes from its own announcement. Manual and twitch-live
// records are keyed on (raider, target, UTC day) so the same raid entered
// by hand and seen live counts once; the earliest record of the day wins.
func DedupeRaids(raids []entities.RaidRecord) ([]entities.RaidRecord, int) {
	type key struct {
		raider, target string
		entered        bool
		date           int64
	}
	sorted := make([]entities.RaidRecord, len(raids))
	copy(sorted, raids)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		if sorted[i].Raider != sorted[j].Raider {
			return sorted[i].Raider < sorted[j].Raider
		}
		return sorted[i].Target < sorted[j].Target
	})

	seen := make(map[key]struct{}, len(sorted))
	out := make([]entities.RaidRecord, 0, len(sorted))
	for _, r := range sorted {
		k := key{raider: r.Raider, target: r.Target, date: r.Date.UnixNano()}
		if r.Source == entities.RaidSourceManual || r.Source == entities.RaidSourceTwitchLive {
			k.entered = true
			k.date = r.Date.UTC().Truncate(24 * time.Hour).Unix()
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(raids) - len(out)
}

func (s *RaidService) Dedupe(ctx context.Context, actor, month string) (int, error) {
	if err := s.evaluations.ensureMonthOpen(ctx, month, false); err != nil {
		return 0, err
	}
	doc := s.load(ctx, month)
	var removed int
	doc.Raids, removed = DedupeRaids(doc.Raids)
	if removed == 0 {
		return 0, nil
	}
	if err := s.months.Put(ctx, month, doc); err != nil {
		return 0, err
	}
	audit(ctx, s.audit, actor, constants.AuditRaidDedupe, month, "removed=%d", removed)
	return removed, s.RecomputePoints(ctx, month)
}

// SetIgnored adds or removes a raider/target pair from the ignore list.
func (s *RaidService) SetIgnored(ctx context.Context, actor, month, raider, target string, ignored bool) (*entities.RaidMonth, error) {
	if err := s.evaluations.ensureMonthOpen(ctx, month, false); err != nil {
		return nil, err
	}
	raider, target = NormalizeHandle(raider), NormalizeHandle(target)
	if raider == "" || target == "" {
		return nil, common.Validationf("raider and target are required")
	}

	doc := s.load(ctx, month)
	pairs := doc.Ignored[:0]
	for _, p := range doc.Ignored {
		if p.Raider != raider || p.Target != target {
			pairs = append(pairs, p)
		}
	}
	if ignored {
		pairs = append(pairs, entities.RaidPair{Raider: raider, Target: target})
	}
	doc.Ignored = pairs

	if err := s.months.Put(ctx, month, doc); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditRaidIgnore, month, "%s -> %s ignored=%t", raider, target, ignored)
	return doc, s.RecomputePoints(ctx, month)
}

// ScanDiscord reads the raid channels from the last scanned message (or
// the start of month) and records every raid announced during month.
// Handles that match no member are reported, not recorded.
func (s *RaidService) ScanDiscord(ctx context.Context, actor, month string) (*ScanReport, error) {
	if err := s.evaluations.ensureMonthOpen(ctx, month, false); err != nil {
		return nil, err
	}
	if s.discord == nil || len(s.channelIDs) == 0 {
		return nil, common.Validationf("no Discord raid channel configured")
	}
	start, _ := time.Parse(constants.MonthLayout, month)
	end := start.AddDate(0, 1, 0)

	doc := s.load(ctx, month)
	known := make(map[string]struct{}, len(doc.Raids))
	for _, r := range doc.Raids {
		if r.MessageID != "" {
			known[r.MessageID+"|"+r.Raider+"|"+r.Target] = struct{}{}
		}
	}

	resolve := s.handleResolver(ctx)
	report := &ScanReport{Month: month, Channels: len(s.channelIDs), Unresolved: []string{}}
	unresolved := map[string]struct{}{}

	for _, channelID := range s.channelIDs {
		after := doc.ScannedUntil[channelID]
		if after == "" {
			after = snowflakeAt(start)
		}

	pages:
		for page := 0; page < maxScanPages; page++ {
			msgs, err := s.discord.GetChannelMessages(ctx, channelID, after, scanPageSize)
			if err != nil {
				return nil, fmt.Errorf("failed to scan channel %s: %w", channelID, err)
			}
			for _, msg := range msgs {
				if !msg.Timestamp.Before(end) {
					break pages
				}
				after = msg.ID
				doc.ScannedUntil[channelID] = msg.ID
				report.Messages++

				for _, match := range ParseRaidMessage(msg.Content) {
					raider, okR := resolve(match.Raider, match.RaiderID)
					target, okT := resolve(match.Target, match.TargetID)
					if !okR {
						unresolved[handleLabel(match.Raider, match.RaiderID)] = struct{}{}
					}
					if !okT {
						unresolved[handleLabel(match.Target, match.TargetID)] = struct{}{}
					}
					if !okR || !okT || raider == target {
						continue
					}
					k := msg.ID + "|" + raider + "|" + target
					if _, dup := known[k]; dup {
						continue
					}
					known[k] = struct{}{}
					doc.Raids = append(doc.Raids, entities.RaidRecord{
						ID:        uuid.NewString(),
						Raider:    raider,
						Target:    target,
						Date:      msg.Timestamp.UTC(),
						Source:    entities.RaidSourceBot,
						MessageID: msg.ID,
					})
					report.Recorded++
				}
			}
			if len(msgs) < scanPageSize {
				break
			}
		}
	}

	for h := range unresolved {
		report.Unresolved = append(report.Unresolved, h)
	}
	sort.Strings(report.Unresolved)

	if err := s.months.Put(ctx, month, doc); err != nil {
		return nil, err
	}
	s.recorded(entities.RaidSourceBot, report.Recorded)

	logging.Info("Discord raid scan finished",
		"month", month, "messages", report.Messages, "recorded", report.Recorded, "unresolved", len(report.Unresolved))
	audit(ctx, s.audit, actor, constants.AuditRaidScan, month,
		"messages=%d recorded=%d unresolved=%d", report.Messages, report.Recorded, len(report.Unresolved))
	return report, s.RecomputePoints(ctx, month)
}

// RecomputePoints writes every member's raid counts for month into the
// evaluation records.
func (s *RaidService) RecomputePoints(ctx context.Context, month string) error {
	summary, err := s.Aggregate(ctx, month)
	if err != nil {
		return err
	}
	roster, err := s.evaluations.rosterLogins(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(summary.Members))
	for _, st := range summary.Members {
		seen[st.Login] = struct{}{}
		// Raids with streamers outside the community are kept in the month
		// document but never score.
		if _, ok := roster[st.Login]; !ok {
			logging.Debug("Skipping raid points for login off the roster", "login", st.Login, "month", month)
			continue
		}
		if _, err := s.evaluations.SetRaidStats(ctx, st.Login, month, st.Done, st.Received, false); err != nil {
			return err
		}
	}

	// Members whose raids were all ignored or removed drop back to zero.
	existing, err := s.evaluations.store.FindByMonth(ctx, month)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if _, ok := seen[e.MemberLogin]; ok || (e.RaidsDone == 0 && e.RaidsReceived == 0) {
			continue
		}
		if _, err := s.evaluations.SetRaidStats(ctx, e.MemberLogin, month, 0, 0, false); err != nil {
			return err
		}
	}
	return nil
}

// handleResolver maps a parsed handle to a member login: Discord mentions
// through the member's Discord id, text handles through the login itself.
func (s *RaidService) handleResolver(ctx context.Context) func(login, discordID string) (string, bool) {
	byDiscord := map[string]string{}
	logins := map[string]struct{}{}
	members, err := s.members.FindAll(ctx, 0, 0)
	if err != nil {
		logging.Warn("Failed to load members for raid scan", "error", err.Error())
	}
	for _, m := range members {
		logins[m.TwitchLogin] = struct{}{}
		if m.DiscordID != nil {
			byDiscord[*m.DiscordID] = m.TwitchLogin
		}
		if u := NormalizeHandle(m.DiscordUsername); u != "" {
			if _, taken := logins[u]; !taken {
				byDiscord["name:"+u] = m.TwitchLogin
			}
		}
	}
	return func(login, discordID string) (string, bool) {
		if discordID != "" {
			l, ok := byDiscord[discordID]
			return l, ok
		}
		if _, ok := logins[login]; ok {
			return login, true
		}
		l, ok := byDiscord["name:"+login]
		return l, ok
	}
}

func (s *RaidService) recorded(source string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.RaidsRecordedTotal.WithLabelValues(source).Add(float64(n))
	}
}

func handleLabel(login, discordID string) string {
	if discordID != "" {
		return "<@" + discordID + ">"
	}
	return "@" + login
}

// snowflakeAt returns the smallest Discord snowflake created at t, usable
// as an "after" cursor.
func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpochMs
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms<<22, 10)
}
