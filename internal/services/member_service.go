package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/dtos"
	gormModels "tenf/portal/internal/models/gorm"
	"tenf/portal/internal/parsers"
)

type MemberInput struct {
	TwitchLogin     string               `json:"twitchLogin"`
	DiscordID       string               `json:"discordId"`
	DiscordUsername string               `json:"discordUsername"`
	DisplayName     string               `json:"displayName"`
	Role            constants.MemberRole `json:"role"`
	IsVip           bool                 `json:"isVip"`
	Bio             string               `json:"bio"`
	Badges          []string             `json:"badges"`
}

// MemberUpdate carries admin edits; nil fields are left unchanged. Role,
// DisplayName and IsActive become manual and stop following the Discord
// sync until listed in ReleaseFields.
type MemberUpdate struct {
	DiscordID       *string               `json:"discordId"`
	DiscordUsername *string               `json:"discordUsername"`
	DisplayName     *string               `json:"displayName"`
	Role            *constants.MemberRole `json:"role"`
	IsActive        *bool                 `json:"isActive"`
	IsVip           *bool                 `json:"isVip"`
	Bio             *string               `json:"bio"`
	Badges          []string              `json:"badges"`
	ReleaseFields   []string              `json:"releaseFields"`
}

type SyncReport struct {
	GuildMembers int      `json:"guildMembers"`
	Updated      int      `json:"updated"`
	Created      int      `json:"created"`
	Deactivated  int      `json:"deactivated"`
	Skipped      []string `json:"skipped"`
}

type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

type MemberService struct {
	store   repositories.MemberStore
	discord DiscordClient
	roleMap map[string]constants.MemberRole
	audit   AuditRecorder
}

// NewMemberService takes the Discord role id -> member role mapping used by
// the roster sync. Unknown role names in the mapping are dropped.
func NewMemberService(store repositories.MemberStore, discord DiscordClient, roleMap map[string]string, rec AuditRecorder) *MemberService {
	mapped := make(map[string]constants.MemberRole, len(roleMap))
	for id, name := range roleMap {
		role := constants.MemberRole(name)
		if !role.Valid() {
			logging.Warn("Ignoring unknown role in discord role map", "discord_role_id", id, "role", name)
			continue
		}
		mapped[id] = role
	}
	return &MemberService{store: store, discord: discord, roleMap: mapped, audit: rec}
}

func (s *MemberService) List(ctx context.Context, limit, offset int, activeOnly bool) ([]gormModels.Member, error) {
	members, err := s.store.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return members, nil
	}
	out := members[:0]
	for _, m := range members {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemberService) Get(ctx context.Context, login string) (*gormModels.Member, error) {
	m, err := s.store.FindByLogin(ctx, gormModels.NormalizeLogin(login))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("member %s: %w", login, common.ErrNotFound)
	}
	return m, nil
}

func (s *MemberService) GetByDiscordID(ctx context.Context, discordID string) (*gormModels.Member, error) {
	m, err := s.store.FindByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("member with discord id %s: %w", discordID, common.ErrNotFound)
	}
	return m, nil
}

// Create adds a member by hand. Role and display name count as manual.
func (s *MemberService) Create(ctx context.Context, actor string, in MemberInput) (*gormModels.Member, error) {
	login := gormModels.NormalizeLogin(in.TwitchLogin)
	if login == "" || login != NormalizeHandle(login) {
		return nil, common.Validationf("invalid twitch login %q", in.TwitchLogin)
	}
	if in.Role == "" {
		in.Role = constants.RoleAffilie
	}
	if !in.Role.Valid() {
		return nil, common.Validationf("unknown role %q", in.Role)
	}

	m := &gormModels.Member{
		TwitchLogin:     login,
		DiscordUsername: strings.TrimSpace(in.DiscordUsername),
		DisplayName:     strings.TrimSpace(in.DisplayName),
		Role:            in.Role,
		IsActive:        true,
		IsVip:           in.IsVip,
		Bio:             in.Bio,
		Badges:          []string{},
	}
	if id := strings.TrimSpace(in.DiscordID); id != "" {
		m.DiscordID = &id
	}
	if m.DisplayName == "" {
		m.DisplayName = login
	}
	for _, b := range in.Badges {
		m.AddBadge(strings.TrimSpace(b))
	}
	m.MarkSource(gormModels.FieldRole, gormModels.SourceManual)
	m.MarkSource(gormModels.FieldDisplayName, gormModels.SourceManual)

	if err := s.store.Create(ctx, m); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("member %s: %w", login, common.ErrConflict)
		}
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditMemberCreate, login, "role=%s", m.Role)
	return m, nil
}

func (s *MemberService) Update(ctx context.Context, actor, login string, upd MemberUpdate) (*gormModels.Member, error) {
	m, err := s.Get(ctx, login)
	if err != nil {
		return nil, err
	}

	var changed []string
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, common.Validationf("unknown role %q", *upd.Role)
		}
		m.Role = *upd.Role
		m.MarkSource(gormModels.FieldRole, gormModels.SourceManual)
		changed = append(changed, "role="+upd.Role.String())
	}
	if upd.DisplayName != nil {
		m.DisplayName = strings.TrimSpace(*upd.DisplayName)
		m.MarkSource(gormModels.FieldDisplayName, gormModels.SourceManual)
		changed = append(changed, "displayName")
	}
	if upd.IsActive != nil {
		m.IsActive = *upd.IsActive
		m.MarkSource(gormModels.FieldIsActive, gormModels.SourceManual)
		changed = append(changed, fmt.Sprintf("isActive=%t", *upd.IsActive))
	}
	if upd.DiscordID != nil {
		if id := strings.TrimSpace(*upd.DiscordID); id != "" {
			m.DiscordID = &id
		} else {
			m.DiscordID = nil
		}
		changed = append(changed, "discordId")
	}
	if upd.DiscordUsername != nil {
		m.DiscordUsername = strings.TrimSpace(*upd.DiscordUsername)
		changed = append(changed, "discordUsername")
	}
	if upd.IsVip != nil {
		m.IsVip = *upd.IsVip
		changed = append(changed, fmt.Sprintf("isVip=%t", *upd.IsVip))
	}
	if upd.Bio != nil {
		m.Bio = *upd.Bio
		changed = append(changed, "bio")
	}
	if upd.Badges != nil {
		m.Badges = []string{}
		for _, b := range upd.Badges {
			m.AddBadge(strings.TrimSpace(b))
		}
		changed = append(changed, "badges")
	}
	for _, field := range upd.ReleaseFields {
		switch field {
		case gormModels.FieldRole, gormModels.FieldDisplayName, gormModels.FieldIsActive:
			m.MarkSource(field, gormModels.SourceSynced)
			changed = append(changed, "release:"+field)
		default:
			return nil, common.Validationf("field %q cannot be released", field)
		}
	}

	if err := s.store.Update(ctx, m); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditMemberUpdate, m.TwitchLogin, "%s", strings.Join(changed, ","))
	return m, nil
}

// Deactivate is the only removal members get; the record stays.
func (s *MemberService) Deactivate(ctx context.Context, actor, login string) error {
	m, err := s.Get(ctx, login)
	if err != nil {
		return err
	}
	m.IsActive = false
	m.MarkSource(gormModels.FieldIsActive, gormModels.SourceManual)
	if err := s.store.Update(ctx, m); err != nil {
		return err
	}
	audit(ctx, s.audit, actor, constants.AuditMemberDeactivate, m.TwitchLogin, "")
	return nil
}

// mappedRole returns the highest community role among the Discord roles.
func (s *MemberService) mappedRole(discordRoles []string) (constants.MemberRole, bool) {
	best, found := constants.MemberRole(""), false
	for _, id := range discordRoles {
		role, ok := s.roleMap[id]
		if !ok {
			continue
		}
		if !found || roleOrder(role) > roleOrder(best) {
			best, found = role, true
		}
	}
	return best, found
}

func roleOrder(r constants.MemberRole) int {
	for i, known := range constants.AllMemberRoles {
		if known == r {
			return i
		}
	}
	return -1
}

// SyncDiscord refreshes the roster from the guild. Discord usernames always
// follow Discord; role, display name and activity only while not manual.
// Guild members holding a mapped role but unknown to the roster are
// created, keyed by their normalized nickname.
func (s *MemberService) SyncDiscord(ctx context.Context, actor string) (*SyncReport, error) {
	if s.discord == nil {
		return nil, common.Validationf("discord bot is not configured")
	}
	guild, err := s.discord.GetGuildMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild members: %w", err)
	}
	members, err := s.store.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	byDiscord := make(map[string]*gormModels.Member, len(members))
	byLogin := make(map[string]*gormModels.Member, len(members))
	for i := range members {
		m := &members[i]
		byLogin[m.TwitchLogin] = m
		if m.DiscordID != nil {
			byDiscord[*m.DiscordID] = m
		}
	}

	report := &SyncReport{Skipped: []string{}}
	inGuild := map[string]struct{}{}
	for _, gm := range guild {
		if gm.User.Bot {
			continue
		}
		report.GuildMembers++
		role, hasRole := s.mappedRole(gm.Roles)

		m, known := byDiscord[gm.User.ID]
		if !known {
			if !hasRole {
				continue
			}
			login := NormalizeHandle(gm.Name())
			if login == "" {
				report.Skipped = append(report.Skipped, gm.User.Username)
				continue
			}
			if existing, taken := byLogin[login]; taken {
				if existing.DiscordID != nil {
					report.Skipped = append(report.Skipped, gm.User.Username)
					continue
				}
				// Roster entry added by hand before the Discord account was known.
				m = existing
				id := gm.User.ID
				m.DiscordID = &id
				byDiscord[id] = m
			} else {
				created := newSyncedMember(login, gm, role)
				if err := s.store.Create(ctx, created); err != nil {
					return nil, fmt.Errorf("failed to create member %s: %w", login, err)
				}
				byLogin[login] = created
				byDiscord[gm.User.ID] = created
				inGuild[login] = struct{}{}
				report.Created++
				continue
			}
		}
		inGuild[m.TwitchLogin] = struct{}{}

		if applyGuildMember(m, gm, role, hasRole) {
			if err := s.store.Update(ctx, m); err != nil {
				return nil, fmt.Errorf("failed to update member %s: %w", m.TwitchLogin, err)
			}
			report.Updated++
		}
	}

	for _, m := range byLogin {
		if m.DiscordID == nil || !m.IsActive || m.IsManual(gormModels.FieldIsActive) {
			continue
		}
		if _, ok := inGuild[m.TwitchLogin]; ok {
			continue
		}
		if err := s.store.Deactivate(ctx, m.TwitchLogin); err != nil {
			return nil, fmt.Errorf("failed to deactivate member %s: %w", m.TwitchLogin, err)
		}
		report.Deactivated++
	}

	logging.Info("Discord roster sync finished",
		"guild_members", report.GuildMembers, "updated", report.Updated, "created", report.Created, "deactivated", report.Deactivated)
	audit(ctx, s.audit, actor, constants.AuditDiscordSync, "guild",
		"updated=%d created=%d deactivated=%d", report.Updated, report.Created, report.Deactivated)
	return report, nil
}

func newSyncedMember(login string, gm dtos.DiscordGuildMember, role constants.MemberRole) *gormModels.Member {
	id := gm.User.ID
	m := &gormModels.Member{
		TwitchLogin:     login,
		DiscordID:       &id,
		DiscordUsername: gm.User.Username,
		DisplayName:     gm.Name(),
		Role:            role,
		IsActive:        true,
		Badges:          []string{},
	}
	m.MarkSource(gormModels.FieldRole, gormModels.SourceSynced)
	m.MarkSource(gormModels.FieldDisplayName, gormModels.SourceSynced)
	m.MarkSource(gormModels.FieldIsActive, gormModels.SourceSynced)
	return m
}

// applyGuildMember merges Discord data into m and reports whether anything
// changed. Manual fields are left alone.
func applyGuildMember(m *gormModels.Member, gm dtos.DiscordGuildMember, role constants.MemberRole, hasRole bool) bool {
	changed := false
	if m.DiscordUsername != gm.User.Username {
		m.DiscordUsername = gm.User.Username
		changed = true
	}
	if hasRole && !m.IsManual(gormModels.FieldRole) && m.Role != role {
		m.Role = role
		m.MarkSource(gormModels.FieldRole, gormModels.SourceSynced)
		changed = true
	}
	if name := gm.Name(); name != "" && !m.IsManual(gormModels.FieldDisplayName) && m.DisplayName != name {
		m.DisplayName = name
		m.MarkSource(gormModels.FieldDisplayName, gormModels.SourceSynced)
		changed = true
	}
	if !m.IsActive && !m.IsManual(gormModels.FieldIsActive) {
		m.IsActive = true
		m.MarkSource(gormModels.FieldIsActive, gormModels.SourceSynced)
		changed = true
	}
	return changed
}

// Import creates or updates members from a roster spreadsheet with a
// login column and optional discord_id, discord_username, display_name,
// role and vip columns. Imported values count as manual.
func (s *MemberService) Import(ctx context.Context, actor, fileName string, data []byte) (*ImportReport, error) {
	p, err := parsers.GetParser(fileName)
	if err != nil {
		return nil, common.Validationf("%s", err.Error())
	}
	table, err := p.Parse(data)
	if err != nil {
		return nil, common.Validationf("%s", err.Error())
	}

	loginCol := table.Column("twitch_login", "login", "twitch", "pseudo")
	if loginCol < 0 {
		return nil, common.Validationf("file needs a twitch_login column")
	}
	idCol := table.Column("discord_id")
	userCol := table.Column("discord_username", "discord")
	nameCol := table.Column("display_name", "nom")
	roleCol := table.Column("role", "rôle")
	vipCol := table.Column("vip", "is_vip")

	report := &ImportReport{Errors: []string{}}
	for i, row := range table.Rows {
		line := i + 2
		login := gormModels.NormalizeLogin(parsers.Cell(row, loginCol))
		if login == "" {
			continue
		}
		if login != NormalizeHandle(login) {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: invalid login %q", line, login))
			continue
		}

		upd := MemberUpdate{}
		if v := parsers.Cell(row, idCol); v != "" {
			upd.DiscordID = &v
		}
		if v := parsers.Cell(row, userCol); v != "" {
			upd.DiscordUsername = &v
		}
		if v := parsers.Cell(row, nameCol); v != "" {
			upd.DisplayName = &v
		}
		if v := parsers.Cell(row, roleCol); v != "" {
			role := constants.MemberRole(v)
			if !role.Valid() {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: unknown role %q", line, v))
				continue
			}
			upd.Role = &role
		}
		if v := strings.ToLower(parsers.Cell(row, vipCol)); v != "" {
			vip := v == "true" || v == "oui" || v == "1" || v == "x"
			upd.IsVip = &vip
		}

		existing, err := s.store.FindByLogin(ctx, login)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			in := MemberInput{TwitchLogin: login}
			if upd.DiscordID != nil {
				in.DiscordID = *upd.DiscordID
			}
			if upd.DiscordUsername != nil {
				in.DiscordUsername = *upd.DiscordUsername
			}
			if upd.DisplayName != nil {
				in.DisplayName = *upd.DisplayName
			}
			if upd.Role != nil {
				in.Role = *upd.Role
			}
			if upd.IsVip != nil {
				in.IsVip = *upd.IsVip
			}
			if _, err := s.Create(ctx, actor, in); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			report.Created++
			continue
		}
		if _, err := s.Update(ctx, actor, login, upd); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.Updated++
	}

	audit(ctx, s.audit, actor, constants.AuditMemberImport, fileName,
		"created=%d updated=%d errors=%d", report.Created, report.Updated, len(report.Errors))
	return report, nil
}
