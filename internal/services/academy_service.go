package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/entities"
)

const academySettingsKey = "settings"

type PromoInput struct {
	Name      string    `json:"name"`
	Password  string    `json:"password"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
}

// AcademyMember is the caller as the Academy sees it.
type AcademyMember struct {
	DiscordID   string
	TwitchLogin string
}

type AcademyService struct {
	settings *blob.Collection[entities.AcademySettings]
	promos   *blob.Collection[entities.AcademyPromo]
	access   *blob.Collection[entities.AcademyAccess]
	forms    *blob.Collection[entities.AcademyFormResponse]
	discord  DiscordClient
	roleMap  map[string]string
	audit    AuditRecorder
	now      func() time.Time
}

// NewAcademyService takes the Discord role id -> academy role mapping used
// to grant access without a password.
func NewAcademyService(store blob.Store, discord DiscordClient, roleMap map[string]string, rec AuditRecorder) *AcademyService {
	mapped := map[string]string{}
	for id, role := range roleMap {
		if entities.ValidAcademyRole(role) {
			mapped[id] = role
		}
	}
	return &AcademyService{
		settings: blob.NewCollection[entities.AcademySettings](store, constants.StoreAcademy),
		promos:   blob.NewCollection[entities.AcademyPromo](store, constants.StoreAcademyPromos),
		access:   blob.NewCollection[entities.AcademyAccess](store, constants.StoreAcademyAccess),
		forms:    blob.NewCollection[entities.AcademyFormResponse](store, constants.StoreAcademyForms),
		discord:  discord,
		roleMap:  mapped,
		audit:    rec,
		now:      time.Now,
	}
}

func (s *AcademyService) Settings(ctx context.Context) *entities.AcademySettings {
	st, ok := s.settings.Get(ctx, academySettingsKey)
	if !ok {
		return &entities.AcademySettings{}
	}
	return st
}

func (s *AcademyService) UpdateSettings(ctx context.Context, actor string, in entities.AcademySettings) (*entities.AcademySettings, error) {
	if in.ActivePromoID != "" {
		if _, ok := s.promos.Get(ctx, in.ActivePromoID); !ok {
			return nil, common.Validationf("unknown promo %q", in.ActivePromoID)
		}
	}
	in.UpdatedBy = actor
	in.UpdatedAt = s.now().UTC()
	if err := s.settings.Put(ctx, academySettingsKey, &in); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditAcademy, "settings", "enabled=%t promo=%s", in.Enabled, in.ActivePromoID)
	return &in, nil
}

func (s *AcademyService) ListPromos(ctx context.Context) ([]entities.AcademyPromo, error) {
	promos, err := s.promos.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range promos {
		promos[i] = promos[i].Redacted()
	}
	sort.SliceStable(promos, func(i, j int) bool { return promos[i].StartDate.After(promos[j].StartDate) })
	return promos, nil
}

func (s *AcademyService) promo(ctx context.Context, id string) (*entities.AcademyPromo, error) {
	p, ok := s.promos.Get(ctx, id)
	if !ok {
		return nil, fmt.Errorf("promo %s: %w", id, common.ErrNotFound)
	}
	return p, nil
}

func (s *AcademyService) GetPromo(ctx context.Context, id string) (*entities.AcademyPromo, error) {
	p, err := s.promo(ctx, id)
	if err != nil {
		return nil, err
	}
	r := p.Redacted()
	return &r, nil
}

func (s *AcademyService) CreatePromo(ctx context.Context, actor string, in PromoInput) (*entities.AcademyPromo, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.Validationf("promo name is required")
	}
	if in.Password == "" {
		return nil, common.Validationf("promo password is required")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, common.Validationf("end date is before start date")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash promo password: %w", err)
	}

	p := &entities.AcademyPromo{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		IsActive:     in.IsActive,
		CreatedBy:    actor,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.promos.Put(ctx, p.ID, p); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditAcademy, p.ID, "create promo %q", p.Name)
	r := p.Redacted()
	return &r, nil
}

// UpdatePromo edits a promo; an empty password keeps the current one.
func (s *AcademyService) UpdatePromo(ctx context.Context, actor, id string, in PromoInput) (*entities.AcademyPromo, error) {
	p, err := s.promo(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash promo password: %w", err)
		}
		p.PasswordHash = string(hash)
	}
	p.StartDate, p.EndDate, p.IsActive = in.StartDate, in.EndDate, in.IsActive
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return nil, common.Validationf("end date is before start date")
	}
	if err := s.promos.Put(ctx, p.ID, p); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditAcademy, p.ID, "update promo active=%t", p.IsActive)
	r := p.Redacted()
	return &r, nil
}

// Join grants access to an open promo, by password when one is given,
// otherwise through the caller's Discord roles.
func (s *AcademyService) Join(ctx context.Context, promoID string, who AcademyMember, password string) (*entities.AcademyAccess, error) {
	if who.DiscordID == "" {
		return nil, common.ErrUnauthenticated
	}
	if !s.Settings(ctx).Enabled {
		return nil, fmt.Errorf("academy is closed: %w", common.ErrForbidden)
	}
	p, err := s.promo(ctx, promoID)
	if err != nil {
		return nil, err
	}
	if !p.Open(s.now()) {
		return nil, fmt.Errorf("promo %s is not open: %w", p.Name, common.ErrForbidden)
	}
	key := entities.AcademyAccessKey(promoID, who.DiscordID)
	existing, hasGrant := s.access.Get(ctx, key)

	grant := &entities.AcademyAccess{
		PromoID:     promoID,
		DiscordID:   who.DiscordID,
		TwitchLogin: who.TwitchLogin,
		GrantedAt:   s.now().UTC(),
	}
	fromDiscord := s.discordRole(ctx, who.DiscordID)
	switch {
	case password != "":
		if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
			return nil, fmt.Errorf("wrong promo password: %w", common.ErrForbidden)
		}
		grant.Role, grant.GrantedVia = entities.AcademyRoleParticipant, entities.AccessViaPassword
		if academyRank(fromDiscord) > academyRank(grant.Role) {
			grant.Role, grant.GrantedVia = fromDiscord, entities.AccessViaDiscordRole
		}
	case fromDiscord != "":
		grant.Role, grant.GrantedVia = fromDiscord, entities.AccessViaDiscordRole
	case hasGrant:
		return existing, nil
	default:
		return nil, fmt.Errorf("no academy role on discord: %w", common.ErrForbidden)
	}

	// A stored grant is only ever upgraded.
	if hasGrant && academyRank(existing.Role) >= academyRank(grant.Role) {
		return existing, nil
	}
	if hasGrant {
		grant.GrantedAt = existing.GrantedAt
	}

	if err := s.access.Put(ctx, key, grant); err != nil {
		return nil, err
	}
	logging.Info("Academy access granted", "promo", promoID, "discord_id", who.DiscordID, "via", grant.GrantedVia)
	return grant, nil
}

// discordRole looks the user up in the guild. Any failure means no access.
func (s *AcademyService) discordRole(ctx context.Context, discordID string) string {
	if s.discord == nil || len(s.roleMap) == 0 {
		return ""
	}
	gm, err := s.discord.GetGuildMember(ctx, discordID)
	if err != nil {
		logging.Warn("Discord role lookup failed, denying academy access", "discord_id", discordID, "error", err.Error())
		return ""
	}
	if gm == nil {
		return ""
	}
	best := ""
	for _, id := range gm.Roles {
		if role, ok := s.roleMap[id]; ok && academyRank(role) > academyRank(best) {
			best = role
		}
	}
	return best
}

func academyRank(role string) int {
	switch role {
	case entities.AcademyRoleParticipant:
		return 1
	case entities.AcademyRoleMentor:
		return 2
	case entities.AcademyRoleAdmin:
		return 3
	}
	return 0
}

// Access returns the caller's grant on a promo. When both a stored grant and
// a Discord role apply, the higher ranked role wins. Without either the
// caller is forbidden.
func (s *AcademyService) Access(ctx context.Context, promoID, discordID string) (*entities.AcademyAccess, error) {
	if discordID == "" {
		return nil, common.ErrUnauthenticated
	}
	stored, hasGrant := s.access.Get(ctx, entities.AcademyAccessKey(promoID, discordID))
	role := s.discordRole(ctx, discordID)
	if hasGrant && academyRank(stored.Role) >= academyRank(role) {
		return stored, nil
	}
	if role != "" {
		a := &entities.AcademyAccess{PromoID: promoID, DiscordID: discordID, Role: role, GrantedVia: entities.AccessViaDiscordRole}
		if hasGrant {
			a.TwitchLogin, a.GrantedAt = stored.TwitchLogin, stored.GrantedAt
		}
		return a, nil
	}
	return nil, fmt.Errorf("no access to promo %s: %w", promoID, common.ErrForbidden)
}

func (s *AcademyService) ListAccess(ctx context.Context, promoID string) ([]entities.AcademyAccess, error) {
	all, err := s.access.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []entities.AcademyAccess{}
	for _, a := range all {
		if a.PromoID == promoID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AcademyService) GrantAccess(ctx context.Context, actor string, grant entities.AcademyAccess) (*entities.AcademyAccess, error) {
	if grant.DiscordID == "" || !entities.ValidAcademyRole(grant.Role) {
		return nil, common.Validationf("discord id and a valid role are required")
	}
	if _, err := s.promo(ctx, grant.PromoID); err != nil {
		return nil, err
	}
	grant.GrantedAt = s.now().UTC()
	if grant.GrantedVia == "" {
		grant.GrantedVia = entities.AccessViaPassword
	}
	if err := s.access.Put(ctx, entities.AcademyAccessKey(grant.PromoID, grant.DiscordID), &grant); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditAcademy, grant.PromoID, "grant %s to %s", grant.Role, grant.DiscordID)
	return &grant, nil
}

func (s *AcademyService) RevokeAccess(ctx context.Context, actor, promoID, discordID string) error {
	key := entities.AcademyAccessKey(promoID, discordID)
	if _, ok := s.access.Get(ctx, key); !ok {
		return fmt.Errorf("access %s: %w", key, common.ErrNotFound)
	}
	if err := s.access.Delete(ctx, key); err != nil {
		return err
	}
	audit(ctx, s.audit, actor, constants.AuditAcademy, promoID, "revoke %s", discordID)
	return nil
}

// SubmitForm upserts the caller's response of one form type. Only
// presentation and bilan-final may be made public.
func (s *AcademyService) SubmitForm(ctx context.Context, promoID string, who AcademyMember, formType string, answers map[string]string, public bool) (*entities.AcademyFormResponse, error) {
	if !entities.ValidFormType(formType) {
		return nil, common.Validationf("unknown form type %q", formType)
	}
	if public && !entities.FormMayBePublic(formType) {
		return nil, common.Validationf("form %q cannot be public", formType)
	}
	if len(answers) == 0 {
		return nil, common.Validationf("answers are required")
	}
	access, err := s.Access(ctx, promoID, who.DiscordID)
	if err != nil {
		return nil, err
	}
	if formType == entities.FormRetourMentor && access.Role == entities.AcademyRoleParticipant {
		return nil, fmt.Errorf("mentor feedback is reserved to mentors: %w", common.ErrForbidden)
	}

	now := s.now().UTC()
	key := entities.AcademyFormKey(promoID, who.DiscordID, formType)
	resp, ok := s.forms.Get(ctx, key)
	if !ok {
		resp = &entities.AcademyFormResponse{
			ID:          uuid.NewString(),
			PromoID:     promoID,
			DiscordID:   who.DiscordID,
			FormType:    formType,
			SubmittedAt: now,
		}
	}
	resp.TwitchLogin = who.TwitchLogin
	resp.Answers = answers
	resp.IsPublic = public
	resp.UpdatedAt = now

	if err := s.forms.Put(ctx, key, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListForms returns the responses of a promo, optionally of one type and
// optionally of one member.
func (s *AcademyService) ListForms(ctx context.Context, promoID, formType, discordID string) ([]entities.AcademyFormResponse, error) {
	all, err := s.forms.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []entities.AcademyFormResponse{}
	for _, f := range all {
		if f.PromoID != promoID {
			continue
		}
		if formType != "" && f.FormType != formType {
			continue
		}
		if discordID != "" && f.DiscordID != discordID {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// PublicForms lists the shared responses of a promo.
func (s *AcademyService) PublicForms(ctx context.Context, promoID string) ([]entities.AcademyFormResponse, error) {
	all, err := s.ListForms(ctx, promoID, "", "")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, f := range all {
		if f.IsPublic && entities.FormMayBePublic(f.FormType) {
			out = append(out, f)
		}
	}
	return out, nil
}
