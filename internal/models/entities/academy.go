package entities

import "time"

// Academy form types.
const (
	FormPresentation     = "presentation"
	FormObjectifs        = "objectifs"
	FormBilanMiParcours  = "bilan-mi-parcours"
	FormBilanFinal       = "bilan-final"
	FormRetourMentor     = "retour-mentor"
	AccessViaPassword    = "password"
	AccessViaDiscordRole = "discord_role"

	AcademyRoleParticipant = "participant"
	AcademyRoleMentor      = "mentor"
	AcademyRoleAdmin       = "admin"
)

var AcademyFormTypes = []string{FormPresentation, FormObjectifs, FormBilanMiParcours, FormBilanFinal, FormRetourMentor}

// FormMayBePublic reports whether responses of this type can be shared publicly.
func FormMayBePublic(formType string) bool {
	return formType == FormPresentation || formType == FormBilanFinal
}

func ValidFormType(formType string) bool {
	for _, t := range AcademyFormTypes {
		if t == formType {
			return true
		}
	}
	return false
}

type AcademyPromo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	IsActive     bool      `json:"isActive"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Open reports whether the promo accepts participants at t.
func (p *AcademyPromo) Open(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if !p.StartDate.IsZero() && t.Before(p.StartDate) {
		return false
	}
	if !p.EndDate.IsZero() && t.After(p.EndDate) {
		return false
	}
	return true
}

// Redacted drops the password hash before the promo leaves the service.
func (p AcademyPromo) Redacted() AcademyPromo {
	p.PasswordHash = ""
	return p
}

// AcademyAccess grants one Discord user a role inside one promo.
type AcademyAccess struct {
	PromoID     string    `json:"promoId"`
	DiscordID   string    `json:"discordId"`
	TwitchLogin string    `json:"twitchLogin"`
	Role        string    `json:"role"`
	GrantedVia  string    `json:"grantedVia"`
	GrantedAt   time.Time `json:"grantedAt"`
}

func AcademyAccessKey(promoID, discordID string) string { return promoID + ":" + discordID }

type AcademyFormResponse struct {
	ID          string            `json:"id"`
	PromoID     string            `json:"promoId"`
	DiscordID   string            `json:"discordId"`
	TwitchLogin string            `json:"twitchLogin"`
	FormType    string            `json:"formType"`
	Answers     map[string]string `json:"answers"`
	IsPublic    bool              `json:"isPublic"`
	SubmittedAt time.Time         `json:"submittedAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// AcademySettings is the single document under key "settings".
type AcademySettings struct {
	Enabled        bool      `json:"enabled"`
	ActivePromoID  string    `json:"activePromoId"`
	WelcomeMessage string    `json:"welcomeMessage"`
	UpdatedBy      string    `json:"updatedBy"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func ValidAcademyRole(role string) bool {
	return role == AcademyRoleParticipant || role == AcademyRoleMentor || role == AcademyRoleAdmin
}

// AcademyFormKey identifies one member's response of one form type.
func AcademyFormKey(promoID, discordID, formType string) string {
	return promoID + ":" + discordID + ":" + formType
}
