package entities

import "time"

const (
	RaidSourceBot        = "bot"
	RaidSourceManual     = "manual"
	RaidSourceTwitchLive = "twitch-live"
)

// RaidRecord is one raid edge, raider -> target.
type RaidRecord struct {
	ID        string    `json:"id"`
	Raider    string    `json:"raider"`
	Target    string    `json:"target"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	MessageID string    `json:"messageId,omitempty"`
}

// RaidPair identifies an ordered raider/target couple.
type RaidPair struct {
	Raider string `json:"raider"`
	Target string `json:"target"`
}

// RaidMonth is the blob document holding every raid of one month.
type RaidMonth struct {
	Month        string            `json:"month"`
	Raids        []RaidRecord      `json:"raids"`
	Ignored      []RaidPair        `json:"ignored"`
	ScannedUntil map[string]string `json:"scannedUntil"`
}

func (m *RaidMonth) IsIgnored(raider, target string) bool {
	for _, p := range m.Ignored {
		if p.Raider == raider && p.Target == target {
			return true
		}
	}
	return false
}
