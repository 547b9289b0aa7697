package services

import "math"

// Evaluation scales. The base total sums five sub-scores out of 25; the
// bonus total adds a flat timezone bonus and a 0-5 moderation bonus.
const (
	MaxSubScore       = 5.0
	MaxEventScore     = 2.0
	MaxTotalHorsBonus = 25.0
	MaxTotalAvecBonus = 32.0
	TimezoneBonus     = 2.0
	MaxModeration     = 5.0

	StatusVip        = "vip"
	StatusSurveiller = "surveiller"
	StatusNeutre     = "neutre"

	vipThreshold        = 16.0
	surveillerThreshold = 5.0
)

// Total is a score with its scale maximum.
type Total struct {
	Total float64 `json:"total"`
	Max   float64 `json:"max"`
}

// RaidPoints converts a monthly raid count to 0-5 points:
// 0 -> 0, 1-2 -> 1, 3 -> 2, 4 -> 3, 5 -> 4, 6+ -> 5.
func RaidPoints(raidsDone int) float64 {
	switch {
	case raidsDone <= 0:
		return 0
	case raidsDone <= 2:
		return 1
	case raidsDone >= 6:
		return 5
	default:
		return float64(raidsDone - 1)
	}
}

// CalculateTotalHorsBonus sums the five sub-scores. Events are scored out
// of 2 and scaled to 5 before summing.
func CalculateTotalHorsBonus(spotlight, raids, discord, events, follow float64) Total {
	total := clamp(spotlight, 0, MaxSubScore) +
		clamp(raids, 0, MaxSubScore) +
		clamp(discord, 0, MaxSubScore) +
		clamp(events, 0, MaxEventScore)*MaxSubScore/MaxEventScore +
		clamp(follow, 0, MaxSubScore)
	return Total{Total: round2(clamp(total, 0, MaxTotalHorsBonus)), Max: MaxTotalHorsBonus}
}

// CalculateTotalAvecBonus adds the bonuses to a base total. timezone is
// either 0 or TimezoneBonus; moderation is clamped to 0-5.
func CalculateTotalAvecBonus(base, timezone, moderation float64) Total {
	total := clamp(base, 0, MaxTotalHorsBonus) +
		clamp(timezone, 0, TimezoneBonus) +
		clamp(moderation, 0, MaxModeration)
	return Total{Total: round2(clamp(total, 0, MaxTotalAvecBonus)), Max: MaxTotalAvecBonus}
}

// GetAutoStatus classifies a bonus total: above 16 vip, below 5
// surveiller, neutre otherwise.
func GetAutoStatus(totalAvecBonus float64) string {
	switch {
	case totalAvecBonus > vipThreshold:
		return StatusVip
	case totalAvecBonus < surveillerThreshold:
		return StatusSurveiller
	default:
		return StatusNeutre
	}
}

// RatioScore scales part/whole to [0, max]; an empty whole scores 0.
func RatioScore(part, whole int, max float64) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return round2(clamp(float64(part)/float64(whole)*max, 0, max))
}

func SpotlightScore(present, total int) float64 { return RatioScore(present, total, MaxSubScore) }

func EventScore(attended, total int) float64 { return RatioScore(attended, total, MaxEventScore) }

func FollowScore(followed, total int) float64 { return RatioScore(followed, total, MaxSubScore) }

// DiscordMessageScore: 0 -> 0, 1-9 -> 1, 10-49 -> 2, 50-149 -> 3,
// 150-299 -> 4, 300+ -> 5.
func DiscordMessageScore(messages int) float64 {
	return stepScore(messages, []int{1, 10, 50, 150, 300})
}

// DiscordVoiceScore works on voice minutes: 0 -> 0, under 30 -> 1, under
// 120 -> 2, under 300 -> 3, under 600 -> 4, 600+ -> 5.
func DiscordVoiceScore(minutes int) float64 {
	return stepScore(minutes, []int{1, 30, 120, 300, 600})
}

// DiscordScore averages the message and voice sub-scores.
func DiscordScore(messageScore, voiceScore float64) float64 {
	return round2(clamp((messageScore+voiceScore)/2, 0, MaxSubScore))
}

// stepScore returns how many thresholds v reaches.
func stepScore(v int, thresholds []int) float64 {
	score := 0
	for _, th := range thresholds {
		if v >= th {
			score++
		}
	}
	return float64(score)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
