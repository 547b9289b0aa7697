package services

import (
	"regexp"
	"strings"
)

// raidPattern matches "@A a raid @B" and its variants: "à raid", "vient de
// raid", "a fait un raid chez", "raidé", "raid: @B", emoji or short words
// on either side of the raid word, Discord mentions (<@123>) and any
// trailing text. Filler never crosses another handle.
var raidPattern = regexp.MustCompile(
	`(?i)(<@!?\d+>|@[^\s@<>]+)(?:\s+[^\s@<>]+){0,5}?\s+raid[^\s@<>]*(?:\s+[^\s@<>]+){0,3}?\s*(<@!?\d+>|@[^\s@<>]+)`,
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// RaidMatch is one raid found in a message. Mention handles carry the
// Discord id instead of a login.
type RaidMatch struct {
	Raider   string
	RaiderID string
	Target   string
	TargetID string
}

// ParseRaidMessage returns every raid announced in content.
func ParseRaidMessage(content string) []RaidMatch {
	var out []RaidMatch
	for _, m := range raidPattern.FindAllStringSubmatch(content, -1) {
		match := RaidMatch{}
		match.Raider, match.RaiderID = splitHandle(m[1])
		match.Target, match.TargetID = splitHandle(m[2])
		if (match.Raider == "" && match.RaiderID == "") || (match.Target == "" && match.TargetID == "") {
			continue
		}
		out = append(out, match)
	}
	return out
}

func splitHandle(h string) (login, discordID string) {
	if m := mentionPattern.FindStringSubmatch(h); m != nil {
		return "", m[1]
	}
	return NormalizeHandle(h), ""
}

// NormalizeHandle case-folds a handle and strips everything that cannot
// appear in a Twitch login (punctuation, emoji, the leading @).
func NormalizeHandle(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
