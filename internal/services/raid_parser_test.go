package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRaidMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []RaidMatch
	}{
		{"plain", "@Alice a raid @Bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"accent", "@alice à raid @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"no connective", "@alice raid @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"past tense and chez", "@alice a raidé chez @bob_42 ce soir !", []RaidMatch{{Raider: "alice", Target: "bob_42"}}},
		{"vient de", "@Alice vient de raid @Bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"emoji handles", "@✨Alice✨ a raid @🎮Bob🎮 gg", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"trailing punctuation", "@alice a raid @bob!!!", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"mentions", "<@111> a raid <@!222>", []RaidMatch{{RaiderID: "111", TargetID: "222"}}},
		{"mixed", "<@111> a raid @bob", []RaidMatch{{RaiderID: "111", Target: "bob"}}},
		{
			"two raids",
			"@alice a raid @bob puis @carol a raid @dave",
			[]RaidMatch{{Raider: "alice", Target: "bob"}, {Raider: "carol", Target: "dave"}},
		},
		{"fait un raid chez", "@Alice a fait un raid chez @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"emoji after raid", "@Alice a raid 🎉 @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"colon after raid", "@Alice a raid: @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"emoji before connective", "@Alice ✨ a raid @bob", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"emoji wrapped handle", "@🌟Alice🌟 a raid @Bob !!", []RaidMatch{{Raider: "alice", Target: "bob"}}},
		{"filler does not cross handles", "@alice 🎉 @bob a raid @carol", []RaidMatch{{Raider: "bob", Target: "carol"}}},
		{"too far apart", "@alice a raid ce soir avec toute la commu @bob", nil},
		{"no raid", "@alice salut @bob", nil},
		{"raid without handles", "gros raid ce soir", nil},
		{"raider only emoji", "@🎮 a raid @bob", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRaidMessage(tt.content))
		})
	}
}

func TestNormalizeHandle(t *testing.T) {
	require.Equal(t, "alice_01", NormalizeHandle("@Alice_01"))
	require.Equal(t, "bob", NormalizeHandle(" @B.o-b! "))
	require.Equal(t, "", NormalizeHandle("@🎮"))
}
