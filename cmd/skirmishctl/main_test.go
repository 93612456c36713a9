package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// faces replays die faces: each Intn(n) returns the next face minus one.
type faces struct {
	vals []int
	i    int
}

func (f *faces) Intn(n int) int {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return (v - 1) % n
}

func run(t *testing.T, src dice.Source, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(src)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoll_JSON(t *testing.T) {
	out, err := run(t, &faces{vals: []int{4, 5}}, "roll", "2d6+3", "--json")
	require.NoError(t, err)
	var results []dice.RollResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, []int{4, 5}, results[0].Dice)
	assert.Equal(t, 12, results[0].Total())
}

func TestRoll_Table(t *testing.T) {
	out, err := run(t, &faces{vals: []int{2}}, "roll", "1d6", "1d4-1", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "1d6")
	assert.Contains(t, out, "1d4-1")
	assert.Contains(t, out, "Expression")
	assert.NotContains(t, out, "EXPRESSION", "headers render as written")
}

func TestCheck_TableFooter(t *testing.T) {
	out, err := run(t, &faces{vals: []int{3, 4}}, "check", "--attr", "10", "--tn", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "58.33")
	assert.Contains(t, out, "chance")
	assert.NotContains(t, out, "CHANCE")
}

func TestRoll_InvalidExpression(t *testing.T) {
	_, err := run(t, &faces{vals: []int{1}}, "roll", "d20")
	require.Error(t, err)
	assert.ErrorIs(t, err, dice.ErrInvalidExpression)
}

func TestCheck_Boxcars(t *testing.T) {
	out, err := run(t, &faces{vals: []int{6, 6}}, "check", "--attr", "4", "--tn", "30", "--json")
	require.NoError(t, err)
	var results []dice.SkillCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, dice.CriticalAutoSuccess, results[0].Critical)
}

func TestCheck_Modifiers(t *testing.T) {
	out, err := run(t, &faces{vals: []int{3, 4}}, "check", "--attr", "10", "--skill", "1",
		"--tn", "8", "--mod", "cover=-2", "--mod", "aim=1", "--json")
	require.NoError(t, err)
	var results []dice.SkillCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, 0, results[0].ModifierTotal, "mod(10)=0, skill 1, cover -2, aim +1")
	assert.Equal(t, 7, results[0].Total)
	assert.False(t, results[0].Success)
}

// TestOpposed_TieGoesToDefender verifies equal totals resolve for the defender.
func TestOpposed_TieGoesToDefender(t *testing.T) {
	out, err := run(t, &faces{vals: []int{3, 4}}, "opposed", "--json")
	require.NoError(t, err)
	var res dice.OpposedCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, dice.WinnerDefender, res.Winner)
	assert.True(t, res.Tie)
}

func TestParseModifiers_Rejects(t *testing.T) {
	for _, raw := range []string{"cover", "=2", "cover=two"} {
		_, err := parseModifiers([]string{raw})
		assert.Error(t, err, raw)
	}
}

func TestOdds_MatchesSuccessProbability(t *testing.T) {
	out, err := run(t, nil, "odds", "--attr-min", "10", "--attr-max", "12", "--tn-min", "7", "--tn-max", "9", "--json")
	require.NoError(t, err)
	var odds oddsTable
	require.NoError(t, json.Unmarshal([]byte(out), &odds))
	assert.Equal(t, []int{7, 8, 9}, odds.TNs)
	require.Len(t, odds.Rows, 3)
	assert.Equal(t, 58.33, odds.Rows[0].Chance[0], "7+ on 2d6")
}

// TestPropertyOddsMonotonic verifies a higher target number never raises the chance.
func TestPropertyOddsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		skill := rapid.IntRange(0, 5).Draw(t, "skill")
		attr := rapid.IntRange(1, 20).Draw(t, "attr")
		odds := buildOdds(skill, 0, attr, attr, 2, 20)
		chances := odds.Rows[0].Chance
		for i := 1; i < len(chances); i++ {
			if chances[i] > chances[i-1] {
				t.Fatalf("chance rose from %v to %v at tn %d", chances[i-1], chances[i], odds.TNs[i])
			}
		}
	})
}

func TestExtended_Completes(t *testing.T) {
	out, err := run(t, &faces{vals: []int{5, 5}}, "extended", "--tn", "8", "--required", "2", "--json")
	require.NoError(t, err)
	var ext dice.ExtendedCheck
	require.NoError(t, json.Unmarshal([]byte(out), &ext))
	assert.Equal(t, dice.ExtendedCompleted, ext.Status)
	assert.Len(t, ext.Attempts, 2)
}

func TestExtended_Fails(t *testing.T) {
	out, err := run(t, &faces{vals: []int{1, 2}}, "extended", "--tn", "8", "--max-failures", "2", "--json")
	require.NoError(t, err)
	var ext dice.ExtendedCheck
	require.NoError(t, json.Unmarshal([]byte(out), &ext))
	assert.Equal(t, dice.ExtendedFailed, ext.Status)
	assert.Equal(t, 2, ext.Failures)
}

func TestRest(t *testing.T) {
	out, err := run(t, &faces{vals: []int{3, 4}}, "rest", "--end", "14", "--long", "--json")
	require.NoError(t, err)
	var results []combat.RestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 7+dice.AttributeModifier(14), results[0].Amount)
}

func writeContent(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"weapons", "armor", "cover", "items"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "weapons", "club.yaml"), []byte(`
id: club
name: Club
type: melee
damage_dice: 1d6
scaling_attribute: PWR
scaling_divisor: 2
ranges: {short: 1}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "armor", "vest.yaml"), []byte(`
id: vest
name: Vest
value: 1
agi_penalty: 2
`), 0o644))
	return root
}

func TestAttack_SingleWithCatalog(t *testing.T) {
	root := writeContent(t)
	// 6,6 boxcars hits; 4 on the club.
	out, err := run(t, &faces{vals: []int{6, 6, 4}}, "--content", root,
		"attack", "--weapon", "club", "--armor", "vest", "--pwr", "14", "--json")
	require.NoError(t, err)
	var res combat.AttackResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "club", res.WeaponID)
	assert.Equal(t, combat.AttackMelee, res.Kind)
	assert.Equal(t, 10+dice.AttributeModifier(8)+1, res.Defense, "vest lowers AGI 10 to 8 and adds 1")
	assert.True(t, res.Hit)
	require.NotNil(t, res.Damage)
}

func TestAttack_UnknownWeapon(t *testing.T) {
	root := writeContent(t)
	_, err := run(t, &faces{vals: []int{1}}, "--content", root, "attack", "--weapon", "railgun")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "railgun")
}

func TestAttack_Summary(t *testing.T) {
	out, err := run(t, &faces{vals: []int{1, 1}}, "attack", "-n", "10", "--json")
	require.NoError(t, err)
	var sum attackSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 10, sum.Trials)
	assert.Zero(t, sum.Hits, "snake eyes always fail")
	assert.Equal(t, 10, sum.Tiers[dice.TierCatastrophe]+sum.Tiers[dice.TierMiss])
}

func TestNewEntries_OrdersAndSkipsSeen(t *testing.T) {
	entries := []combat.LogEntry{{Seq: 3}, {Seq: 1}, {Seq: 2}, {Seq: 4}}
	got := newEntries(entries, 2)
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Empty(t, newEntries(entries, 5))
}
