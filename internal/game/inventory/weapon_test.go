package inventory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

func pistolDef() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:               "pistol",
		Name:             "Pistol",
		Type:             inventory.WeaponRanged,
		DamageDice:       "1d8",
		ScalingAttribute: inventory.AttrPRC,
		ScalingDivisor:   3,
		AttackMod:        1,
		Ranges:           inventory.RangeBands{Short: 6, Medium: 12, Long: 24},
	}
}

func knifeDef() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:               "knife",
		Name:             "Knife",
		Type:             inventory.WeaponMelee,
		DamageDice:       "1d4+1",
		ScalingAttribute: inventory.AttrPWR,
		ScalingDivisor:   2,
	}
}

func TestWeaponDef_Validate_RejectsEmpty(t *testing.T) {
	err := (&inventory.WeaponDef{}).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrMisconfigured))
}

func TestWeaponDef_Validate_AcceptsMelee(t *testing.T) {
	require.NoError(t, knifeDef().Validate())
}

func TestWeaponDef_Validate_AcceptsRanged(t *testing.T) {
	require.NoError(t, pistolDef().Validate())
}

// TestWeaponDef_Validate_RejectsZeroDivisor verifies a zero scaling divisor is
// caught at load time rather than at resolution.
func TestWeaponDef_Validate_RejectsZeroDivisor(t *testing.T) {
	w := knifeDef()
	w.ScalingDivisor = 0
	err := w.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrMisconfigured)
	assert.Contains(t, err.Error(), "scaling_divisor")
}

func TestWeaponDef_Validate_RejectsMalformedDice(t *testing.T) {
	for _, expr := range []string{"", "d6", "2x6", "1d6+", "abc"} {
		w := knifeDef()
		w.DamageDice = expr
		assert.Error(t, w.Validate(), "expr %q", expr)
	}
}

func TestWeaponDef_Validate_RejectsUnknownAttribute(t *testing.T) {
	w := knifeDef()
	w.ScalingAttribute = "LCK"
	assert.Error(t, w.Validate())
}

func TestWeaponDef_Validate_RangedBandsMustBeOrdered(t *testing.T) {
	w := pistolDef()
	w.Ranges = inventory.RangeBands{Short: 10, Medium: 5, Long: 20}
	assert.Error(t, w.Validate())

	w.Ranges = inventory.RangeBands{}
	assert.Error(t, w.Validate())
}

func TestWeaponDef_Damage_FailsClosed(t *testing.T) {
	w := knifeDef()
	w.DamageDice = "bogus"
	_, err := w.Damage()
	assert.ErrorIs(t, err, inventory.ErrMisconfigured)

	expr, err := knifeDef().Damage()
	require.NoError(t, err)
	assert.Equal(t, 1, expr.Count)
	assert.Equal(t, 4, expr.Sides)
	assert.Equal(t, 1, expr.Modifier)
}

func TestUnarmed_IsValidMelee(t *testing.T) {
	u := inventory.Unarmed()
	require.NoError(t, u.Validate())
	assert.True(t, u.IsMelee())
	assert.Equal(t, 1, u.Reach())

	// Copies are independent.
	u.DamageDice = "9d9"
	assert.Equal(t, "1d3", inventory.Unarmed().DamageDice)
}

func TestWeaponDef_Reach(t *testing.T) {
	w := knifeDef()
	assert.Equal(t, 1, w.Reach())
	w.Ranges.Short = 2
	assert.Equal(t, 2, w.Reach())
}

func TestLoadWeapons_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := `id: rifle
name: Hunting Rifle
type: ranged
damage_dice: 2d6+1
scaling_attribute: PRC
scaling_divisor: 4
attack_mod: 1
ranges:
  short: 10
  medium: 25
  long: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rifle.yaml"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	weapons, err := inventory.LoadWeapons(dir)
	require.NoError(t, err)
	require.Len(t, weapons, 1)
	w := weapons[0]
	assert.Equal(t, "rifle", w.ID)
	assert.Equal(t, inventory.WeaponRanged, w.Type)
	assert.Equal(t, inventory.AttrPRC, w.ScalingAttribute)
	assert.Equal(t, 4, w.ScalingDivisor)
	assert.Equal(t, inventory.RangeBands{Short: 10, Medium: 25, Long: 50}, w.Ranges)
}

func TestLoadWeapons_RejectsZeroDivisorFile(t *testing.T) {
	dir := t.TempDir()
	content := `id: club
name: Club
type: melee
damage_dice: 1d6
scaling_attribute: PWR
scaling_divisor: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "club.yaml"), []byte(content), 0o644))
	_, err := inventory.LoadWeapons(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrMisconfigured)
	assert.Contains(t, err.Error(), "club.yaml")
}

func TestLoadWeapons_MissingDir(t *testing.T) {
	_, err := inventory.LoadWeapons(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadWeapons_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: [unterminated"), 0o644))
	_, err := inventory.LoadWeapons(dir)
	assert.Error(t, err)
}

// TestProperty_WeaponDef_PositiveDivisorAccepted checks that any positive
// divisor with a well-formed melee profile validates.
func TestProperty_WeaponDef_PositiveDivisorAccepted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := knifeDef()
		w.ScalingDivisor = rapid.IntRange(1, 1000).Draw(rt, "divisor")
		if err := w.Validate(); err != nil {
			rt.Fatalf("divisor %d rejected: %v", w.ScalingDivisor, err)
		}
	})
}
