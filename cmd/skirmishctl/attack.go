package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

func (c *cli) loadRegistry() (*inventory.Registry, error) {
	root := c.v.GetString("content")
	return inventory.LoadRegistry(inventory.ContentDirs{
		Weapons: filepath.Join(root, "weapons"),
		Armor:   filepath.Join(root, "armor"),
		Covers:  filepath.Join(root, "cover"),
		Items:   filepath.Join(root, "items"),
	})
}

type attackFlags struct {
	weapon, armor               string
	pwr, prc, melee, firearms   int
	defAGI, defHP               int
	hp, maxHP                   int
	distance, cover, evasion, n int
}

// attackSummary aggregates repeated attacks.
type attackSummary struct {
	Trials  int               `json:"trials"`
	Hits    int               `json:"hits"`
	Tiers   map[dice.Tier]int `json:"tiers"`
	Damage  int               `json:"damage"`
	Defense int               `json:"defense"`
	Kind    combat.AttackKind `json:"kind"`
	Penalty int               `json:"rangePenalty"`
}

func (s attackSummary) hitRate() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Hits) * 100 / float64(s.Trials)
}

func (s attackSummary) averageDamage() float64 {
	if s.Hits == 0 {
		return 0
	}
	return float64(s.Damage) / float64(s.Hits)
}

func (c *cli) attackCmd() *cobra.Command {
	var f attackFlags
	cmd := &cobra.Command{
		Use:   "attack",
		Short: "Resolve simulated attacks with catalog weapons and armor",
		Long: `Resolve one or more attacks between two combatants. --weapon and --armor
name catalog entries under --content; without --weapon the attacker is unarmed.
Damage is reported but never applied, so every trial starts from the same state.`,
		Example: "  skirmishctl attack --weapon pistol --armor vest --prc 14 --firearms 2 --distance 6 -n 1000",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.n < 1 {
				return errors.New("--times must be >= 1")
			}
			attacker, defender, err := c.duelists(f)
			if err != nil {
				return err
			}
			actx := combat.AttackContext{Distance: f.distance, CoverBonus: f.cover, Evasion: f.evasion}
			if f.n == 1 {
				res, err := combat.ResolveAttack(c.src, attacker, defender, actx)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(cmd, res)
				}
				c.renderAttack(cmd, res)
				return nil
			}
			sum := attackSummary{Trials: f.n, Tiers: map[dice.Tier]int{}}
			for range f.n {
				res, err := combat.ResolveAttack(c.src, attacker, defender, actx)
				if err != nil {
					return err
				}
				sum.Defense, sum.Kind, sum.Penalty = res.Defense, res.Kind, res.RangePenalty
				sum.Tiers[res.Check.Tier]++
				if res.Hit {
					sum.Hits++
					sum.Damage += res.Damage.Final
				}
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, sum)
			}
			c.renderSummary(cmd, sum)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.weapon, "weapon", "", "attacker weapon id")
	cmd.Flags().StringVar(&f.armor, "armor", "", "defender armor id")
	cmd.Flags().IntVar(&f.pwr, "pwr", 10, "attacker PWR")
	cmd.Flags().IntVar(&f.prc, "prc", 10, "attacker PRC")
	cmd.Flags().IntVar(&f.melee, "melee", 0, "attacker melee skill")
	cmd.Flags().IntVar(&f.firearms, "firearms", 0, "attacker firearms skill")
	cmd.Flags().IntVar(&f.hp, "hp", 30, "attacker current HP")
	cmd.Flags().IntVar(&f.maxHP, "max-hp", 30, "attacker maximum HP")
	cmd.Flags().IntVar(&f.defAGI, "def-agi", 10, "defender AGI")
	cmd.Flags().IntVar(&f.defHP, "def-hp", 30, "defender HP, also its maximum")
	cmd.Flags().IntVar(&f.distance, "distance", 1, "distance in squares")
	cmd.Flags().IntVar(&f.cover, "cover", 0, "defender cover bonus")
	cmd.Flags().IntVar(&f.evasion, "evasion", 0, "defender pending dodge bonus")
	cmd.Flags().IntVarP(&f.n, "times", "n", 1, "number of attacks")
	return cmd
}

func (c *cli) duelists(f attackFlags) (*combat.Combatant, *combat.Combatant, error) {
	attacker := &combat.Combatant{
		ID:         "attacker",
		Name:       "Attacker",
		Side:       "a",
		Attributes: combat.Attributes{PWR: f.pwr, AGI: 10, END: 10, VEL: 10, PRC: f.prc},
		Skills:     combat.Skills{Melee: f.melee, Firearms: f.firearms},
		HP:         f.hp,
		MaxHP:      f.maxHP,
	}
	defender := &combat.Combatant{
		ID:         "defender",
		Name:       "Defender",
		Side:       "b",
		Attributes: combat.Attributes{PWR: 10, AGI: f.defAGI, END: 10, VEL: 10, PRC: 10},
		HP:         f.defHP,
		MaxHP:      f.defHP,
	}
	if f.weapon == "" && f.armor == "" {
		return attacker, defender, nil
	}
	reg, err := c.loadRegistry()
	if err != nil {
		return nil, nil, err
	}
	if f.weapon != "" {
		if attacker.Weapon = reg.Weapon(f.weapon); attacker.Weapon == nil {
			return nil, nil, fmt.Errorf("unknown weapon %q", f.weapon)
		}
	}
	if f.armor != "" {
		if defender.Armor = reg.Armor(f.armor); defender.Armor == nil {
			return nil, nil, fmt.Errorf("unknown armor %q", f.armor)
		}
	}
	return attacker, defender, nil
}

func (c *cli) renderAttack(cmd *cobra.Command, res combat.AttackResult) {
	tw := c.newTable(cmd)
	tw.AppendHeader(table.Row{"Step", "Value"})
	tw.AppendRow(table.Row{"weapon", fmt.Sprintf("%s (%s)", res.WeaponID, res.Kind)})
	tw.AppendRow(table.Row{"defense", res.Defense})
	if res.Kind == combat.AttackRanged {
		tw.AppendRow(table.Row{"range penalty", res.RangePenalty})
	}
	for _, m := range res.Check.Modifiers {
		tw.AppendRow(table.Row{"mod " + m.Name, fmt.Sprintf("%+d", m.Value)})
	}
	tw.AppendRow(table.Row{"dice", fmt.Sprint(res.Check.Roll.Dice)})
	tw.AppendRow(table.Row{"total", res.Check.Total})
	tw.AppendRow(table.Row{"margin", fmt.Sprintf("%+d", res.Check.Margin)})
	tw.AppendRow(table.Row{"tier", res.Check.Tier})
	if res.Check.Critical != dice.CriticalNone {
		tw.AppendRow(table.Row{"critical", res.Check.Critical})
	}
	tw.AppendSeparator()
	if d := res.Damage; d != nil {
		tw.AppendRow(table.Row{"weapon roll", d.WeaponRoll.String()})
		tw.AppendRow(table.Row{"margin bonus", d.MarginBonus})
		tw.AppendRow(table.Row{"scaling", d.AttributeScaling})
		tw.AppendRow(table.Row{"armor", -d.ArmorReduction})
		tw.AppendFooter(table.Row{"damage", d.Final})
	} else {
		tw.AppendFooter(table.Row{"result", "miss"})
	}
	tw.Render()
}

func (c *cli) renderSummary(cmd *cobra.Command, s attackSummary) {
	tw := c.newTable(cmd)
	tw.AppendHeader(table.Row{"Tier", "Count", "Share"})
	for _, t := range []dice.Tier{dice.TierCatastrophe, dice.TierMiss, dice.TierGraze, dice.TierHit, dice.TierPerfect} {
		n := s.Tiers[t]
		tw.AppendRow(table.Row{t, n, fmt.Sprintf("%.1f%%", float64(n)*100/float64(s.Trials))})
	}
	tw.AppendFooter(table.Row{"hit rate", fmt.Sprintf("%.1f%%", s.hitRate()), fmt.Sprintf("avg dmg %.2f", s.averageDamage())})
	tw.SetCaption("%s vs defense %d over %d trials", s.Kind, s.Defense, s.Trials)
	tw.Render()
}
