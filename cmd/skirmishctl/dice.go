package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// parseModifiers parses name=value pairs such as "cover=-2".
func parseModifiers(raw []string) ([]dice.Modifier, error) {
	mods := make([]dice.Modifier, 0, len(raw))
	for _, r := range raw {
		name, val, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("modifier %q: want name=value", r)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("modifier %q: %w", r, err)
		}
		mods = append(mods, dice.Modifier{Name: name, Value: n})
	}
	return mods, nil
}

func modifierSum(mods []dice.Modifier) int {
	sum := 0
	for _, m := range mods {
		sum += m.Value
	}
	return sum
}

func (c *cli) rollCmd() *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:     "roll <expr>...",
		Short:   "Roll dice expressions such as 2d6+3 or 1d8-1",
		Args:    cobra.MinimumNArgs(1),
		Example: "  skirmishctl roll 2d6 1d8+2 --times 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return errors.New("--times must be >= 1")
			}
			exprs := make([]dice.Expression, 0, len(args))
			for _, a := range args {
				e, err := dice.Parse(a)
				if err != nil {
					return err
				}
				exprs = append(exprs, e)
			}
			var results []dice.RollResult
			for _, e := range exprs {
				for range times {
					results = append(results, dice.Roll(e, c.src))
				}
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, results)
			}
			tw := c.newTable(cmd)
			tw.AppendHeader(table.Row{"Expression", "Dice", "Modifier", "Total"})
			for _, r := range results {
				tw.AppendRow(table.Row{r.Expression, fmt.Sprint(r.Dice), fmt.Sprintf("%+d", r.Modifier), r.Total()})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "rolls per expression")
	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	var attr, skill, tn, times int
	var rawMods []string
	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Run 2d6 skill checks against a target number",
		Example: "  skirmishctl check --attr 14 --skill 2 --tn 9 --mod cover=-2 -n 5",
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return errors.New("--times must be >= 1")
			}
			mods, err := parseModifiers(rawMods)
			if err != nil {
				return err
			}
			results := make([]dice.SkillCheckResult, 0, times)
			for range times {
				results = append(results, dice.PerformSkillCheck(c.src, attr, skill, mods, tn))
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, results)
			}
			tw := c.newTable(cmd)
			tw.AppendHeader(table.Row{"Dice", "Modifiers", "Total", "TN", "Margin", "Tier", "Critical", "Success"})
			for _, r := range results {
				tw.AppendRow(table.Row{
					fmt.Sprint(r.Roll.Dice), fmt.Sprintf("%+d", r.ModifierTotal), r.Total,
					r.TargetNumber, fmt.Sprintf("%+d", r.Margin), r.Tier, r.Critical, r.Success,
				})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "", "", "chance",
				fmt.Sprintf("%.2f%%", dice.SuccessProbability(attr, skill, modifierSum(mods), tn))})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&attr, "attr", 10, "attribute value")
	cmd.Flags().IntVar(&skill, "skill", 0, "skill level")
	cmd.Flags().IntVar(&tn, "tn", 8, "target number")
	cmd.Flags().StringSliceVar(&rawMods, "mod", nil, "situational modifier name=value (repeatable)")
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of checks")
	return cmd
}

type oddsRow struct {
	Attr   int       `json:"attr"`
	Chance []float64 `json:"chance"`
}

type oddsTable struct {
	Skill       int       `json:"skill"`
	Situational int       `json:"situational"`
	TNs         []int     `json:"tns"`
	Rows        []oddsRow `json:"rows"`
}

func buildOdds(skill, situational, attrMin, attrMax, tnMin, tnMax int) oddsTable {
	out := oddsTable{Skill: skill, Situational: situational}
	for tn := tnMin; tn <= tnMax; tn++ {
		out.TNs = append(out.TNs, tn)
	}
	for a := attrMin; a <= attrMax; a++ {
		row := oddsRow{Attr: a}
		for _, tn := range out.TNs {
			row.Chance = append(row.Chance, dice.SuccessProbability(a, skill, situational, tn))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (c *cli) oddsCmd() *cobra.Command {
	var skill, situational, attrMin, attrMax, tnMin, tnMax int
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Print the success chance table by attribute and target number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if attrMax < attrMin || tnMax < tnMin {
				return errors.New("ranges must satisfy min <= max")
			}
			odds := buildOdds(skill, situational, attrMin, attrMax, tnMin, tnMax)
			if c.jsonOutput() {
				return c.printJSON(cmd, odds)
			}
			tw := c.newTable(cmd)
			header := table.Row{"Attr \\ TN"}
			for _, tn := range odds.TNs {
				header = append(header, tn)
			}
			tw.AppendHeader(header)
			for _, r := range odds.Rows {
				row := table.Row{fmt.Sprintf("%d (%+d)", r.Attr, dice.AttributeModifier(r.Attr))}
				for _, p := range r.Chance {
					row = append(row, fmt.Sprintf("%.1f%%", p))
				}
				tw.AppendRow(row)
			}
			tw.SetCaption("skill %d, situational %+d", skill, situational)
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&skill, "skill", 0, "skill level")
	cmd.Flags().IntVar(&situational, "situational", 0, "net situational modifier")
	cmd.Flags().IntVar(&attrMin, "attr-min", 6, "lowest attribute row")
	cmd.Flags().IntVar(&attrMax, "attr-max", 18, "highest attribute row")
	cmd.Flags().IntVar(&tnMin, "tn-min", 6, "lowest target number column")
	cmd.Flags().IntVar(&tnMax, "tn-max", 14, "highest target number column")
	return cmd
}

func (c *cli) extendedCmd() *cobra.Command {
	var attr, skill, tn, required, maxFailures, maxAttempts int
	var rawMods []string
	cmd := &cobra.Command{
		Use:   "extended",
		Short: "Roll an extended check until it completes or fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			if required < 1 || maxFailures < 1 {
				return errors.New("--required and --max-failures must be >= 1")
			}
			mods, err := parseModifiers(rawMods)
			if err != nil {
				return err
			}
			ext := dice.NewExtendedCheck(required, maxFailures)
			for !ext.Done() && len(ext.Attempts) < maxAttempts {
				ext.AddAttempt(dice.PerformSkillCheck(c.src, attr, skill, mods, tn))
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, ext)
			}
			tw := c.newTable(cmd)
			tw.AppendHeader(table.Row{"#", "Dice", "Total", "Margin", "Tier", "Success"})
			for i, r := range ext.Attempts {
				tw.AppendRow(table.Row{i + 1, fmt.Sprint(r.Roll.Dice), r.Total, fmt.Sprintf("%+d", r.Margin), r.Tier, r.Success})
			}
			tw.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d", ext.Successes, ext.Required), "status", ext.Status})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&attr, "attr", 10, "attribute value")
	cmd.Flags().IntVar(&skill, "skill", 0, "skill level")
	cmd.Flags().IntVar(&tn, "tn", 8, "target number")
	cmd.Flags().StringSliceVar(&rawMods, "mod", nil, "situational modifier name=value (repeatable)")
	cmd.Flags().IntVar(&required, "required", 3, "successes needed")
	cmd.Flags().IntVar(&maxFailures, "max-failures", 3, "failures that end the check")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 100, "stop after this many attempts")
	return cmd
}

func (c *cli) restCmd() *cobra.Command {
	var end, times int
	var long bool
	cmd := &cobra.Command{
		Use:   "rest",
		Short: "Roll between-encounter rest healing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return errors.New("--times must be >= 1")
			}
			kind := combat.RestShort
			if long {
				kind = combat.RestLong
			}
			results := make([]combat.RestResult, 0, times)
			for range times {
				results = append(results, combat.RestHeal(c.src, end, kind))
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, results)
			}
			tw := c.newTable(cmd)
			tw.AppendHeader(table.Row{"Roll", "Healed"})
			for _, r := range results {
				tw.AppendRow(table.Row{r.Roll.String(), r.Amount})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&end, "end", 10, "END attribute value")
	cmd.Flags().BoolVar(&long, "long", false, "long rest (2d6 instead of 1d6)")
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of rests")
	return cmd
}

func (c *cli) opposedCmd() *cobra.Command {
	var atkAttr, atkSkill, defAttr, defSkill int
	var atkMods, defMods []string
	cmd := &cobra.Command{
		Use:     "opposed",
		Short:   "Roll an opposed check; ties go to the defender",
		Example: "  skirmishctl opposed --atk-attr 14 --atk-skill 2 --def-attr 12 --def-skill 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := parseModifiers(atkMods)
			if err != nil {
				return err
			}
			dm, err := parseModifiers(defMods)
			if err != nil {
				return err
			}
			res := dice.PerformOpposedCheck(c.src,
				dice.OpposedSide{AttrValue: atkAttr, SkillLevel: atkSkill, Situational: am},
				dice.OpposedSide{AttrValue: defAttr, SkillLevel: defSkill, Situational: dm},
			)
			if c.jsonOutput() {
				return c.printJSON(cmd, res)
			}
			tw := c.newTable(cmd)
			tw.AppendHeader(table.Row{"Side", "Dice", "Modifiers", "Total", "Critical"})
			for _, side := range []struct {
				name string
				r    dice.SkillCheckResult
			}{{"attacker", res.Attacker}, {"defender", res.Defender}} {
				tw.AppendRow(table.Row{side.name, fmt.Sprint(side.r.Roll.Dice), fmt.Sprintf("%+d", side.r.ModifierTotal), side.r.Total, side.r.Critical})
			}
			winner := res.Winner.String()
			if res.Tie {
				winner += " (tie)"
			}
			tw.AppendFooter(table.Row{"winner", winner, "margin", res.Margin, ""})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&atkAttr, "atk-attr", 10, "attacker attribute value")
	cmd.Flags().IntVar(&atkSkill, "atk-skill", 0, "attacker skill level")
	cmd.Flags().StringSliceVar(&atkMods, "atk-mod", nil, "attacker modifier name=value (repeatable)")
	cmd.Flags().IntVar(&defAttr, "def-attr", 10, "defender attribute value")
	cmd.Flags().IntVar(&defSkill, "def-skill", 0, "defender skill level")
	cmd.Flags().StringSliceVar(&defMods, "def-mod", nil, "defender modifier name=value (repeatable)")
	return cmd
}
