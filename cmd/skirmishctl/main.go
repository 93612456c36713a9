// Package main provides skirmishctl, a developer CLI for exercising the dice
// engine and combat formulas locally and for driving a running encounter
// server over gRPC.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

func main() {
	if err := newRootCmd(dice.NewCryptoSource()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries what every subcommand shares.
type cli struct {
	v   *viper.Viper
	src dice.Source
}

func newRootCmd(src dice.Source) *cobra.Command {
	c := &cli{v: viper.New(), src: src}
	c.v.SetEnvPrefix("SKIRMISHCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "skirmishctl",
		Short: "Skirmish developer CLI",
		Long: `skirmishctl rolls dice, runs skill checks, and simulates attacks with the
same formulas the encounter server uses. The encounter subcommands talk to a
running skirmishd over gRPC.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("content", "content", "content root holding weapons/, armor/, cover/ and items/")
	root.PersistentFlags().String("server", "127.0.0.1:50051", "skirmishd gRPC address")
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = c.v.BindPFlag("content", root.PersistentFlags().Lookup("content"))
	_ = c.v.BindPFlag("server", root.PersistentFlags().Lookup("server"))

	root.AddCommand(
		c.rollCmd(),
		c.checkCmd(),
		c.opposedCmd(),
		c.oddsCmd(),
		c.extendedCmd(),
		c.restCmd(),
		c.attackCmd(),
		c.encounterCmd(),
	)
	return root
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) newTable(cmd *cobra.Command) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}
