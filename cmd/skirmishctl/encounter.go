package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

const rpcTimeout = 10 * time.Second

func (c *cli) dial() (gameserver.EncounterServiceClient, func(), error) {
	conn, err := grpc.NewClient(c.v.GetString("server"),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", c.v.GetString("server"), err)
	}
	return gameserver.NewEncounterServiceClient(conn), func() { _ = conn.Close() }, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// rpcError renders a gRPC status with its rejection reason code when present.
func rpcError(err error) error {
	if code, ok := gameserver.RejectionCode(err); ok {
		return fmt.Errorf("%s: %s", code, status.Convert(err).Message())
	}
	return err
}

func (c *cli) encounterCmd() *cobra.Command {
	enc := &cobra.Command{Use: "encounter", Short: "Drive encounters on a running skirmishd"}
	enc.AddCommand(
		c.encounterCreateCmd(),
		c.encounterSubmitCmd(),
		c.encounterSnapshotCmd(),
		c.encounterWatchCmd(),
	)
	return enc
}

func (c *cli) encounterCreateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Bootstrap an encounter from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var req gameserver.BootstrapRequest
			if err := yaml.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parsing %s: %w", file, err)
			}
			in, err := toStruct(req)
			if err != nil {
				return err
			}
			client, closeConn, err := c.dial()
			if err != nil {
				return err
			}
			defer closeConn()
			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			out, err := client.Bootstrap(ctx, in)
			if err != nil {
				return rpcError(err)
			}
			id := out.GetFields()["encounterId"].GetStringValue()
			if c.jsonOutput() {
				return c.printJSON(cmd, map[string]string{"encounterId": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "bootstrap YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) encounterSubmitCmd() *cobra.Command {
	var req gameserver.SubmitRequest
	var actionType string
	var x, y int
	var move bool
	cmd := &cobra.Command{
		Use:     "submit <encounter-id>",
		Short:   "Submit an action",
		Args:    cobra.ExactArgs(1),
		Example: "  skirmishctl encounter submit yard -p p1 --type ATTACK --actor hero --target brute",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := combat.ParseActionType(actionType)
			if err != nil {
				return err
			}
			req.EncounterID = args[0]
			req.Action.Type = t
			if move {
				req.Action.Destination = &combat.Position{X: x, Y: y}
			}
			in, err := toStruct(req)
			if err != nil {
				return err
			}
			client, closeConn, err := c.dial()
			if err != nil {
				return err
			}
			defer closeConn()
			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			out, err := client.Submit(ctx, in)
			if err != nil {
				return rpcError(err)
			}
			var entry combat.LogEntry
			if err := fromStruct(out, &entry); err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, entry)
			}
			c.renderEntries(cmd, []combat.LogEntry{entry})
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.ParticipantID, "participant", "p", "", "participant id")
	cmd.Flags().StringVar(&actionType, "type", "", "ATTACK, DEFEND, USE_ITEM, MOVE or WAIT")
	cmd.Flags().StringVar(&req.Action.ActorID, "actor", "", "acting combatant id")
	cmd.Flags().StringVar(&req.Action.TargetID, "target", "", "target combatant id")
	cmd.Flags().StringVar(&req.Action.ItemID, "item", "", "item id for USE_ITEM")
	cmd.Flags().StringVar(&req.Action.CoverID, "cover", "", "cover to take after MOVE")
	cmd.Flags().BoolVar(&req.Action.Reaction, "reaction", false, "out-of-turn DEFEND")
	cmd.Flags().BoolVar(&move, "move", false, "set the MOVE destination from --x and --y")
	cmd.Flags().IntVar(&x, "x", 0, "destination x")
	cmd.Flags().IntVar(&y, "y", 0, "destination y")
	_ = cmd.MarkFlagRequired("participant")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func (c *cli) encounterSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <encounter-id>",
		Short: "Show the live state or the archived outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := toStruct(gameserver.WatchRequest{EncounterID: args[0]})
			if err != nil {
				return err
			}
			client, closeConn, err := c.dial()
			if err != nil {
				return err
			}
			defer closeConn()
			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			out, err := client.Snapshot(ctx, in)
			if err != nil {
				return rpcError(err)
			}
			var snap gameserver.SnapshotResponse
			if err := fromStruct(out, &snap); err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(cmd, snap)
			}
			switch {
			case snap.State != nil:
				c.renderState(cmd, snap.State)
			case snap.Outcome != nil:
				c.renderOutcome(cmd, snap.Outcome)
			}
			return nil
		},
	}
}

func (c *cli) encounterWatchCmd() *cobra.Command {
	var participant string
	cmd := &cobra.Command{
		Use:   "watch <encounter-id>",
		Short: "Stream log entries until the encounter ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := toStruct(gameserver.WatchRequest{EncounterID: args[0], ParticipantID: participant})
			if err != nil {
				return err
			}
			client, closeConn, err := c.dial()
			if err != nil {
				return err
			}
			defer closeConn()
			stream, err := client.Watch(cmd.Context(), in)
			if err != nil {
				return rpcError(err)
			}
			next := 0
			for {
				frame, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return rpcError(err)
				}
				var u encounter.Update
				if err := json.Unmarshal(frame.GetValue(), &u); err != nil {
					return fmt.Errorf("decoding frame: %w", err)
				}
				fresh := newEntries(u.Entries, next)
				if len(fresh) == 0 {
					continue
				}
				next = fresh[len(fresh)-1].Seq + 1
				if c.jsonOutput() {
					for _, e := range fresh {
						if err := c.printJSON(cmd, e); err != nil {
							return err
						}
					}
					continue
				}
				c.renderEntries(cmd, fresh)
			}
		},
	}
	cmd.Flags().StringVarP(&participant, "participant", "p", "", "attach as this participant; empty observes")
	return cmd
}

// newEntries returns the entries with seq >= next in seq order. Frames may
// repeat entries an earlier frame already carried.
func newEntries(entries []combat.LogEntry, next int) []combat.LogEntry {
	var out []combat.LogEntry
	for _, e := range entries {
		if e.Seq >= next {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (c *cli) renderEntries(cmd *cobra.Command, entries []combat.LogEntry) {
	tw := c.newTable(cmd)
	tw.AppendHeader(table.Row{"Seq", "Round", "Kind", "Actor", "Payload"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.Seq, e.Round, e.Kind, e.ActorID, string(e.Payload)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 80}})
	tw.Render()
}

func (c *cli) renderState(cmd *cobra.Command, s *combat.CombatState) {
	tw := c.newTable(cmd)
	tw.AppendHeader(table.Row{"ID", "Side", "HP", "Status", "Position", "Cover"})
	current := ""
	if s.Phase == combat.PhaseInProgress && s.Turn < len(s.TurnOrder) {
		current = s.TurnOrder[s.Turn]
	}
	for _, id := range s.Roster {
		cb := s.Combatants[id]
		name := cb.ID
		if cb.ID == current {
			name = "> " + name
		}
		tw.AppendRow(table.Row{
			name, cb.Side, fmt.Sprintf("%d/%d", cb.HP, cb.MaxHP), cb.Status(),
			fmt.Sprintf("(%d,%d)", cb.Position.X, cb.Position.Y), cb.CoverID,
		})
	}
	tw.SetCaption("%s: %s, round %d, %d log entries", s.ID, s.Phase, s.Round, len(s.Log))
	tw.Render()
}

func (c *cli) renderOutcome(cmd *cobra.Command, o *combat.Outcome) {
	tw := c.newTable(cmd)
	tw.AppendHeader(table.Row{"ID", "Side", "HP", "Status"})
	for _, cb := range o.Combatants {
		tw.AppendRow(table.Row{cb.ID, cb.Side, fmt.Sprintf("%d/%d", cb.HP, cb.MaxHP), cb.Status})
	}
	tw.SetCaption("%s: %s, winner %q after %d rounds", o.EncounterID, o.Reason, o.Winner, o.Rounds)
	tw.Render()
}
