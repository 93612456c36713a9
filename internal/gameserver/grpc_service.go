// Package gameserver exposes live encounters over gRPC.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/session"
)

// SubmitRequest is the JSON body of Submit.
type SubmitRequest struct {
	EncounterID   string        `json:"encounterId"`
	ParticipantID string        `json:"participantId"`
	Action        combat.Action `json:"action"`
}

// WatchRequest is the JSON body of Watch and Snapshot. An empty
// ParticipantID watches as an observer.
type WatchRequest struct {
	EncounterID   string `json:"encounterId"`
	ParticipantID string `json:"participantId,omitempty"`
}

// SnapshotResponse carries the live state, or the outcome once archived.
type SnapshotResponse struct {
	State   *combat.CombatState `json:"state,omitempty"`
	Outcome *combat.Outcome     `json:"outcome,omitempty"`
}

// EncounterService implements EncounterServiceServer.
type EncounterService struct {
	encounters *encounter.Manager
	sessions   *session.Manager
	registry   *inventory.Registry
	logger     *zap.Logger
}

// NewEncounterService creates the service.
//
// Precondition: encounters, sessions, and registry must be non-nil. sessions
// must be the Broadcaster (or part of it) of the encounters' Deps, otherwise
// Watch streams only receive their initial frame.
func NewEncounterService(encounters *encounter.Manager, sessions *session.Manager, registry *inventory.Registry, logger *zap.Logger) *EncounterService {
	return &EncounterService{
		encounters: encounters,
		sessions:   sessions,
		registry:   registry,
		logger:     logger,
	}
}

// Bootstrap creates and starts an encounter from a BootstrapRequest.
func (s *EncounterService) Bootstrap(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req BootstrapRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding bootstrap: %v", err)
	}
	boot, err := req.Build(s.registry)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	a, err := s.encounters.Create(boot)
	if err != nil {
		if errors.Is(err, encounter.ErrDuplicateID) {
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	go func() {
		<-a.Done()
		s.sessions.Forget(a.ID())
	}()
	s.logger.Info("encounter bootstrapped", zap.String("encounter", a.ID()), zap.Int("participants", len(boot.Participants)))
	return structpb.NewStruct(map[string]any{"encounterId": a.ID()})
}

// Submit queues an action and returns the resulting log entry.
func (s *EncounterService) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SubmitRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding submit: %v", err)
	}
	a, err := s.encounters.Get(req.EncounterID)
	if err != nil {
		return nil, toStatus(err)
	}
	entry, err := a.Submit(ctx, req.ParticipantID, req.Action)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(entry)
}

// Snapshot returns the latest state of a live encounter or the archived outcome.
func (s *EncounterService) Snapshot(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req WatchRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding snapshot: %v", err)
	}
	if a, err := s.encounters.Get(req.EncounterID); err == nil {
		return encode(SnapshotResponse{State: a.Snapshot()})
	}
	if out, ok := s.encounters.Archived(req.EncounterID); ok {
		return encode(SnapshotResponse{Outcome: &out})
	}
	return nil, status.Errorf(codes.NotFound, "encounter %q not found", req.EncounterID)
}

// Watch streams JSON-encoded encounter.Update frames. The first frame holds
// the full log and snapshot at attach time; later frames may repeat entries
// already in it, so clients order by seq. A participant's last stream closing
// starts its disconnect grace period. The stream ends after the final update.
func (s *EncounterService) Watch(in *structpb.Struct, stream EncounterService_WatchServer) error {
	var req WatchRequest
	if err := decode(in, &req); err != nil {
		return status.Errorf(codes.InvalidArgument, "decoding watch: %v", err)
	}
	a, err := s.encounters.Get(req.EncounterID)
	if err != nil {
		return toStatus(err)
	}
	var presence session.Presence
	if req.ParticipantID != "" {
		if !a.HasParticipant(req.ParticipantID) {
			return status.Errorf(codes.PermissionDenied, "%q is not a participant of %s", req.ParticipantID, a.ID())
		}
		presence = a
	}

	conn, err := s.sessions.AddConnection(a.ID(), req.ParticipantID, presence)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	defer func() {
		if err := s.sessions.RemoveConnection(conn, presence); err != nil {
			s.logger.Debug("removing connection", zap.Error(err))
		}
	}()

	snap := a.Snapshot()
	first, err := json.Marshal(encounter.Update{EncounterID: a.ID(), Entries: snap.Log, Snapshot: snap})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.Send(wrapperspb.Bytes(first)); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-conn.Entity.Frames():
			if !ok {
				select {
				case <-a.Done():
					return nil
				default:
					return status.Error(codes.ResourceExhausted, "stream fell behind; watch again to resynchronise")
				}
			}
			if err := stream.Send(wrapperspb.Bytes(frame)); err != nil {
				return err
			}
		}
	}
}

func decode(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encoding response: %v", err))
	}
	return out, nil
}
