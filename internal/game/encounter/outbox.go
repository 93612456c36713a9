package encounter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const broadcastTimeout = 5 * time.Second

// outbox delivers updates off the mutation path. Kicks coalesce, so a slow
// broadcaster delays observers but never the loop, and no entry is skipped:
// each update carries every entry appended since the previous one.
func (a *Actor) outbox() {
	defer close(a.outboxDone)
	sent := 0
	flush := func() {
		snap := a.snapshot.Load()
		if len(snap.Log) <= sent {
			return
		}
		u := Update{EncounterID: a.id, Entries: snap.Log[sent:], Snapshot: snap}
		sent = len(snap.Log)
		a.deliver(u)
	}
	for {
		select {
		case <-a.kick:
			flush()
		case <-a.finished:
			flush()
			return
		}
	}
}

func (a *Actor) deliver(u Update) {
	if a.deps.Broadcaster != nil {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		if err := a.deps.Broadcaster.Broadcast(ctx, u); err != nil {
			a.logger.Warn("broadcasting update", zap.Error(err))
		}
		cancel()
	}
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- u:
		default:
			a.logger.Warn("observer buffer full, dropping update", zap.Int("entries", len(u.Entries)))
		}
	}
}
