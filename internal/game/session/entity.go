// Package session tracks participant connections to live encounters and fans
// encoded encounter updates out to them.
package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned by Push after Close.
	ErrClosed = errors.New("session: connection closed")
	// ErrBufferFull is returned by Push when the reader has fallen behind.
	ErrBufferFull = errors.New("session: outbound buffer full")
)

// BridgeEntity is a bounded outbound queue between the encounter broadcast
// path and one streaming client. Push never blocks.
type BridgeEntity struct {
	id     string
	frames chan []byte
	mu     sync.Mutex
	closed bool
}

// NewBridgeEntity creates an open queue holding at most bufferSize frames.
//
// Postcondition: bufferSize <= 0 yields a 64-frame buffer.
func NewBridgeEntity(id string, bufferSize int) *BridgeEntity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &BridgeEntity{id: id, frames: make(chan []byte, bufferSize)}
}

// ID returns the connection identifier.
func (e *BridgeEntity) ID() string {
	return e.id
}

// Push enqueues one encoded frame.
//
// Postcondition: returns an error wrapping ErrClosed or ErrBufferFull when the
// frame was not enqueued.
func (e *BridgeEntity) Push(frame []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("connection %s: %w", e.id, ErrClosed)
	}
	select {
	case e.frames <- frame:
		return nil
	default:
		return fmt.Errorf("connection %s: %w", e.id, ErrBufferFull)
	}
}

// Frames is drained by the stream goroutine; it is closed by Close.
func (e *BridgeEntity) Frames() <-chan []byte {
	return e.frames
}

// Close closes the frame channel. It is idempotent.
func (e *BridgeEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.frames)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (e *BridgeEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
