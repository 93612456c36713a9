// Package dicetest provides deterministic dice.Source implementations for tests.
package dicetest

import "sync"

// FaceSource replays a fixed cycle of die faces. Each Intn(n) call consumes the
// next face f and returns (f-1) mod n, so RollDie yields f whenever f <= n.
// It is safe for concurrent use.
type FaceSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// Faces returns a FaceSource cycling through faces.
//
// Precondition: len(faces) > 0; every face >= 1.
func Faces(faces ...int) *FaceSource {
	cp := make([]int, len(faces))
	copy(cp, faces)
	return &FaceSource{faces: cp}
}

// Intn implements dice.Source.
func (s *FaceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faces[s.next%len(s.faces)]
	s.next++
	return (f - 1) % n
}

// Consumed returns how many values have been drawn.
func (s *FaceSource) Consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
