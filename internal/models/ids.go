package models

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// IDGenerator allocates record identifiers.
type IDGenerator interface {
	NextID(prefix string) string
}

// Sequence hands out "<prefix><n>" identifiers above the highest number seen
// for that prefix. Numbers are zero padded to three digits.
type Sequence struct {
	mu   sync.Mutex
	last map[string]int
}

// NewSequence creates a sequence seeded with existing identifiers.
func NewSequence(ids ...string) *Sequence {
	s := &Sequence{last: make(map[string]int)}
	s.Observe(ids...)
	return s
}

// Observe records identifiers so later allocations never reuse them.
// Identifiers without a numeric suffix are ignored.
func (s *Sequence) Observe(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		prefix, n, ok := splitID(id)
		if !ok {
			continue
		}
		if n > s.last[prefix] {
			s.last[prefix] = n
		}
	}
}

// NextID implements IDGenerator
func (s *Sequence) NextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last[prefix]++
	return fmt.Sprintf("%s%03d", prefix, s.last[prefix])
}

// splitID splits "DEV-012" into ("DEV-", 12).
func splitID(id string) (string, int, bool) {
	i := strings.LastIndexFunc(id, func(r rune) bool { return r < '0' || r > '9' })
	if i == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, false
	}
	return id[:i+1], n, true
}
