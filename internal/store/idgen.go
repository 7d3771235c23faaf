package store

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID generation strategies.
const (
	IDStrategyUUID     = "uuid"
	IDStrategySequence = "sequence"
)

// IDGenerator produces candidate item identifiers.
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator issues random UUIDv4 identifiers.
type UUIDGenerator struct{}

// NextID returns a new random UUID string.
func (UUIDGenerator) NextID() string {
	return uuid.New().String()
}

// SequenceGenerator issues "1", "2", "3", ... and is safe for concurrent use.
type SequenceGenerator struct {
	last atomic.Uint64
}

// NewSequenceGenerator creates a generator whose first ID is start+1.
func NewSequenceGenerator(start uint64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.last.Store(start)
	return g
}

// NextID returns the next number of the sequence.
func (g *SequenceGenerator) NextID() string {
	return strconv.FormatUint(g.last.Add(1), 10)
}

// NewIDGenerator returns the generator for the named strategy.
func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strategy {
	case IDStrategyUUID, "":
		return UUIDGenerator{}, nil
	case IDStrategySequence:
		return NewSequenceGenerator(0), nil
	default:
		return nil, fmt.Errorf("unknown id strategy: %s", strategy)
	}
}
