package idgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// Generator produces string identifiers.
type Generator interface {
	Generate() (string, error)
}

const (
	DefaultRoomCodeSize = 6
	// RoomCodeAlphabet omits 0/O and 1/I/L so codes can be read aloud.
	RoomCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// RoomCodeGenerator generates short NanoID room codes.
type RoomCodeGenerator struct {
	size     int
	alphabet string
}

// NewRoomCodeGenerator creates a RoomCodeGenerator. size must be between 4 and 32.
func NewRoomCodeGenerator(size int) (*RoomCodeGenerator, error) {
	if size < 4 || size > 32 {
		return nil, fmt.Errorf("room code size must be between 4 and 32, got %d", size)
	}
	return &RoomCodeGenerator{
		size:     size,
		alphabet: RoomCodeAlphabet,
	}, nil
}

func (g *RoomCodeGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate room code: %w", err)
	}
	return id, nil
}

// Normalize upper-cases and trims a user-supplied room code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RequestIDGenerator generates ULIDs. IDs created in the same millisecond
// still sort in creation order.
type RequestIDGenerator struct {
	now func() time.Time
}

// NewRequestIDGenerator creates a new RequestIDGenerator.
func NewRequestIDGenerator() *RequestIDGenerator {
	return &RequestIDGenerator{now: time.Now}
}

func (g *RequestIDGenerator) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(g.now()), ulid.DefaultEntropy())
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// ConnectionID returns a random identifier for a live connection.
func ConnectionID() string {
	return uuid.New().String()
}
