// Package collection persists whole entity collections as one JSON array per
// named slot. It backs the bulk load/save API used by clients that keep the
// full list in memory and write it back after each change.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"planner/internal/common"
)

// Unconditional tells Backend.Put to skip the version check.
const Unconditional int64 = -1

// Backend stores raw slot content with a monotonically increasing version.
type Backend interface {
	// GetSlot returns the stored bytes and version, or common.ErrNotFound.
	GetSlot(ctx context.Context, key string) ([]byte, int64, error)
	// PutSlot stores data. When expected is not Unconditional the stored version
	// must equal it, otherwise common.ErrVersionConflict is returned. An absent
	// slot has version 0.
	PutSlot(ctx context.Context, key string, data []byte, expected int64) (int64, error)
}

// Slot is a typed view over one named slot.
type Slot[T any] struct {
	key     string
	backend Backend
}

// NewSlot binds key to backend.
func NewSlot[T any](backend Backend, key string) *Slot[T] {
	return &Slot[T]{key: key, backend: backend}
}

// Key returns the slot name.
func (s *Slot[T]) Key() string {
	return s.key
}

// Load decodes the slot. An absent slot yields an empty sequence and version 0.
// Content that is not a JSON array of T is reported as common.ErrCorruptSlot.
func (s *Slot[T]) Load(ctx context.Context) ([]T, int64, error) {
	raw, version, err := s.backend.GetSlot(ctx, s.key)
	if errors.Is(err, common.ErrNotFound) {
		return []T{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load slot %s: %w", s.key, err)
	}
	items, err := Decode[T](raw)
	if err != nil {
		return nil, version, fmt.Errorf("load slot %s: %w", s.key, err)
	}
	return items, version, nil
}

// Save overwrites the slot and returns the new version. Last writer wins.
func (s *Slot[T]) Save(ctx context.Context, items []T) (int64, error) {
	return s.SaveIfVersion(ctx, items, Unconditional)
}

// SaveIfVersion overwrites the slot only when its stored version equals expected.
func (s *Slot[T]) SaveIfVersion(ctx context.Context, items []T, expected int64) (int64, error) {
	raw, err := Encode(items)
	if err != nil {
		return 0, fmt.Errorf("save slot %s: %w", s.key, err)
	}
	version, err := s.backend.PutSlot(ctx, s.key, raw, expected)
	if err != nil {
		return 0, fmt.Errorf("save slot %s: %w", s.key, err)
	}
	return version, nil
}

// Encode renders items as a JSON array; nil becomes [].
func Encode[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// Decode parses a JSON array of T. Anything else, including null, is corrupt.
func Decode[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, common.ErrCorruptSlot
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptSlot, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
