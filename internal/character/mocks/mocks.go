// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package mocks provides testify mocks for the character package interfaces.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/armoryhq/armory/internal/character"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockRepository mocks character.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a MockRepository whose expectations are asserted at cleanup.
func NewMockRepository(t cleanupT) *MockRepository {
	m := &MockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRepository) GetOwned(ctx context.Context, userID, characterID int64) (*character.Character, error) {
	args := m.Called(ctx, userID, characterID)
	char, _ := args.Get(0).(*character.Character)
	return char, args.Error(1)
}

func (m *MockRepository) MostRecent(ctx context.Context, userID int64) (*character.Character, error) {
	args := m.Called(ctx, userID)
	char, _ := args.Get(0).(*character.Character)
	return char, args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID int64) ([]*character.Character, error) {
	args := m.Called(ctx, userID)
	chars, _ := args.Get(0).([]*character.Character)
	return chars, args.Error(1)
}

// MockPreferredStore mocks character.PreferredStore.
type MockPreferredStore struct {
	mock.Mock
}

// NewMockPreferredStore creates a MockPreferredStore whose expectations are asserted at cleanup.
func NewMockPreferredStore(t cleanupT) *MockPreferredStore {
	m := &MockPreferredStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPreferredStore) ReadPreferred(ctx context.Context, userID int64) (int64, bool) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Bool(1)
}

func (m *MockPreferredStore) WritePreferred(ctx context.Context, userID, characterID int64) error {
	args := m.Called(ctx, userID, characterID)
	return args.Error(0)
}

// MockPurger mocks character.Purger.
type MockPurger struct {
	mock.Mock
}

// NewMockPurger creates a MockPurger whose expectations are asserted at cleanup.
func NewMockPurger(t cleanupT) *MockPurger {
	m := &MockPurger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPurger) Purge(ctx context.Context, userID, characterID int64, tables []string) (*character.PurgeReport, error) {
	args := m.Called(ctx, userID, characterID, tables)
	report, _ := args.Get(0).(*character.PurgeReport)
	return report, args.Error(1)
}

// ActiveSlot is an in-memory character.ActiveStore. SetErr, when set, is
// returned by every write.
type ActiveSlot struct {
	mu     sync.Mutex
	id     int64
	set    bool
	writes int
	SetErr error
}

// NewActiveSlot returns a slot holding id, or an empty slot when id is zero.
func NewActiveSlot(id int64) *ActiveSlot {
	return &ActiveSlot{id: id, set: id != 0}
}

func (s *ActiveSlot) ActiveCharacter() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.set
}

func (s *ActiveSlot) SetActiveCharacter(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.id, s.set = id, true
	return nil
}

func (s *ActiveSlot) ClearActiveCharacter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.id, s.set = 0, false
	return nil
}

// Writes counts SetActiveCharacter and ClearActiveCharacter calls.
func (s *ActiveSlot) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
