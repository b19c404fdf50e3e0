// Package appstate holds the learner's interface preferences: search text,
// category filter, theme, sidebar and tutorial flags. Changes are applied
// with Reduce so every transition is an explicit, named action.
package appstate

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/storage"
)

// KeyAppState is the storage key of the persisted state.
const KeyAppState = "app_state"

var schema = storage.MustCompileSchema(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "searchQuery": {"type": "string"},
    "categoryFilter": {"type": "string"},
    "darkMode": {"type": "boolean"},
    "sidebarOpen": {"type": "boolean"},
    "tutorialOpen": {"type": "boolean"},
    "tutorialCompleted": {"type": "boolean"}
  }
}`)

// State is the persisted interface state.
type State struct {
	SearchQuery       string `json:"searchQuery"`
	CategoryFilter    string `json:"categoryFilter"`
	DarkMode          bool   `json:"darkMode"`
	SidebarOpen       bool   `json:"sidebarOpen"`
	TutorialOpen      bool   `json:"tutorialOpen"`
	TutorialCompleted bool   `json:"tutorialCompleted"`
}

// Default is the state of a first visit.
func Default() State {
	return State{
		CategoryFilter: catalog.CategoryAll,
		SidebarOpen:    true,
	}
}

// ActionType names a state transition.
type ActionType string

const (
	ActionSetSearchQuery    ActionType = "set_search_query"
	ActionSetCategoryFilter ActionType = "set_category_filter"
	ActionToggleDarkMode    ActionType = "toggle_dark_mode"
	ActionToggleSidebar     ActionType = "toggle_sidebar"
	ActionOpenTutorial      ActionType = "open_tutorial"
	ActionCloseTutorial     ActionType = "close_tutorial"
	ActionCompleteTutorial  ActionType = "complete_tutorial"
	ActionResetFilters      ActionType = "reset_filters"
)

// Action is a transition request. Value is used by the set_* actions.
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// Reduce applies a to s. Unknown actions leave s unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSetSearchQuery:
		s.SearchQuery = a.Value
	case ActionSetCategoryFilter:
		s.CategoryFilter = strings.TrimSpace(a.Value)
		if s.CategoryFilter == "" {
			s.CategoryFilter = catalog.CategoryAll
		}
	case ActionToggleDarkMode:
		s.DarkMode = !s.DarkMode
	case ActionToggleSidebar:
		s.SidebarOpen = !s.SidebarOpen
	case ActionOpenTutorial:
		s.TutorialOpen = true
	case ActionCloseTutorial:
		s.TutorialOpen = false
	case ActionCompleteTutorial:
		s.TutorialOpen = false
		s.TutorialCompleted = true
	case ActionResetFilters:
		s.SearchQuery = ""
		s.CategoryFilter = catalog.CategoryAll
	}
	return s
}

// Known reports whether t is a recognised action.
func Known(t ActionType) bool {
	switch t {
	case ActionSetSearchQuery, ActionSetCategoryFilter, ActionToggleDarkMode, ActionToggleSidebar,
		ActionOpenTutorial, ActionCloseTutorial, ActionCompleteTutorial, ActionResetFilters:
		return true
	}
	return false
}

// Store persists State under KeyAppState.
type Store struct {
	kv storage.Store
	mu sync.Mutex
}

// NewStore creates a state store over kv.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the stored state, or Default when nothing usable is stored.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Dispatch applies a to the stored state and persists the result. The new
// state is returned even when the write fails.
func (s *Store) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.load(), a)
	if err := storage.SaveJSON(s.kv, KeyAppState, next); err != nil {
		return next, fmt.Errorf("saving app state: %w", err)
	}
	return next, nil
}

func (s *Store) load() State {
	st := Default()
	if _, err := storage.LoadJSON(s.kv, KeyAppState, schema, &st); err != nil {
		slog.Warn("reading app state, using defaults", "key", KeyAppState, "error", err)
		return Default()
	}
	return st
}
