// Package model provides fitted-state tracking and persistence for table
// transformers.
package model

import (
	"sync"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// StateManager manages the fitted state of a transformer in a thread-safe manner.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	// Dimensions seen during fitting - Public for gob encoding
	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the transformer has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the transformer as fitted with the dimensions of the
// training table.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError if the transformer has not been fitted.
func (s *StateManager) RequireFitted(name, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(name, method)
	}
	return nil
}

// RequireFeatures returns a DimensionError unless the transformer is fitted
// and was fitted on nFeatures columns.
func (s *StateManager) RequireFeatures(name, method string, nFeatures int) error {
	if err := s.RequireFitted(name, method); err != nil {
		return err
	}
	if want, _ := s.GetDimensions(); want != nFeatures {
		return errors.NewDimensionError(name+"."+method, want, nFeatures, 1)
	}
	return nil
}

// ModelState represents the complete state of a transformer.
type ModelState struct {
	Fitted    bool                   `json:"fitted"`
	NFeatures int                    `json:"n_features,omitempty"`
	NSamples  int                    `json:"n_samples,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Fitted:    s.Fitted,
		NFeatures: s.NFeatures,
		NSamples:  s.NSamples,
	}
}

// SetState sets the state from a ModelState struct.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Fitted = state.Fitted
	s.NFeatures = state.NFeatures
	s.NSamples = state.NSamples
}
