package common

import (
	"errors"
	"strings"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is an operator-controlled PauseView keyed by module name.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseSet seeds a pause set from configuration.
func NewPauseSet(initial map[string]bool) *PauseSet {
	p := &PauseSet{paused: make(map[string]bool, len(initial))}
	for module, paused := range initial {
		p.paused[normalizeModule(module)] = paused
	}
	return p
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}

// IsPaused implements PauseView.
func (p *PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[normalizeModule(module)]
}

// Set toggles the pause flag of module.
func (p *PauseSet) Set(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[normalizeModule(module)] = paused
}
