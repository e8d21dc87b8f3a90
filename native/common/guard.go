package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the administrative pause switches for native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects operations against a paused module.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
