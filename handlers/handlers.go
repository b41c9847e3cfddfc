// handlers/handlers.go - Shared handler wiring
package handlers

import (
	"coduel/services"
)

var (
	matchmaker    *services.Matchmaker
	battleManager *services.BattleManager
	hub           *services.Hub
	store         services.Store
)

// Init wires the handler package to the core services. Called once from
// main before routes are registered.
func Init(mm *services.Matchmaker, bm *services.BattleManager, h *services.Hub, st services.Store) {
	matchmaker = mm
	battleManager = bm
	hub = h
	store = st
}
