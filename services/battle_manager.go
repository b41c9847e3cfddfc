// services/battle_manager.go - Registry of live battles
package services

import (
	"log"
	"sync"
	"time"
)

// BattleManager holds every live orchestrator, one per match, keyed by
// match id. Mirrors at-most-one-instance-per-match: a second start for the
// same match returns the existing battle.
type BattleManager struct {
	store    Store
	notifier Notifier
	cfg      Config

	mu      sync.RWMutex
	battles map[string]*Battle
}

func NewBattleManager(store Store, notifier Notifier, cfg Config) *BattleManager {
	return &BattleManager{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		battles:  make(map[string]*Battle),
	}
}

// Get returns the live battle for a match, if any.
func (bm *BattleManager) Get(matchID string) (*Battle, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	b, ok := bm.battles[matchID]
	return b, ok
}

// StartBattle creates and starts the orchestrator for a match, or returns
// the already-running one. The double-checked register keeps concurrent
// starts from racing two orchestrators for the same match.
func (bm *BattleManager) StartBattle(matchID string) (*Battle, error) {
	bm.mu.RLock()
	if b, ok := bm.battles[matchID]; ok {
		bm.mu.RUnlock()
		return b, nil
	}
	bm.mu.RUnlock()

	bm.mu.Lock()
	if b, ok := bm.battles[matchID]; ok {
		bm.mu.Unlock()
		return b, nil
	}
	b := NewBattle(matchID, bm.store, bm.notifier, bm.cfg)
	bm.battles[matchID] = b
	bm.mu.Unlock()

	if err := b.Start(); err != nil {
		bm.Remove(matchID)
		return nil, err
	}
	return b, nil
}

// Remove stops and forgets a battle. Safe to call repeatedly.
func (bm *BattleManager) Remove(matchID string) {
	bm.mu.Lock()
	b, ok := bm.battles[matchID]
	delete(bm.battles, matchID)
	count := len(bm.battles)
	bm.mu.Unlock()

	if ok {
		b.Stop()
		log.Printf("🧹 battle %s removed (%d live)", matchID, count)
	}
}

// RemoveLater schedules removal, letting late viewers fetch the terminal
// state first.
func (bm *BattleManager) RemoveLater(matchID string, after time.Duration) {
	time.AfterFunc(after, func() {
		bm.Remove(matchID)
	})
}

// LiveCount is exposed for health reporting.
func (bm *BattleManager) LiveCount() int {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return len(bm.battles)
}
