package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattleManagerSingleInstancePerMatch(t *testing.T) {
	store, _ := newBattleFixture(t, true)
	bm := NewBattleManager(store, NewHub(), battleConfig())

	b1, err := bm.StartBattle("m1")
	require.NoError(t, err)
	b2, err := bm.StartBattle("m1")
	require.NoError(t, err)
	assert.Same(t, b1, b2)
	assert.Equal(t, 1, bm.LiveCount())

	got, ok := bm.Get("m1")
	require.True(t, ok)
	assert.Same(t, b1, got)

	bm.Remove("m1")
	bm.Remove("m1") // repeat is a no-op
	_, ok = bm.Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 0, bm.LiveCount())
	assert.ErrorIs(t, b1.SubmitAnswer(1, correctAns), ErrBattleStopped)
}

func TestBattleManagerStartUnknownMatch(t *testing.T) {
	bm := NewBattleManager(newMemStore(), NewHub(), battleConfig())
	_, err := bm.StartBattle("nope")
	require.Error(t, err)
	assert.Equal(t, 0, bm.LiveCount(), "failed start leaves no residue")
}
