// Файл: pkg/speculative/txn_test.go
package speculative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type boardCell struct {
	Column string
	Index  int
	Rating int
}

func TestCommitDiscardsSnapshot(t *testing.T) {
	txn := Begin(boardCell{Column: "TODO", Index: 0})

	assert.False(t, txn.Resolved())
	assert.True(t, txn.Commit())
	assert.True(t, txn.Resolved())

	// Повторное разрешение невозможно.
	assert.False(t, txn.Commit())
	_, ok := txn.Rollback()
	assert.False(t, ok)
}

func TestRollbackReturnsExactSnapshot(t *testing.T) {
	snap := boardCell{Column: "TODO", Index: 2, Rating: 4}
	txn := Begin(snap)

	restored, ok := txn.Rollback()
	assert.True(t, ok)
	assert.Equal(t, snap, restored)
	assert.True(t, txn.Resolved())

	// После отката commit тоже невозможен.
	assert.False(t, txn.Commit())
}
