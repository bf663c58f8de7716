package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
)

// newTestManager opens an in-memory database and returns a manager over it
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})
	db, err := NewBadgerDB(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return newManager(db, logger)
}
