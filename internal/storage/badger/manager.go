package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	job    interfaces.JobStorage
	cache  interfaces.CacheStorage
	result interfaces.ResultStorage
	rule   interfaces.RuleStorage
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, logger)
	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:     db,
		job:    NewJobStorage(db, logger),
		cache:  NewCacheStorage(db, logger),
		result: NewResultStorage(db, logger),
		rule:   NewRuleStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}
}

// JobStorage returns the job queue
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// CacheStorage returns the result cache
func (m *Manager) CacheStorage() interfaces.CacheStorage {
	return m.cache
}

// ResultStorage returns the result log
func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.result
}

// RuleStorage returns the extraction rule set
func (m *Manager) RuleStorage() interfaces.RuleStorage {
	return m.rule
}

// KeyValueStorage returns the settings store
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// ClearUserData removes results, rules and settings. Queue and cache survive.
func (m *Manager) ClearUserData(ctx context.Context) error {
	if err := m.result.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	if err := m.rule.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}
	if err := m.kv.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	m.logger.Info().Msg("User data cleared (results, rules, settings)")
	return nil
}

// LoadRulesFromFiles seeds extraction rules from files in dirPath
func (m *Manager) LoadRulesFromFiles(ctx context.Context, dirPath string) (int, error) {
	return LoadRulesFromFiles(ctx, m.rule, dirPath, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
