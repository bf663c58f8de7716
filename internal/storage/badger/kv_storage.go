package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage keeps runtime settings in Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func settingKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the value stored under key
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var pair interfaces.KeyValuePair
	if err := s.db.Store().Get(settingKey(key), &pair); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", interfaces.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return pair.Value, nil
}

// Set upserts key. CreatedAt survives updates; the read and write share one transaction.
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	store := s.db.Store()
	k := settingKey(key)
	now := time.Now()

	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		pair := interfaces.KeyValuePair{
			Key:         k,
			Value:       value,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var existing interfaces.KeyValuePair
		switch err := store.TxGet(tx, k, &existing); {
		case err == nil:
			pair.CreatedAt = existing.CreatedAt
		case !errors.Is(err, badgerhold.ErrNotFound):
			return err
		}

		return store.TxUpsert(tx, k, &pair)
	})
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", k, err)
	}

	s.logger.Trace().Str("key", k).Msg("Setting saved")
	return nil
}

// Delete removes key
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(settingKey(key), &interfaces.KeyValuePair{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// DeleteAll clears every setting, including the session flag
func (s *KVStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&interfaces.KeyValuePair{}, nil); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	s.logger.Info().Msg("Settings cleared")
	return nil
}

// GetAll returns every setting keyed by its normalized name
func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	var pairs []interfaces.KeyValuePair
	if err := s.db.Store().Find(&pairs, nil); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		settings[pair.Key] = pair.Value
	}
	return settings, nil
}
