package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk shape of a rule seed file (TOML or YAML)
type RuleFile struct {
	Rules []models.ExtractionRule `toml:"rules" yaml:"rules"`
}

// LoadRulesFromFiles seeds extraction rules from *.toml, *.yaml and *.yml files
// in rulesDir. Rules whose ID already exists are left untouched so edits made
// through the API survive a restart. Returns the number of rules created.
func LoadRulesFromFiles(ctx context.Context, ruleStorage interfaces.RuleStorage, rulesDir string, logger arbor.ILogger) (int, error) {
	if rulesDir == "" {
		return 0, nil
	}
	if _, err := os.Stat(rulesDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", rulesDir).Msg("Rules directory does not exist, skipping")
		return 0, nil
	}

	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read rules directory: %w", err)
	}

	// Deterministic order so seeded positions are stable
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(rulesDir, entry.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read rule file")
			continue
		}

		var file RuleFile
		if ext == ".toml" {
			err = toml.Unmarshal(data, &file)
		} else {
			err = yaml.Unmarshal(data, &file)
		}
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse rule file")
			continue
		}

		for i := range file.Rules {
			rule := file.Rules[i]

			if err := rule.Validate(); err != nil {
				logger.Warn().Err(err).Str("file", entry.Name()).Str("url_pattern", rule.URLPattern).Msg("Skipping invalid rule")
				continue
			}

			if rule.ID == "" {
				rule.ID = fmt.Sprintf("%s_%d", strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), i+1)
			}

			if existing, err := ruleStorage.Get(ctx, rule.ID); err == nil && existing != nil {
				logger.Debug().Str("rule_id", rule.ID).Msg("Rule already exists, not overwriting")
				continue
			}

			if err := ruleStorage.Save(ctx, &rule); err != nil {
				logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("Failed to save seeded rule")
				continue
			}
			loaded++
		}
	}

	logger.Info().Int("count", loaded).Str("dir", rulesDir).Msg("Extraction rules loaded from files")
	return loaded, nil
}
