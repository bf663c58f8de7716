package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlRules = `
[[rules]]
id = "github"
url_pattern = "https://github.com/*"
fields = '{"repository_name":"name of the repository","primary_language":"main language"}'

[[rules]]
url_pattern = "https://news.example.com/*"
fields = '{"author_name":"article author"}'

[[rules]]
url_pattern = "https://broken.example.com/*"
fields = "not json"
`

const yamlRules = `
rules:
  - id: blog
    url_pattern: "https://blog.example.com/*"
    fields: '{"publication_date":"date the post was published"}'
`

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadRulesFromFiles(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeRuleFile(t, dir, "a_rules.toml", tomlRules)
	writeRuleFile(t, dir, "b_rules.yaml", yamlRules)
	writeRuleFile(t, dir, "notes.txt", "ignored")

	loaded, err := manager.LoadRulesFromFiles(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded, "invalid rule is skipped")

	rules, err := manager.RuleStorage().List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "github", rules[0].ID)
	assert.Equal(t, "a_rules_2", rules[1].ID, "missing IDs derive from file name and index")
	assert.Equal(t, "blog", rules[2].ID)
}

func TestLoadRulesFromFiles_DoesNotOverwriteExisting(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.yaml", yamlRules)

	loaded, err := manager.LoadRulesFromFiles(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	rule, err := manager.RuleStorage().Get(ctx, "blog")
	require.NoError(t, err)
	rule.URLPattern = "https://edited.example.com/*"
	require.NoError(t, manager.RuleStorage().Save(ctx, rule))

	loaded, err = manager.LoadRulesFromFiles(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)

	rule, err = manager.RuleStorage().Get(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "https://edited.example.com/*", rule.URLPattern)
}

func TestLoadRulesFromFiles_MissingDir(t *testing.T) {
	manager := newTestManager(t)

	loaded, err := manager.LoadRulesFromFiles(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)
}
