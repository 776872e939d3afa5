package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "data", "workflow.db")
	cfg.Storage.ExportDir = filepath.Join(dir, "exports")
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"url only", func(c *Config) { c.Database.Path = ""; c.Database.URL = "sqlite:/tmp/x.db" }, ""},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.url or database.path"},
		{"no cache expiry", func(c *Config) { c.Workflow.CacheExpiry = 0 }, "cache_expiry"},
		{"no export dir", func(c *Config) { c.Storage.ExportDir = "" }, "export_dir"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewContainer_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestContainer_StartSeedsDefaultWorkflow(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	states, err := c.Workflow().Registry.GetStates(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Len(t, states, 4)

	content, err := c.Services().Content.CreateContent(ctx, "Welcome", 7)
	require.NoError(t, err)
	assert.Equal(t, "draft", content.Status)

	submit, err := c.Workflow().Graph.GetTransitions(ctx, entity.WorkflowTypeContent, "draft")
	require.NoError(t, err)
	require.Len(t, submit, 1)

	result, err := c.Workflow().Engine.ExecuteTransition(ctx, content.ID, submit[0].ID, entity.Principal{ID: 7, Role: "author"}, "")
	require.NoError(t, err)
	assert.Equal(t, "review", result.ToState)

	path, err := c.Services().HistoryExport.ExportHistory(ctx, content.ID)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Storage.ExportDir, path))

	health := c.Health()
	assert.True(t, health.Overall)
	assert.NotNil(t, c.HTTPServer())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
}

func TestContainer_RestartDoesNotReseed(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))
	_, err = first.Workflow().Registry.SetInitialState(ctx, entity.WorkflowTypeContent, "review")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	defer second.Close()

	initial, err := second.Workflow().Registry.GetInitialState(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, "review", initial.Name)
}

func TestContainer_StartAppliesDefinitionsFile(t *testing.T) {
	cfg := testConfig(t)
	defs := filepath.Join(t.TempDir(), "defs.yaml")
	require.NoError(t, os.WriteFile(defs, []byte(`
workflows:
  - type: comment
    states:
      - {name: pending, initial: true}
      - {name: visible, final: true}
    transitions:
      - {name: Approve, from: pending, to: visible, roles: [moderator]}
`), 0644))
	cfg.Workflow.DefinitionsFile = defs

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	ctx := context.Background()
	comment, err := c.Workflow().Registry.GetStates(ctx, entity.WorkflowTypeComment)
	require.NoError(t, err)
	assert.Len(t, comment, 2)

	content, err := c.Workflow().Registry.GetStates(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Empty(t, content, "the default workflow is only seeded without a definitions file")
}
