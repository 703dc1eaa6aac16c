package awards

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinitions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefinitions(t *testing.T) {
	env := newAwardEnv(t)

	path := writeDefinitions(t, `
badges:
  - name: Prolific
    description: Posted ten messages
    public: true
    auto_award: true
    criteria:
      type: message_count
      value: 10
  - name: Founder
    description: Hand-picked
    public: true
`)

	defs, err := env.service.LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "Prolific", defs[0].Name)
	assert.True(t, defs[0].AutoAward)
	assert.Equal(t, "message_count", defs[0].Criteria["type"])

	assert.Equal(t, "Founder", defs[1].Name)
	assert.False(t, defs[1].AutoAward)
	assert.Nil(t, defs[1].Criteria)
}

func TestLoadDefinitionsRejectsInvalid(t *testing.T) {
	env := newAwardEnv(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "nameless badge",
			content: `
badges:
  - description: who am I
`,
			wantErr: "has no name",
		},
		{
			name: "auto award without criteria type",
			content: `
badges:
  - name: Broken
    auto_award: true
`,
			wantErr: "criteria type is required",
		},
		{
			name: "criteria fail registry validation",
			content: `
badges:
  - name: Broken
    auto_award: true
    criteria:
      type: message_count
      value: 0
`,
			wantErr: `field "value" must be at least 1`,
		},
		{
			name:    "malformed yaml",
			content: "badges: [",
			wantErr: "failed to parse badge definitions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDefinitions(t, tt.content)
			_, err := env.service.LoadDefinitions(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSyncDefinitionsUpsertsByName(t *testing.T) {
	env := newAwardEnv(t)
	ctx := context.Background()

	defs := []BadgeDefinition{
		{
			Name:      "Prolific",
			Public:    true,
			AutoAward: true,
			Criteria:  map[string]interface{}{"type": "message_count", "value": 10},
		},
	}
	require.NoError(t, env.service.SyncDefinitions(ctx, env.creator.ProfileID, defs))

	badges, err := env.store.ListAutoAwardBadges(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "Prolific", badges[0].Name)
	assert.Equal(t, "message_count", badges[0].CriteriaType)
	assert.Equal(t, float64(10), badges[0].CriteriaConfig["value"])
	assert.Equal(t, env.creator.ProfileID, badges[0].CreatorID)

	// A second sync with a changed threshold updates in place.
	defs[0].Criteria["value"] = 20
	defs[0].Description = "Posted twenty messages"
	require.NoError(t, env.service.SyncDefinitions(ctx, env.creator.ProfileID, defs))

	badges, err = env.store.ListAutoAwardBadges(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, float64(20), badges[0].CriteriaConfig["value"])
	assert.Equal(t, "Posted twenty messages", badges[0].Description)
}
