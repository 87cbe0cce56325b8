package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/exitcond"
)

const sampleRules = `
profiles:
  default:
    description: 基础离场
    rules:
      - "RSI above 70"
      - "profit > 10% or loss > 5%"
  swing:
    rules:
      - "held for 10 days"
`

func writeRules(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRulesLoaderLoad(t *testing.T) {
	path := writeRules(t, t.TempDir(), sampleRules)
	l, err := NewRulesLoader(path, false)
	require.NoError(t, err)
	defer l.Close()

	snap := l.Snapshot()
	require.Len(t, snap.Profiles, 2)

	def, ok := l.Profile("default")
	require.True(t, ok)
	assert.Equal(t, "default", def.Name)
	assert.Equal(t, "基础离场", def.Description)
	conds := def.Conditions()
	require.Len(t, conds, 2)
	ind, ok := conds[0].(exitcond.IndicatorCondition)
	require.True(t, ok)
	assert.Equal(t, "RSI", ind.Indicator)

	_, ok = l.Profile("missing")
	assert.False(t, ok)
}

func TestRulesLoaderMissingFile(t *testing.T) {
	_, err := NewRulesLoader(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
	_, err = NewRulesLoader("  ", false)
	assert.Error(t, err)
}

func TestRulesLoaderHotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, sampleRules)
	l, err := NewRulesLoader(path, true)
	require.NoError(t, err)
	defer l.Close()

	got := make(chan RulesSnapshot, 4)
	l.Subscribe(func(snap RulesSnapshot) { got <- snap })

	// Subscribe 会立即推一次当前快照
	first := <-got
	assert.Len(t, first.Profiles, 2)

	updated := `
profiles:
  default:
    rules:
      - "RSI above 80"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-got:
			if snap.Version <= first.Version {
				continue
			}
			require.Len(t, snap.Profiles, 1)
			def := snap.Profiles["default"]
			conds := def.Conditions()
			require.Len(t, conds, 1)
			ind := conds[0].(exitcond.IndicatorCondition)
			assert.Equal(t, 80.0, ind.Value)
			return
		case <-deadline:
			t.Fatal("未收到热更新快照")
		}
	}
}
