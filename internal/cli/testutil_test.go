package cli

import (
	"os"
	"path/filepath"
	"testing"
)

const testDoc = `{
  "id": "root", "width": 200, "height": 100,
  "children": [
    {"id": "a", "x": 10, "y": 10, "width": 30, "height": 30},
    {"id": "b", "x": 150, "y": 10, "width": 30, "height": 30}
  ],
  "edges": [
    {"id": "e", "source": "a", "target": "b",
     "sourcePoint": {"x": 40, "y": 25},
     "targetPoint": {"x": 150, "y": 25}}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testCLI returns a CLI whose profile disables caching, so tests never touch
// the user's cache directory.
func testCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	c := New(os.Stderr, LogInfo)
	c.configPath = writeFile(t, dir, "elksvg.toml", "[cache]\nbackend = \"none\"\n")
	return c
}
