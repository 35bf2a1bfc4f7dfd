package menu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
name: Test Kitchen
menu:
  Zebra:
    Plain: 100
    Deep:
      Small: 250
      Large: 400
  Apple: 90
`

func labels(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Choice())
	}
	return out
}

func TestParseKeepsKeyOrder(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "Test Kitchen", c.Name)

	choices, item, err := c.Browse(nil)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, []string{"Zebra", "Apple - ($0.90)"}, labels(choices))
}

func TestBrowse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	choices, item, err := c.Browse([]int{0})
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, []string{"Plain - ($1.00)", "Deep"}, labels(choices))

	_, item, err = c.Browse([]int{0, 1, 1})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, Item{Name: "Large", Price: 400}, *item)

	// top-level leaf
	_, item, err = c.Browse([]int{1})
	require.NoError(t, err)
	assert.Equal(t, Item{Name: "Apple", Price: 90}, *item)
}

func TestBrowseStopsAtLeaf(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, item, err := c.Browse([]int{0, 0, 5, 7})
	require.NoError(t, err)
	assert.Equal(t, Item{Name: "Plain", Price: 100}, *item)
}

func TestBrowseOutOfRange(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, _, err = c.Browse([]int{2})
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, _, err = c.Browse([]int{0, -1})
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no name":       "menu:\n  A: 1\n",
		"no menu":       "name: X\n",
		"float price":   "name: X\nmenu:\n  A: 1.5\n",
		"negative":      "name: X\nmenu:\n  A: -5\n",
		"duplicate":     "name: X\nmenu:\n  A: 1\n  A: 2\n",
		"list not map":  "name: X\nmenu:\n  - A\n",
		"not a mapping": "- a\n- b\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, "Al Amaan", c.Name)

	choices, _, err := c.Browse(nil)
	require.NoError(t, err)
	assert.Equal(t, "Prata", choices[0].Label)

	_, item, err := c.Browse([]int{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, Item{Name: "Large", Price: 900}, *item)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Kitchen", c.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	a := &Catalog{Name: "A"}
	b := &Catalog{Name: "B"}
	s := NewSet(a, nil, b, &Catalog{Name: "A"})
	assert.Equal(t, []string{"A", "B"}, s.Names())

	got, ok := s.Get("B")
	assert.True(t, ok)
	assert.Same(t, b, got)
	_, ok = s.Get("C")
	assert.False(t, ok)
}
