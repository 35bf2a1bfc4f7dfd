// Package menu loads static nested menu catalogs and resolves index paths
// into either a list of choices or a priced leaf item.
//
// Catalogs are YAML documents of the form
//
//	name: Al Amaan
//	menu:
//	  Prata:
//	    Plain Prata: 120
//
// where every mapping is a category and every integer scalar is a leaf price
// in cents. Key order is significant: index paths select by position.
package menu

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/supperbot/internal/money"
)

//go:embed al_amaan.yaml
var defaultCatalog []byte

// ErrOutOfRange is returned when a path index does not select any child.
var ErrOutOfRange = errors.New("menu: selection out of range")

// Node is a category (with children) or a leaf item (with a price).
type Node struct {
	Label    string
	Price    int64
	Children []*Node
	leaf     bool
}

// IsLeaf reports whether the node is a priced item.
func (n *Node) IsLeaf() bool { return n.leaf }

// Choice is the button label shown for the node.
func (n *Node) Choice() string {
	if n.leaf {
		return fmt.Sprintf("%s - (%s)", n.Label, money.Format(n.Price))
	}
	return n.Label
}

// Item is a resolved leaf selection.
type Item struct {
	Name  string
	Price int64
}

// Catalog is one establishment's menu.
type Catalog struct {
	Name string
	Root *Node
}

// Default returns the embedded Al Amaan catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("menu: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("menu: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog preserving the key order of every mapping.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty catalog")
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errors.New("catalog must be a mapping")
	}

	c := &Catalog{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "name":
			c.Name = strings.TrimSpace(val.Value)
		case "menu":
			root, err := buildNode("", val)
			if err != nil {
				return nil, err
			}
			if root.leaf {
				return nil, errors.New("menu must be a mapping of categories")
			}
			c.Root = root
		}
	}
	if c.Name == "" {
		return nil, errors.New("catalog name is required")
	}
	if c.Root == nil || len(c.Root.Children) == 0 {
		return nil, errors.New("catalog menu is empty")
	}
	return c, nil
}

func buildNode(label string, n *yaml.Node) (*Node, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return buildNode(label, n.Alias)
	case yaml.ScalarNode:
		var price int64
		if err := n.Decode(&price); err != nil {
			return nil, fmt.Errorf("item %q: price must be an integer amount of cents (line %d)", label, n.Line)
		}
		if price < 0 {
			return nil, fmt.Errorf("item %q: negative price", label)
		}
		return &Node{Label: label, Price: price, leaf: true}, nil
	case yaml.MappingNode:
		node := &Node{Label: label, Children: make([]*Node, 0, len(n.Content)/2)}
		seen := make(map[string]struct{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := strings.TrimSpace(n.Content[i].Value)
			if k == "" {
				return nil, fmt.Errorf("empty label under %q (line %d)", label, n.Content[i].Line)
			}
			if _, dup := seen[k]; dup {
				return nil, fmt.Errorf("duplicate label %q under %q", k, label)
			}
			seen[k] = struct{}{}
			child, err := buildNode(k, n.Content[i+1])
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("%q: unsupported yaml node (line %d)", label, n.Line)
	}
}

// Browse follows path from the root. At a category it returns the
// category's children; once a leaf is reached it returns the item, using the
// last traversed label and the leaf price. Indices after a leaf are ignored.
func (c *Catalog) Browse(path []int) ([]*Node, *Item, error) {
	ptr := c.Root
	for _, idx := range path {
		if ptr.leaf {
			break
		}
		if idx < 0 || idx >= len(ptr.Children) {
			return nil, nil, fmt.Errorf("%w: index %d of %d under %q", ErrOutOfRange, idx, len(ptr.Children), ptr.Label)
		}
		ptr = ptr.Children[idx]
	}
	if ptr.leaf {
		return nil, &Item{Name: ptr.Label, Price: ptr.Price}, nil
	}
	return ptr.Children, nil, nil
}

// Set is the ordered list of establishments the bot offers.
type Set struct {
	catalogs []*Catalog
}

// NewSet builds a set; later catalogs with a duplicate name are dropped.
func NewSet(catalogs ...*Catalog) *Set {
	s := &Set{}
	seen := make(map[string]struct{}, len(catalogs))
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		s.catalogs = append(s.catalogs, c)
	}
	return s
}

// Names lists establishment names in configuration order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		names = append(names, c.Name)
	}
	return names
}

// Get returns the catalog for an establishment name.
func (s *Set) Get(name string) (*Catalog, bool) {
	for _, c := range s.catalogs {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
