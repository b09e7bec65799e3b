package config

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveColumns updates the columns section of the config file.
// Comments and formatting in other sections are preserved through yaml.Node.
func SaveColumns(configPath string, columns []ColumnConfig) error {
	return saveSection(configPath, "columns", buildColumnsNode(columns))
}

// SaveFlags updates the flags section of the config file.
func SaveFlags(configPath string, values map[string]bool) error {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		node.Content = append(node.Content,
			scalar(name),
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(values[name])},
		)
	}
	return saveSection(configPath, "flags", node)
}

func saveSection(configPath, key string, section *yaml.Node) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	switch {
	case doc.Kind == 0:
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind:    yaml.MappingNode,
				Content: []*yaml.Node{scalar(key), section},
			}},
		}
	case doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode:
		root := doc.Content[0]
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == key {
				root.Content[i+1] = section
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content, scalar(key), section)
		}
	default:
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes to a temp file in the target directory, then renames.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".vgrid.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// buildColumnsNode creates a yaml.Node representing the columns array.
// Zero-valued optional fields are omitted.
func buildColumnsNode(columns []ColumnConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(columns)),
	}

	for _, col := range columns {
		colNode := &yaml.Node{Kind: yaml.MappingNode}
		colNode.Content = append(colNode.Content, scalar("id"), scalar(col.ID))
		if col.Title != "" && col.Title != col.ID {
			colNode.Content = append(colNode.Content, scalar("title"), scalar(col.Title))
		}
		if col.Width != 0 {
			colNode.Content = append(colNode.Content, scalar("width"), intNode(col.Width))
		}
		if col.Field != nil {
			colNode.Content = append(colNode.Content, scalar("field"), intNode(*col.Field))
		}
		if col.Renderer != "" {
			colNode.Content = append(colNode.Content, scalar("renderer"), scalar(col.Renderer))
		}
		if col.AutoHeight {
			colNode.Content = append(colNode.Content, scalar("auto_height"), boolNode(true))
		}
		if col.Hidden {
			colNode.Content = append(colNode.Content, scalar("hidden"), boolNode(true))
		}
		node.Content = append(node.Content, colNode)
	}

	return node
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func boolNode(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}
