// Package glossary holds the read-only term mapping threaded into every
// translation prompt of a run.
package glossary

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Term is one source → target pair.
type Term struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

// Glossary is an immutable source-term → target-term mapping. The zero value
// is an empty glossary. It is safe for concurrent use because nothing mutates
// it after construction.
type Glossary struct {
	terms map[string]string
}

// New copies m into a new Glossary. Blank source terms are skipped.
func New(m map[string]string) Glossary {
	terms := make(map[string]string, len(m))
	for src, tgt := range m {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		terms[src] = strings.TrimSpace(tgt)
	}
	return Glossary{terms: terms}
}

// Merge returns a new Glossary with the entries of g overridden by other.
func (g Glossary) Merge(other Glossary) Glossary {
	m := g.Map()
	for k, v := range other.terms {
		m[k] = v
	}
	return Glossary{terms: m}
}

// Load reads a glossary document from path. Two shapes are accepted: a flat
// mapping `source: target`, or a list of `{source, target}` objects. JSON
// is a subset of YAML, so both encodings load.
func Load(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Glossary{}, fmt.Errorf("read glossary: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return Glossary{}, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	return g, nil
}

// Parse decodes glossary bytes; see Load for the accepted shapes.
func Parse(data []byte) (Glossary, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Glossary{}, err
	}
	if len(root.Content) == 0 {
		return New(nil), nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := doc.Decode(&m); err != nil {
			return Glossary{}, err
		}
		return New(m), nil
	case yaml.SequenceNode:
		var list []Term
		if err := doc.Decode(&list); err != nil {
			return Glossary{}, err
		}
		m := make(map[string]string, len(list))
		for _, t := range list {
			m[t.Source] = t.Target
		}
		return New(m), nil
	default:
		return Glossary{}, fmt.Errorf("expected a mapping or a list of terms, got %s", kindName(doc.Kind))
	}
}

// Marshal encodes the glossary as a sorted YAML mapping.
func (g Glossary) Marshal() ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range g.Terms() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: t.Source},
			&yaml.Node{Kind: yaml.ScalarNode, Value: t.Target},
		)
	}
	return yaml.Marshal(node)
}

// Terms returns the pairs sorted by source term.
func (g Glossary) Terms() []Term {
	out := make([]Term, 0, len(g.terms))
	for src, tgt := range g.terms {
		out = append(out, Term{Source: src, Target: tgt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func (g Glossary) Get(source string) (string, bool) {
	t, ok := g.terms[source]
	return t, ok
}

func (g Glossary) Len() int { return len(g.terms) }

// Map returns a copy of the underlying mapping.
func (g Glossary) Map() map[string]string {
	m := make(map[string]string, len(g.terms))
	for k, v := range g.terms {
		m[k] = v
	}
	return m
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return fmt.Sprintf("node kind %d", k)
	}
}
