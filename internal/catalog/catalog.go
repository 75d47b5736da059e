// Package catalog models the operator-curated failure-signature catalog: an
// ordered set of named signatures, each carrying regular-expression patterns,
// literal substrings and optional bug metadata. A catalog loads once at
// startup and is immutable afterwards, so concurrent readers need no locking.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadError reports that a catalog source could not be turned into a usable
// catalog.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load catalog: %v", e.Err)
	}
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PatternError identifies the signature and pattern behind a regular
// expression that failed to compile. Compilation happens at load time so a
// bad pattern never surfaces mid-classification.
type PatternError struct {
	Signature string
	Pattern   string
	Err       error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("signature %q: pattern %q: %v", e.Signature, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Rule is one matching criterion of a signature.
type Rule interface {
	// Match reports whether the rule fires on the given console text.
	Match(log string) bool
}

// RegexRule matches when its expression finds the console text. Expressions
// are compiled with (?s) so `.` crosses line boundaries.
type RegexRule struct {
	expr *regexp.Regexp
}

// Match implements Rule.
func (r RegexRule) Match(log string) bool { return r.expr.MatchString(log) }

// LiteralRule matches on case-sensitive substring containment.
type LiteralRule struct {
	Text string
}

// Match implements Rule.
func (r LiteralRule) Match(log string) bool { return strings.Contains(log, r.Text) }

// Bug points at the tracked issue behind a known failure cause.
type Bug struct {
	URL string `yaml:"url"`
}

// Signature is one named failure cause. Patterns and Literals keep the raw
// source so a catalog round-trips losslessly; the compiled rules preserve
// declaration order, patterns first. A signature with no rules is legal and
// never fires.
type Signature struct {
	Name     string
	Patterns []string
	Literals []string
	Bug      *Bug

	rules []Rule
}

// Rules returns the compiled criteria in declaration order.
func (s Signature) Rules() []Rule { return s.rules }

// Matches reports whether any of the signature's rules fires on the text.
func (s Signature) Matches(log string) bool {
	for _, r := range s.rules {
		if r.Match(log) {
			return true
		}
	}
	return false
}

// Catalog holds the loaded signature set in source order. Source order is
// the classification order, so reports stay deterministic across runs.
type Catalog struct {
	signatures []Signature
	byName     map[string]int
}

// entry mirrors one catalog value in YAML.
type entry struct {
	Patterns []string `yaml:"patterns,omitempty"`
	Literals []string `yaml:"literals,omitempty"`
	Bug      *Bug     `yaml:"bug,omitempty"`
}

// Load reads and parses a catalog file. Every failure mode comes back as a
// *LoadError; invalid patterns additionally carry a *PatternError cause.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cat, nil
}

// Parse builds a catalog from raw YAML. The source mapping's order is
// preserved. Duplicate names, invalid patterns, an empty document and a
// non-mapping root are all rejected.
func Parse(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, errors.New("catalog is empty")
	}
	mapping := root.Content[0]
	if mapping.Kind == yaml.ScalarNode && mapping.Tag == "!!null" {
		return nil, errors.New("catalog is empty")
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, errors.New("catalog root must be a mapping of signature names")
	}

	cat := &Catalog{byName: make(map[string]int)}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		name := keyNode.Value
		if _, dup := cat.byName[name]; dup {
			return nil, fmt.Errorf("duplicate signature %q (line %d)", name, keyNode.Line)
		}

		var e entry
		if err := valNode.Decode(&e); err != nil {
			return nil, fmt.Errorf("signature %q: %w", name, err)
		}

		sig := Signature{Name: name, Patterns: e.Patterns, Literals: e.Literals, Bug: e.Bug}
		for _, p := range e.Patterns {
			expr, err := regexp.Compile("(?s)" + p)
			if err != nil {
				return nil, &PatternError{Signature: name, Pattern: p, Err: err}
			}
			sig.rules = append(sig.rules, RegexRule{expr: expr})
		}
		for _, l := range e.Literals {
			sig.rules = append(sig.rules, LiteralRule{Text: l})
		}

		cat.byName[name] = len(cat.signatures)
		cat.signatures = append(cat.signatures, sig)
	}
	if len(cat.signatures) == 0 {
		return nil, errors.New("catalog defines no signatures")
	}
	return cat, nil
}

// Marshal re-emits the catalog as YAML in catalog order. Parsing the output
// yields an identical signature set.
func (c *Catalog) Marshal() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, sig := range c.signatures {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: sig.Name}
		val := &yaml.Node{}
		if err := val.Encode(entry{Patterns: sig.Patterns, Literals: sig.Literals, Bug: sig.Bug}); err != nil {
			return nil, fmt.Errorf("signature %q: %w", sig.Name, err)
		}
		doc.Content = append(doc.Content, key, val)
	}
	return yaml.Marshal(doc)
}

// Lookup finds a signature by name.
func (c *Catalog) Lookup(name string) (Signature, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Signature{}, false
	}
	return c.signatures[idx], true
}

// Signatures returns the signatures in catalog order. The slice is shared;
// callers must not mutate it.
func (c *Catalog) Signatures() []Signature { return c.signatures }

// Names returns the signature names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.signatures))
	for i, sig := range c.signatures {
		names[i] = sig.Name
	}
	return names
}

// Len returns the number of signatures.
func (c *Catalog) Len() int { return len(c.signatures) }
