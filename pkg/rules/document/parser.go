package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Section keys of a rule document.
const (
	KeyGlobalRules = "globalRules"
	KeyFields      = "fields"
	KeyRuleGroups  = "ruleGroups"
)

// Parser reads rule documents. JSON is parsed through the YAML decoder so
// declarations keep their line numbers; documents the YAML decoder rejects
// are retried with encoding/json.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a parser with default limits.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
	}
}

// WithMaxFileSize sets the maximum document size.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// Parse reads and parses the document at path.
func (p *Parser) Parse(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  "failed to access rule document",
			Location: rulesErrors.Location{File: path},
			Index:    -1,
			Cause:    err,
		}
	}

	if info.Size() > p.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: rulesErrors.Location{File: path},
			Index:    -1,
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  "failed to read rule document",
			Location: rulesErrors.Location{File: path},
			Index:    -1,
			Cause:    err,
		}
	}

	return p.ParseBytes(data, path)
}

// ParseBytes parses a document held in memory. sourcePath is used only for
// error locations and may be empty.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*Document, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: rulesErrors.Location{File: sourcePath},
			Index:    -1,
		}
	}

	doc, yamlErr := parseYAML(data, sourcePath)
	if yamlErr == nil {
		doc.raw = data
		return doc, nil
	}

	// Valid JSON that the YAML scanner rejects (tabs in indentation, for one).
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if doc, err := parseJSON(trimmed, sourcePath); err == nil {
			doc.raw = data
			return doc, nil
		}
	}

	return nil, &rulesErrors.Error{
		Type:       rulesErrors.ErrorTypeSyntax,
		Message:    "rule document parsing failed",
		Location:   rulesErrors.Location{File: sourcePath, Line: 1, Column: 1},
		Index:      -1,
		Cause:      yamlErr,
		Suggestion: "check JSON/YAML syntax (brackets, commas, indentation)",
	}
}

// parseYAML decodes the document section by section so every declaration
// records the line it was declared on.
func parseYAML(data []byte, sourcePath string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	doc := &Document{SourceFile: sourcePath}

	// Empty document: nothing declared.
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: rule document must be an object", top.Line)
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
			continue
		}

		switch key.Value {
		case KeyGlobalRules:
			rules, err := decodeSequence[RuleDecl](value, sourcePath, key.Value)
			if err != nil {
				return nil, err
			}
			doc.GlobalRules = rules

		case KeyFields:
			fields, err := decodeSequence[FieldDecl](value, sourcePath, key.Value)
			if err != nil {
				return nil, err
			}
			for fi, field := range fields {
				item := value.Content[fi]
				if err := locateNested(item, "rules", sourcePath, field.Rules, func(r *RuleDecl, loc rulesErrors.Location) { r.Location = loc }); err != nil {
					return nil, err
				}
			}
			doc.Fields = fields

		case KeyRuleGroups:
			groups, err := decodeSequence[GroupDecl](value, sourcePath, key.Value)
			if err != nil {
				return nil, err
			}
			for gi, group := range groups {
				item := value.Content[gi]
				if err := locateNested(item, "rules", sourcePath, group.Rules, func(m *MemberRef, loc rulesErrors.Location) { m.Location = loc }); err != nil {
					return nil, err
				}
			}
			doc.RuleGroups = groups
		}
	}

	return doc, nil
}

// located is implemented by every declaration type via setLocation.
type located interface {
	RuleDecl | FieldDecl | GroupDecl
}

func decodeSequence[T located](node *yaml.Node, sourcePath, key string) ([]*T, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: %q must be a list", node.Line, key)
	}

	out := make([]*T, 0, len(node.Content))
	for _, item := range node.Content {
		decl := new(T)
		if err := item.Decode(decl); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s entry: %w", item.Line, key, err)
		}
		setLocation(decl, rulesErrors.Location{File: sourcePath, Line: item.Line, Column: item.Column})
		out = append(out, decl)
	}
	return out, nil
}

func setLocation(decl any, loc rulesErrors.Location) {
	switch d := decl.(type) {
	case *RuleDecl:
		d.Location = loc
	case *FieldDecl:
		d.Location = loc
	case *GroupDecl:
		d.Location = loc
	}
}

// locateNested assigns locations to the entries of a nested "rules" list.
func locateNested[T any](parent *yaml.Node, key, sourcePath string, items []*T, set func(*T, rulesErrors.Location)) error {
	if parent.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value != key {
			continue
		}
		seq := parent.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			return nil
		}
		for j, item := range seq.Content {
			if j < len(items) && items[j] != nil {
				set(items[j], rulesErrors.Location{File: sourcePath, Line: item.Line, Column: item.Column})
			}
		}
	}
	return nil
}

// jsonDocument mirrors the on-disk shape for the encoding/json fallback.
type jsonDocument struct {
	GlobalRules []*RuleDecl  `json:"globalRules"`
	Fields      []*FieldDecl `json:"fields"`
	RuleGroups  []*GroupDecl `json:"ruleGroups"`
}

func parseJSON(data []byte, sourcePath string) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var jd jsonDocument
	if err := dec.Decode(&jd); err != nil {
		return nil, err
	}

	return &Document{
		SourceFile:  sourcePath,
		GlobalRules: jd.GlobalRules,
		Fields:      jd.Fields,
		RuleGroups:  jd.RuleGroups,
	}, nil
}
