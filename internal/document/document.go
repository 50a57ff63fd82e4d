// Package document parses and rewrites the block tree stored as an entry's
// content. Only the block kinds the sync engine cares about are interpreted;
// every other key and block shape is carried through untouched.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultContent is saved in place of empty or unparseable content.
const DefaultContent = `[{"type":"paragraph","content":""}]`

// Block types and props the engine reads.
const (
	TypeParagraph = "paragraph"
	TypeTask      = "todo"
	TypeImage     = "image"

	PropTaskID   = "todoId"
	PropChecked  = "checked"
	PropPriority = "priority"
	PropURL      = "url"
)

var (
	ErrNotArray = errors.New("document: content is not a JSON array")
	ErrEmpty    = errors.New("document: no blocks")
)

// Document is an ordered list of top-level blocks.
type Document []*Block

// Block is one node of the tree. Keys other than type, props, content and
// children are kept raw in extra and written back as they were read.
type Block struct {
	Type     string
	Props    map[string]any
	Content  json.RawMessage
	Children []*Block

	extra map[string]json.RawMessage
}

// ID returns the editor-assigned block id, if any.
func (b *Block) ID() string {
	raw, ok := b.extra["id"]
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}

// Prop returns the string form of a prop. Editors store most props as
// strings, but numbers and booleans are accepted too.
func (b *Block) Prop(key string) string {
	switch v := b.Props[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// SetProp sets a prop, allocating the map if the block had none.
func (b *Block) SetProp(key string, value any) {
	if b.Props == nil {
		b.Props = make(map[string]any)
	}
	b.Props[key] = value
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("document: block: %w", err)
	}
	if raw == nil {
		return errors.New("document: block is null")
	}
	*b = Block{}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &b.Type); err != nil {
			return fmt.Errorf("document: block type: %w", err)
		}
		delete(raw, "type")
	}
	if v, ok := raw["props"]; ok && !isNull(v) {
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		if err := dec.Decode(&b.Props); err != nil {
			return fmt.Errorf("document: block props: %w", err)
		}
		delete(raw, "props")
	}
	if v, ok := raw["content"]; ok {
		b.Content = append(json.RawMessage(nil), v...)
		delete(raw, "content")
	}
	if v, ok := raw["children"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &b.Children); err != nil {
			return err
		}
		if b.Children == nil {
			b.Children = []*Block{}
		}
		delete(raw, "children")
	}
	if len(raw) > 0 {
		b.extra = raw
	}
	return nil
}

func (b *Block) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(b.extra)+4)
	for k, v := range b.extra {
		out[k] = v
	}
	typ, err := json.Marshal(b.Type)
	if err != nil {
		return nil, err
	}
	out["type"] = typ
	if b.Props != nil {
		props, err := json.Marshal(b.Props)
		if err != nil {
			return nil, fmt.Errorf("document: block props: %w", err)
		}
		out["props"] = props
	}
	if b.Content != nil {
		out["content"] = b.Content
	}
	if b.Children != nil {
		children, err := json.Marshal(b.Children)
		if err != nil {
			return nil, err
		}
		out["children"] = children
	}
	return json.Marshal(out)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Parse decodes serialized content. The result may be empty.
func Parse(content string) (Document, error) {
	trimmed := bytes.TrimSpace([]byte(content))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	return doc, nil
}

// Serialize encodes doc back to its stored form.
func Serialize(doc Document) (string, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("document: serialize: %w", err)
	}
	return string(data), nil
}

// ParseOrDefault parses content and falls back to the default document when
// the content is unparseable, not an array, or holds no blocks. Null and
// empty-object elements are not blocks. It returns the tree, the string that
// should be persisted and whether the fallback was used.
func ParseOrDefault(content string) (Document, string, bool) {
	doc, err := Parse(content)
	if err == nil && hasBlocks(doc) {
		return doc, content, false
	}
	def, _ := Parse(DefaultContent)
	return def, DefaultContent, true
}

// Validate reports why content would be replaced by the default document.
func Validate(content string) error {
	doc, err := Parse(content)
	if err != nil {
		return err
	}
	if !hasBlocks(doc) {
		return ErrEmpty
	}
	return nil
}

func hasBlocks(doc Document) bool {
	for _, b := range doc {
		if b != nil && !b.blank() {
			return true
		}
	}
	return false
}

func (b *Block) blank() bool {
	return b.Type == "" && len(b.Props) == 0 && len(b.Content) == 0 &&
		len(b.Children) == 0 && len(b.extra) == 0
}

// Checksum returns the hex SHA-256 of the serialized content.
func Checksum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
