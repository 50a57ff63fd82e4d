package document

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Walk visits every block depth-first in pre-order.
func Walk(doc Document, fn func(b *Block)) {
	for _, b := range doc {
		walkBlock(b, fn)
	}
}

func walkBlock(b *Block, fn func(*Block)) {
	if b == nil {
		return
	}
	fn(b)
	for _, c := range b.Children {
		walkBlock(c, fn)
	}
}

// TaskRef is what a task block says about its task item.
type TaskRef struct {
	ID       string
	Checked  bool
	Priority int
	Text     string
}

// Tasks returns one ref per task block in document order. Blocks without a
// task id are returned with an empty ID; for a repeated id only the first
// block counts.
func Tasks(doc Document) []TaskRef {
	var out []TaskRef
	seen := make(map[string]struct{})
	Walk(doc, func(b *Block) {
		if b.Type != TypeTask {
			return
		}
		id := b.Prop(PropTaskID)
		if id != "" {
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
		}
		out = append(out, TaskRef{
			ID:       id,
			Checked:  b.Prop(PropChecked) == "true",
			Priority: parsePriority(b.Prop(PropPriority)),
			Text:     Text(b),
		})
	})
	return out
}

func parsePriority(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ImageURLs returns the distinct non-empty image URLs in document order.
func ImageURLs(doc Document) []string {
	var out []string
	seen := make(map[string]struct{})
	Walk(doc, func(b *Block) {
		if b.Type != TypeImage {
			return
		}
		u, ok := b.Props[PropURL].(string)
		if !ok || u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	})
	return out
}

// inline is a run of styled text inside a block's content.
type inline struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Content json.RawMessage `json:"content"`
}

// Text flattens the inline content of b into plain text. Links contribute
// their text; other inline kinds are dropped.
func Text(b *Block) string {
	var sb strings.Builder
	flatten(b.Content, &sb)
	return sb.String()
}

func flatten(raw json.RawMessage, sb *strings.Builder) {
	if len(raw) == 0 {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		sb.WriteString(s)
		return
	}
	var runs []inline
	if err := json.Unmarshal(raw, &runs); err != nil {
		return
	}
	for _, r := range runs {
		switch r.Type {
		case "text":
			sb.WriteString(r.Text)
		case "link":
			flatten(r.Content, sb)
		}
	}
}
