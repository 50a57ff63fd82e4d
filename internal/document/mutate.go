package document

import (
	"encoding/json"
	"strconv"
)

// NewTaskBlock returns the block the client inserts for a freshly created
// task item.
func NewTaskBlock(taskID string) *Block {
	return &Block{
		Type: TypeTask,
		Props: map[string]any{
			PropChecked:  "false",
			PropTaskID:   taskID,
			PropPriority: "0",
		},
		Content:  json.RawMessage(`[]`),
		Children: []*Block{},
	}
}

// NewImageBlock returns an image block pointing at url.
func NewImageBlock(url string) *Block {
	return &Block{
		Type:     TypeImage,
		Props:    map[string]any{PropURL: url},
		Children: []*Block{},
	}
}

// FromPrompt builds the initial document of an entry started from a prompt.
// An empty prompt yields the default document.
func FromPrompt(prompt string) string {
	if prompt == "" {
		return DefaultContent
	}
	doc := Document{
		{Type: TypeParagraph, Content: textRuns(prompt)},
		{Type: TypeParagraph, Content: json.RawMessage(`""`)},
	}
	out, err := Serialize(doc)
	if err != nil {
		return DefaultContent
	}
	return out
}

// TaskState is the task-item view written back into a task block.
type TaskState struct {
	Checked     bool
	Priority    int
	Description *string
}

// ApplyTaskState rewrites the first task block for taskID. It reports
// whether the block was found and changed.
func ApplyTaskState(doc Document, taskID string, st TaskState) bool {
	b := findTask(doc, taskID)
	if b == nil {
		return false
	}
	changed := false
	checked := strconv.FormatBool(st.Checked)
	if b.Prop(PropChecked) != checked {
		b.SetProp(PropChecked, checked)
		changed = true
	}
	priority := strconv.Itoa(st.Priority)
	if b.Prop(PropPriority) != priority {
		b.SetProp(PropPriority, priority)
		changed = true
	}
	if st.Description != nil && Text(b) != *st.Description {
		b.Content = textRuns(*st.Description)
		changed = true
	}
	return changed
}

// RemoveTask drops the first task block for taskID, wherever it is nested.
func RemoveTask(doc Document, taskID string) (Document, bool) {
	return removeTask(doc, taskID)
}

func removeTask(blocks []*Block, taskID string) ([]*Block, bool) {
	for i, b := range blocks {
		if b == nil {
			continue
		}
		if b.Type == TypeTask && b.Prop(PropTaskID) == taskID {
			out := append(blocks[:i:i], blocks[i+1:]...)
			return out, true
		}
		if kids, ok := removeTask(b.Children, taskID); ok {
			b.Children = kids
			return blocks, true
		}
	}
	return blocks, false
}

func findTask(doc Document, taskID string) *Block {
	var found *Block
	Walk(doc, func(b *Block) {
		if found == nil && b.Type == TypeTask && b.Prop(PropTaskID) == taskID {
			found = b
		}
	})
	return found
}

func textRuns(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage(`[]`)
	}
	data, _ := json.Marshal([]map[string]any{
		{"type": "text", "text": s, "styles": map[string]any{}},
	})
	return data
}
