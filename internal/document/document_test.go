package document

import (
	"encoding/json"
	"reflect"
	"testing"
)

const sampleDoc = `[
 {"id":"b1","type":"heading","props":{"level":2,"textColor":"default"},"content":[{"type":"text","text":"Morning","styles":{"bold":true}}],"children":[]},
 {"id":"b2","type":"todo","props":{"todoId":"t1","checked":"false","priority":"2"},"content":[{"type":"text","text":"Buy ","styles":{}},{"type":"link","href":"https://x.test","content":[{"type":"text","text":"milk","styles":{}}]}],"children":[
   {"id":"b3","type":"image","props":{"url":"https://cdn.test/media/u1/e1/a.png","caption":""},"children":[]}
 ]},
 {"id":"b4","type":"todo","props":{"todoId":"t1","checked":"true"},"content":[]},
 {"id":"b5","type":"todo","props":{"checked":"true"},"content":[]},
 {"id":"b6","type":"image","props":{"url":"https://cdn.test/media/u1/e1/a.png"}},
 {"id":"b7","type":"image","props":{"url":""}},
 {"id":"b8","type":"customWidget","props":{"weight":1.5e3,"ok":true},"extraKey":{"nested":[1,2,3]}}
]`

func TestParseSerializeRoundTrip(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var want, got any
	if err := json.Unmarshal([]byte(sampleDoc), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip changed the tree:\nwant %v\ngot  %v", want, got)
	}
}

func TestParseOrDefault(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		defaulted bool
	}{
		{"valid", `[{"type":"paragraph","content":"hi"}]`, false},
		{"empty string", "", true},
		{"empty array", "[]", true},
		{"object", `{"type":"paragraph"}`, true},
		{"garbage", "not json", true},
		{"array of scalars", `[1,2]`, true},
		{"null element", `[null]`, true},
		{"null elements", `[null,null]`, true},
		{"empty object", `[{}]`, true},
		{"null beside a block", `[null,{"type":"paragraph"}]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, saved, defaulted := ParseOrDefault(tc.in)
			if defaulted != tc.defaulted {
				t.Fatalf("defaulted = %v, want %v", defaulted, tc.defaulted)
			}
			if defaulted && saved != DefaultContent {
				t.Errorf("saved = %q, want default", saved)
			}
			if !defaulted && saved != tc.in {
				t.Errorf("saved = %q, want input unchanged", saved)
			}
			if !hasBlocks(doc) {
				t.Error("expected at least one block")
			}
			if err := Validate(tc.in); (err != nil) != tc.defaulted {
				t.Errorf("Validate = %v, want failure %v", err, tc.defaulted)
			}
		})
	}
}

func TestTasks(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := Tasks(doc)
	want := []TaskRef{
		{ID: "t1", Checked: false, Priority: 2, Text: "Buy milk"},
		{ID: "", Checked: true, Priority: 0, Text: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tasks = %+v, want %+v", got, want)
	}
}

func TestImageURLs(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := ImageURLs(doc)
	if len(got) != 1 || got[0] != "https://cdn.test/media/u1/e1/a.png" {
		t.Errorf("ImageURLs = %v", got)
	}
}

func TestWalkPreOrder(t *testing.T) {
	doc, _ := Parse(sampleDoc)
	var ids []string
	Walk(doc, func(b *Block) { ids = append(ids, b.ID()) })
	want := []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7", "b8"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestParagraphOnlyDocument(t *testing.T) {
	doc, _, defaulted := ParseOrDefault(`[{"type":"paragraph","content":"hello"}]`)
	if defaulted {
		t.Fatal("unexpected default")
	}
	if n := len(Tasks(doc)); n != 0 {
		t.Errorf("tasks = %d", n)
	}
	if n := len(ImageURLs(doc)); n != 0 {
		t.Errorf("images = %d", n)
	}
	if got := Text(doc[0]); got != "hello" {
		t.Errorf("Text = %q", got)
	}
}

func TestApplyTaskState(t *testing.T) {
	doc, _ := Parse(sampleDoc)
	desc := "Buy oat milk"
	if !ApplyTaskState(doc, "t1", TaskState{Checked: true, Priority: 1, Description: &desc}) {
		t.Fatal("expected block to change")
	}
	refs := Tasks(doc)
	if refs[0].ID != "t1" || !refs[0].Checked || refs[0].Priority != 1 || refs[0].Text != desc {
		t.Errorf("ref = %+v", refs[0])
	}
	// The duplicate block for t1 further down is untouched.
	if doc[2].Prop(PropChecked) != "true" || doc[2].Prop(PropPriority) != "" {
		t.Errorf("duplicate block rewritten: %v", doc[2].Props)
	}
	if ApplyTaskState(doc, "t1", TaskState{Checked: true, Priority: 1, Description: &desc}) {
		t.Error("second apply should be a no-op")
	}
	if ApplyTaskState(doc, "missing", TaskState{}) {
		t.Error("unknown task should not change anything")
	}
}

func TestRemoveTaskNested(t *testing.T) {
	doc, _ := Parse(`[{"type":"paragraph","content":"x","children":[{"type":"todo","props":{"todoId":"t9"}}]},{"type":"todo","props":{"todoId":"t8"}}]`)
	doc, ok := RemoveTask(doc, "t9")
	if !ok {
		t.Fatal("t9 not removed")
	}
	if len(doc[0].Children) != 0 {
		t.Errorf("children = %d", len(doc[0].Children))
	}
	doc, ok = RemoveTask(doc, "t8")
	if !ok || len(doc) != 1 {
		t.Errorf("t8 removal: ok=%v len=%d", ok, len(doc))
	}
	if _, ok := RemoveTask(doc, "t8"); ok {
		t.Error("removing twice should report false")
	}
}

func TestNewTaskBlock(t *testing.T) {
	b := NewTaskBlock("t42")
	out, err := Serialize(Document{b})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	doc, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	refs := Tasks(doc)
	if len(refs) != 1 || refs[0].ID != "t42" || refs[0].Checked || refs[0].Priority != 0 {
		t.Errorf("refs = %+v", refs)
	}
}

func TestFromPrompt(t *testing.T) {
	if FromPrompt("") != DefaultContent {
		t.Error("empty prompt should give default document")
	}
	doc, err := Parse(FromPrompt("What made you smile?"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc) != 2 || Text(doc[0]) != "What made you smile?" {
		t.Errorf("doc = %+v", doc)
	}
}
