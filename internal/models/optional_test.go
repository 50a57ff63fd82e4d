package models

import (
	"encoding/json"
	"testing"
)

func TestOptionalPresence(t *testing.T) {
	var req struct {
		Mood    Optional[Mood]   `json:"mood"`
		Project Optional[string] `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(`{"mood":null}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !req.Mood.Set || req.Mood.Valid {
		t.Errorf("mood = %+v, want explicit null", req.Mood)
	}
	if req.Project.Set {
		t.Errorf("project = %+v, want unset", req.Project)
	}

	if err := json.Unmarshal([]byte(`{"mood":"calm","project_id":"p1"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := req.Mood.Get(); !ok || v != MoodCalm {
		t.Errorf("mood = %+v", req.Mood)
	}
	if v, ok := req.Project.Get(); !ok || v != "p1" {
		t.Errorf("project = %+v", req.Project)
	}
}

func TestSameValue(t *testing.T) {
	cases := []struct {
		name string
		a, b Optional[string]
		want bool
	}{
		{"unset vs null", Optional[string]{}, Null[string](), true},
		{"null vs null", Null[string](), Null[string](), true},
		{"value vs null", Some("p1"), Null[string](), false},
		{"equal values", Some("p1"), Some("p1"), true},
		{"different values", Some("p1"), Some("p2"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SameValue(tc.a, tc.b); got != tc.want {
				t.Errorf("SameValue = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarshalNull(t *testing.T) {
	data, err := json.Marshal(JournalEntry{ID: "e1", Mood: Some(MoodSad)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	if out["manual_mood_label"] != "sad" {
		t.Errorf("mood = %v", out["manual_mood_label"])
	}
	if v, ok := out["project_id"]; !ok || v != nil {
		t.Errorf("project_id = %v, want null", v)
	}
}
