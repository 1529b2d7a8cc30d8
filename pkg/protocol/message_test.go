package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseUpdate_Set(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"id": 3, "data": "red_button"}`))
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if u.Kind() != KindSet {
		t.Errorf("kind: got %v, want %v", u.Kind(), KindSet)
	}
	if u.ID == nil || *u.ID != 3 {
		t.Errorf("id: got %v, want 3", u.ID)
	}
	if !bytes.Equal(u.Data, []byte(`"red_button"`)) {
		t.Errorf("data: got %s", u.Data)
	}
}

func TestParseUpdate_SetKeepsPayloadOpaque(t *testing.T) {
	raw := `{"id":1,"data":{"nested":{"deep":[1,2,3]},"s":"x"}}`
	u, err := ParseUpdate([]byte(raw))
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(u.Data, &v); err != nil {
		t.Fatalf("payload no longer valid JSON: %v", err)
	}
	if _, ok := v["nested"]; !ok {
		t.Error("nested structure lost in transit")
	}
}

func TestParseUpdate_SetMany(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"ids": [1, 2, 5], "data": 7}`))
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if u.Kind() != KindSetMany {
		t.Errorf("kind: got %v, want %v", u.Kind(), KindSetMany)
	}
	if len(u.IDs) != 3 || u.IDs[0] != 1 || u.IDs[2] != 5 {
		t.Errorf("ids: got %v, want [1 2 5]", u.IDs)
	}
}

func TestParseUpdate_Reset(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"command": "reset"}`))
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if u.Kind() != KindReset {
		t.Errorf("kind: got %v, want %v", u.Kind(), KindReset)
	}
}

func TestParseUpdate_Clear(t *testing.T) {
	u, err := ParseUpdate([]byte(`{"command": "clear", "id": 4}`))
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	if u.Kind() != KindClear {
		t.Errorf("kind: got %v, want %v", u.Kind(), KindClear)
	}
	if u.ID == nil || *u.ID != 4 {
		t.Errorf("id: got %v, want 4", u.ID)
	}
}

func TestParseUpdate_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"id": 3,`},
		{"empty object", `{}`},
		{"unknown command", `{"command": "explode"}`},
		{"clear without id", `{"command": "clear"}`},
		{"irrelevant keys only", `{"hello": "world"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseUpdate([]byte(tc.raw)); err == nil {
				t.Errorf("ParseUpdate(%q): expected error", tc.raw)
			}
		})
	}
}

func TestParseUpdate_UnknownShapeSentinel(t *testing.T) {
	_, err := ParseUpdate([]byte(`{}`))
	if !errors.Is(err, ErrUnknownShape) {
		t.Errorf("got %v, want ErrUnknownShape", err)
	}

	// Malformed JSON is a different failure, not an unknown shape.
	_, err = ParseUpdate([]byte(`not json`))
	if errors.Is(err, ErrUnknownShape) {
		t.Error("malformed JSON misreported as unknown shape")
	}
}

func TestHelloWireFormat(t *testing.T) {
	data, err := json.Marshal(NewHello())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"type":"bridge"}` {
		t.Errorf("hello: got %s", data)
	}
}

func TestReadyStatusWireFormat(t *testing.T) {
	data, err := json.Marshal(NewReadyStatus(6))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":6,"data":{"id":6,"status":"ready"}}`
	if string(data) != want {
		t.Errorf("ready status: got %s, want %s", data, want)
	}
}

func TestUpdateKindString(t *testing.T) {
	cases := map[UpdateKind]string{
		KindSet:     "set",
		KindSetMany: "set-many",
		KindReset:   "reset",
		KindClear:   "clear",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("UpdateKind(%d).String(): got %q, want %q", kind, got, want)
		}
	}
}
