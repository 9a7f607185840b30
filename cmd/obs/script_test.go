package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/observe/jsondiff"
	"github.com/signadot/observe/persist"
)

var testScript = `
capacity: 4
initial: [3, 1, 2]
pipeline:
- filter: "value % 2 == 1"
- map: "value * 10"
- sort: "a < b"
- head: 3
ops:
- {op: push_back, value: 5}
- {op: push_back, value: 4}
- {op: insert, index: 0, value: 1}
- {op: tx, ops: [{op: pop_front}, {op: push_front, value: 9}]}
- {op: abort, ops: [{op: clear}]}
`

func discard() *slog.Logger {
	return newLog(io.Discard, slog.LevelDebug)
}

func strs(vs persist.Vector[any]) []string {
	res := []string{}
	vs.Each(func(_ int, v any) bool {
		res = append(res, fmt.Sprint(v))
		return true
	})
	return res
}

func TestParseScriptDefaults(t *testing.T) {
	s, err := ParseScript([]byte("ops: [{op: clear}]"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Capacity != 16 {
		t.Errorf("expected default capacity 16, got %d", s.Capacity)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"capacity", "capacity: 0", "capacity"},
		{"two kinds", `pipeline: [{filter: "true", head: 1}]`, "exactly one"},
		{"no kind", `pipeline: [{}]`, "exactly one"},
		{"negative window", `pipeline: [{tail: -1}]`, "negative"},
		{"unknown op", `ops: [{op: shuffle}]`, "unknown diff op"},
		{"nested tx", `ops: [{op: tx, ops: [{op: abort}]}]`, "nested"},
		{"ops on plain op", `ops: [{op: clear, ops: [{op: clear}]}]`, "only tx and abort"},
		{"bad yaml", "ops: [", "failed to parse"},
	}
	for _, tc := range tests {
		_, err := ParseScript([]byte(tc.script))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRunScript(t *testing.T) {
	s, err := ParseScript([]byte(testScript))
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	got, err := runScript(context.Background(), s, discard(), &printer{w: out, format: formatYAML})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"10", "30", "50"}, strs(got)); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
	// push_back 4 and the abort derive nothing
	if n := strings.Count(out.String(), "--- #"); n != 4 {
		t.Errorf("expected 3 batches and the values, got %d sections:\n%s", n, out)
	}
	if !strings.Contains(out.String(), "--- # 2 insert") {
		t.Errorf("missing insert batch:\n%s", out)
	}
}

func TestRunScriptJSON(t *testing.T) {
	s, err := ParseScript([]byte(testScript))
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	if _, err := runScript(context.Background(), s, discard(), &printer{w: out, format: formatJSON}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", lines)
	}
	var first []map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || first[0]["op"] != "push_back" {
		t.Errorf("unexpected first batch %v", first)
	}
}

func TestRunScriptPatch(t *testing.T) {
	s, err := ParseScript([]byte(`
pipeline:
- tail: 2
ops:
- {op: append, values: [1, 2, 3]}
- {op: set, index: 1, value: 7}
- {op: set, index: 2, value: 8}
- {op: remove, index: 0}
- {op: truncate, length: 1}
- {op: reset, values: [4, 5, 6]}
`))
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	if _, err := runScript(context.Background(), s, discard(), &printer{w: out, format: formatPatch}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	doc := []byte("[]")
	for _, line := range lines[:len(lines)-1] {
		var ops []jsondiff.Operation
		if err := json.Unmarshal([]byte(line), &ops); err != nil {
			t.Fatal(err)
		}
		if doc, err = jsondiff.Apply(doc, ops); err != nil {
			t.Fatalf("applying %s: %v", line, err)
		}
	}
	var got, want []int
	if err := json.Unmarshal(doc, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &want); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{5, 6}, want); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patched document (-want +got):\n%s", diff)
	}
}

func TestRunScriptBadIndex(t *testing.T) {
	s, err := ParseScript([]byte(`ops: [{op: push_back, value: 1}, {op: remove, index: 3}]`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = runScript(context.Background(), s, discard(), &printer{w: io.Discard, format: formatYAML})
	if err == nil || !strings.Contains(err.Error(), "op 1 (remove)") {
		t.Errorf("expected out of range error for op 1, got %v", err)
	}
}

func TestRunScriptBadExpr(t *testing.T) {
	s, err := ParseScript([]byte(`pipeline: [{filter: "value +"}]`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = runScript(context.Background(), s, discard(), &printer{w: io.Discard, format: formatYAML})
	if err == nil || !strings.Contains(err.Error(), "pipeline stage 0") {
		t.Errorf("expected compile error, got %v", err)
	}
}

func TestRunScriptSort(t *testing.T) {
	tests := []struct {
		name  string
		stage string
	}{
		{"sort", `sort: "a > b"`},
		{"sortkey", `sortkey: "0 - value"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseScript([]byte(`
initial: [3, 1, 2]
pipeline:
- ` + tc.stage + `
ops:
- {op: push_back, value: 4}
- {op: set, index: 1, value: 0}
- {op: remove, index: 0}
`))
			if err != nil {
				t.Fatal(err)
			}
			out := &bytes.Buffer{}
			got, err := runScript(context.Background(), s, discard(), &printer{w: out, format: formatYAML})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"4", "2", "0"}, strs(got)); diff != "" {
				t.Errorf("values (-want +got):\n%s", diff)
			}
			if n := strings.Count(out.String(), "--- #"); n != 4 {
				t.Errorf("expected 3 batches and the values, got %d sections:\n%s", n, out)
			}
		})
	}
}
