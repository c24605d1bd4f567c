package main

import (
	"encoding/json"
	"testing"

	"dispatch/internal/ipc"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"queued":    "Queued",
		"running":   "Running",
		"completed": "Completed",
		" failed ":  "Failed",
		"":          "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Errorf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildQueueListRowsSortsByCreation(t *testing.T) {
	jobs := []ipc.Job{
		{ID: "late", Status: "queued", CreatedAt: "2026-03-04T12:30:02.000Z"},
		{ID: "early", Status: "completed", CreatedAt: "2026-03-04T12:30:00.000Z"},
	}
	rows := buildQueueListRows(jobs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "early" || rows[1][0] != "late" {
		t.Fatalf("unexpected order: %v", rows)
	}
	if rows[0][1] != "Completed" {
		t.Errorf("status cell = %q", rows[0][1])
	}
}

func TestFormatParamsSummary(t *testing.T) {
	raw := json.RawMessage(`{"kind":"transcode","input":"/media/a.mkv"}`)
	got := formatParamsSummary(raw)
	if got != "input=/media/a.mkv kind=transcode" {
		t.Errorf("summary = %q", got)
	}
	if got := formatParamsSummary(nil); got != "-" {
		t.Errorf("empty summary = %q", got)
	}
	if got := formatParamsSummary(json.RawMessage("not json")); got != "-" {
		t.Errorf("bad json summary = %q", got)
	}
}

func TestBuildQueueStatsRows(t *testing.T) {
	rows := buildQueueStatsRows(map[string]int{"queued": 2, "failed": 1})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Failed" || rows[0][1] != "1" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
}
