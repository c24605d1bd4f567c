package api_test

import (
	"encoding/json"
	"testing"
	"time"

	"dispatch/internal/api"
	"dispatch/internal/queue"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, time.March, 4, 12, 30, 0, 0, time.UTC)
	processed := created.Add(5 * time.Second)
	job := &queue.Job{
		ID:          "job-1",
		Status:      queue.StatusCompleted,
		Params:      map[string]any{"kind": "transcode", "input": "/media/a.mkv"},
		CreatedAt:   created,
		ProcessedAt: &processed,
	}

	dto := api.FromJob(job)
	if dto.ID != "job-1" || dto.Status != string(queue.StatusCompleted) {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.CreatedAt != "2026-03-04T12:30:00.000Z" {
		t.Errorf("createdAt = %q", dto.CreatedAt)
	}
	if dto.ProcessedAt != "2026-03-04T12:30:05.000Z" {
		t.Errorf("processedAt = %q", dto.ProcessedAt)
	}
	var params map[string]any
	if err := json.Unmarshal(dto.Params, &params); err != nil {
		t.Fatalf("params round trip: %v", err)
	}
	if params["kind"] != "transcode" {
		t.Errorf("params[kind] = %v", params["kind"])
	}
}

func TestFromJobNilAndZero(t *testing.T) {
	if dto := api.FromJob(nil); dto.ID != "" {
		t.Fatalf("expected zero dto, got %+v", dto)
	}
	dto := api.FromJob(&queue.Job{ID: "job-2", Status: queue.StatusQueued})
	if dto.CreatedAt != "" || dto.ProcessedAt != "" || dto.Params != nil {
		t.Fatalf("expected empty optional fields, got %+v", dto)
	}
}

func TestMergeQueueStats(t *testing.T) {
	stats := api.MergeQueueStats(map[queue.Status]int{
		queue.StatusQueued: 3,
		queue.StatusFailed: 1,
	})
	if stats["queued"] != 3 || stats["failed"] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
