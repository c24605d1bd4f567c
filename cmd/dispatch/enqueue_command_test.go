package main

import "testing"

func TestBuildEnqueueParams(t *testing.T) {
	params, err := buildEnqueueParams("transcode", []string{"input=/media/a.mkv", "preset=fast"}, "")
	if err != nil {
		t.Fatalf("buildEnqueueParams: %v", err)
	}
	if params["kind"] != "transcode" || params["input"] != "/media/a.mkv" || params["preset"] != "fast" {
		t.Fatalf("unexpected params: %v", params)
	}
}

func TestBuildEnqueueParamsJSONOverridesFlags(t *testing.T) {
	params, err := buildEnqueueParams("", []string{"count=1"}, `{"count": 2, "nested": {"ok": true}}`)
	if err != nil {
		t.Fatalf("buildEnqueueParams: %v", err)
	}
	if params["count"] != float64(2) {
		t.Fatalf("count = %v", params["count"])
	}
	if _, ok := params["nested"].(map[string]any); !ok {
		t.Fatalf("nested = %v", params["nested"])
	}
}

func TestBuildEnqueueParamsRejectsBadInput(t *testing.T) {
	if _, err := buildEnqueueParams("", []string{"missing-equals"}, ""); err == nil {
		t.Fatal("expected error for malformed --param")
	}
	if _, err := buildEnqueueParams("", nil, `["not","an","object"]`); err == nil {
		t.Fatal("expected error for non-object --params-json")
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"status", "queue", "enqueue", "health", "bridge", "worker", "config"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == nil || cmd.Name() != name {
			t.Errorf("subcommand %q not wired: %v", name, err)
		}
	}
}
