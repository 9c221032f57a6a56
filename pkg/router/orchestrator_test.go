package router

import (
	"reflect"
	"testing"
)

func TestOrchestratorAddGet(t *testing.T) {
	o := NewOrchestrator()
	o.Add("/api/agent1/prompt.md")
	o.Add("/api/agent2/prompt.md")

	want := map[string]string{
		"agent1": "/api/agent1/prompt.md",
		"agent2": "/api/agent2/prompt.md",
	}
	if got := o.Get("/api"); !reflect.DeepEqual(got, want) {
		t.Errorf("Get(/api) = %v, want %v", got, want)
	}
}

func TestOrchestratorRemove(t *testing.T) {
	o := NewOrchestrator()
	o.Add("/api/agent1/prompt.md")
	o.Add("/api/agent2/prompt.md")

	if !o.Remove("/api/agent1/prompt.md") {
		t.Fatal("Remove() = false")
	}
	want := map[string]string{"agent2": "/api/agent2/prompt.md"}
	if got := o.Get("/api"); !reflect.DeepEqual(got, want) {
		t.Errorf("Get(/api) = %v, want %v", got, want)
	}

	o.Remove("/api/agent2/prompt.md")
	if got := o.Get("/api"); len(got) != 0 {
		t.Errorf("Get(/api) = %v, want empty", got)
	}
}

func TestOrchestratorEmpty(t *testing.T) {
	o := NewOrchestrator()
	got := o.Get("/api")
	if got == nil || len(got) != 0 {
		t.Errorf("Get(/api) = %#v, want empty map", got)
	}
}

func TestOrchestratorDynamicSegments(t *testing.T) {
	o := NewOrchestrator()
	o.Add("/api/[agent1]/prompt.md")
	o.Add("/api/[...agent2]/prompt.md")
	o.Add("/api/[[...agent3]]/prompt.md")

	want := map[string]string{
		"agent1": "/api/[agent1]/prompt.md",
		"agent2": "/api/[...agent2]/prompt.md",
		"agent3": "/api/[[...agent3]]/prompt.md",
	}
	if got := o.Get("/api"); !reflect.DeepEqual(got, want) {
		t.Errorf("Get(/api) = %v, want %v", got, want)
	}
}

func TestOrchestratorAgentOutlivesFile(t *testing.T) {
	tests := []struct {
		name   string
		add    []string
		remove []string
		want   string
	}{
		{
			name: "first file wins",
			add:  []string{"/api/stocks/route.get.ts", "/api/stocks/route.post.ts"},
			want: "/api/stocks/route.get.ts",
		},
		{
			name:   "agent moves to a remaining file",
			add:    []string{"/api/stocks/prompt.md", "/api/stocks/route.ts"},
			remove: []string{"/api/stocks/prompt.md"},
			want:   "/api/stocks/route.ts",
		},
		{
			name:   "removing a later file keeps the first",
			add:    []string{"/api/stocks/prompt.md", "/api/stocks/route.ts"},
			remove: []string{"/api/stocks/route.ts"},
			want:   "/api/stocks/prompt.md",
		},
		{
			name:   "last file removes the agent",
			add:    []string{"/api/stocks/prompt.md", "/api/stocks/route.ts"},
			remove: []string{"/api/stocks/route.ts", "/api/stocks/prompt.md"},
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator()
			for _, f := range tt.add {
				if !o.Add(f) {
					t.Errorf("Add(%q) = false, want true", f)
				}
			}
			for _, f := range tt.remove {
				if !o.Remove(f) {
					t.Errorf("Remove(%q) = false, want true", f)
				}
			}
			if got := o.Get("/api")["stocks"]; got != tt.want {
				t.Errorf("stocks = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrchestratorDuplicateAndUnknown(t *testing.T) {
	o := NewOrchestrator()
	o.Add("/api/stocks/route.get.ts")
	if o.Add("/api/stocks/route.get.ts") {
		t.Error("Add() of a tracked file = true, want false")
	}
	if o.Remove("/api/stocks/route.post.ts") {
		t.Error("Remove() of a non-registered file = true, want false")
	}
	if got := o.Get("/api")["stocks"]; got != "/api/stocks/route.get.ts" {
		t.Errorf("stocks = %q", got)
	}
}

func TestOrchestratorTopLevelAgents(t *testing.T) {
	o := NewOrchestrator()
	if o.Add("/prompt.md") {
		t.Error("file at the root has no parent directory and should be skipped")
	}
	o.Add("/api/prompt.md")
	if got := o.Get("/"); got["api"] != "/api/prompt.md" {
		t.Errorf("Get(/) = %v", got)
	}
}

func TestOrchestratorSnapshot(t *testing.T) {
	o := NewOrchestrator()
	o.Add("/api/a/prompt.md")
	before := o.Get("/api")
	o.Add("/api/b/prompt.md")

	if len(before) != 1 {
		t.Errorf("earlier result changed: %v", before)
	}
}
