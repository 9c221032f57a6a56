package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/manifest"
	"github.com/filemux/filemux/pkg/router"
)

func newProject(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	root := newProject(t,
		"api/users/[id]/route.get.ts",
		"api/users/[id]/@v2/route.get.ts",
		"api/docs/[...path]/route.ts",
	)

	out, err := run(t, "routes", "-C", root)
	if err != nil {
		t.Fatalf("routes error = %v", err)
	}
	for _, want := range []string{"PATTERN", "/api/users/[id]", "v2", "/api/docs/[...path]", "ANY"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "routes", "-C", root, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var routes []router.Route
	if err := json.Unmarshal([]byte(out), &routes); err != nil {
		t.Fatalf("routes --json is not JSON: %v", err)
	}
	if len(routes) != 2 {
		t.Errorf("routes = %d, want 2", len(routes))
	}
}

func TestLookupCommand(t *testing.T) {
	root := newProject(t, "api/users/[id]/route.get.ts", "api/middleware.ts")

	out, err := run(t, "lookup", "-C", root, "/api//users/42/")
	if err != nil {
		t.Fatalf("lookup error = %v", err)
	}
	var res router.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("lookup output is not JSON: %v\n%s", err, out)
	}
	if res.Pattern != "/api/users/[id]" || res.Params.Get("id") != "42" {
		t.Errorf("Pattern, Params = %q, %v", res.Pattern, res.Params)
	}
	if len(res.Middlewares) != 1 {
		t.Errorf("Middlewares = %v", res.Middlewares)
	}

	if _, err := run(t, "lookup", "-C", root, "/api/orders"); !errors.HasCode(err, errors.CodeRouteNotFound) {
		t.Errorf("lookup miss error = %v, want E200", err)
	}
	if _, err := run(t, "lookup", "-C", root, "/../etc"); !errors.HasCode(err, errors.CodeInvalidPath) {
		t.Errorf("lookup bad path error = %v, want E203", err)
	}
}

func TestCheckCommand(t *testing.T) {
	root := newProject(t, "api/users/[id]/route.ts")
	if _, err := run(t, "check", "-C", root); err != nil {
		t.Errorf("check error = %v", err)
	}

	root = newProject(t, "api/(a)/users/route.get.ts", "api/(b)/users/route.get.ts")
	out, err := run(t, "check", "-C", root)
	if err == nil {
		t.Error("check should fail on duplicate handlers")
	}
	if !strings.Contains(out, "(a)/users/route.get.ts") {
		t.Errorf("check output should name the files:\n%s", out)
	}
}

func TestBuildCommand(t *testing.T) {
	root := newProject(t,
		"api/agents/orchestrator.ts",
		"api/agents/search/prompt.md",
		"api/agents/search/tool.web.ts",
	)
	output := filepath.Join(root, "dist", "routes.json")

	if _, err := run(t, "build", "-C", root, "--output", output); err != nil {
		t.Fatalf("build error = %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	route, ok := m.Lookup("/api/agents")
	if !ok {
		t.Fatal("manifest has no /api/agents route")
	}
	if _, ok := route.Agents["search"]; !ok {
		t.Errorf("Agents = %v, want search", route.Agents)
	}
}

func TestMissingAPIDir(t *testing.T) {
	root := t.TempDir()
	if _, err := run(t, "routes", "-C", root); !errors.HasCode(err, errors.CodeAPIDirMissing) {
		t.Errorf("routes error = %v, want E103", err)
	}
	if _, err := run(t, "routes", "-C", root, "--api", "missing"); !errors.HasCode(err, errors.CodeAPIDirMissing) {
		t.Errorf("routes --api error = %v, want E103", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, want %q", out, version)
	}
}
