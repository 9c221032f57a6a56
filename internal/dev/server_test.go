package dev

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/filemux/filemux/internal/config"
	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/gateway"
	"github.com/filemux/filemux/pkg/router"
)

// newProject writes a config file and route files into a temp dir and loads
// the config.
func newProject(t *testing.T, configJSON string, files ...string) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.JSONFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}
	writeTree(t, root, files...)
	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return root, cfg
}

func TestServerHandler(t *testing.T) {
	root, cfg := newProject(t,
		`{"api": "api", "dev": {"watch": false}, "metrics": {"enabled": true}}`,
		"api/users/[id]/route.get.ts",
		"api/users/middleware.ts",
		"api/(admin)/users/[id]/route.delete.ts",
	)

	srv, err := NewServer(ServerOptions{Config: cfg, Registry: prometheus.NewRegistry(), Logger: discard})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	files, err := srv.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Load() = %v, want 3 files", files)
	}
	h := srv.Handler()

	t.Run("dispatch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var d gateway.Dispatch
		if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
			t.Fatal(err)
		}
		if d.Pattern != "/api/users/[id]" || d.Params.Get("id") != "42" {
			t.Errorf("Pattern, Params = %q, %v", d.Pattern, d.Params)
		}
		want := filepath.ToSlash(filepath.Join(root, "api", "users", "[id]", "route.get.ts"))
		if d.Handler.File != want {
			t.Errorf("Handler.File = %q, want %q", d.Handler.File, want)
		}
		if len(d.Middlewares) != 1 || !strings.HasSuffix(d.Middlewares[0], "/api/users/middleware.ts") {
			t.Errorf("Middlewares = %v", d.Middlewares)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("routes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RoutesPath, nil))
		var routes []router.Route
		if err := json.Unmarshal(rec.Body.Bytes(), &routes); err != nil {
			t.Fatalf("decoding routes: %v", err)
		}
		if len(routes) != 1 || routes[0].Pattern != "/api/users/[id]" {
			t.Fatalf("routes = %+v", routes)
		}
		if got := routes[0].Resource.Methods(); len(got) != 2 {
			t.Errorf("Methods() = %v, want DELETE and GET", got)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := rec.Body.String()
		if !strings.Contains(body, `filemux_http_requests_total{method="GET",pattern="/api/users/[id]",status="200"} 1`) {
			t.Errorf("metrics missing request counter:\n%s", body)
		}
	})

	t.Run("events disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, EventsPath, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404 without watch mode", rec.Code)
		}
	})
}

func TestServerLoadMissingAPIDir(t *testing.T) {
	_, cfg := newProject(t, `{"api": "routes"}`)
	srv, err := NewServer(ServerOptions{Config: cfg, Logger: discard})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Load(); !errors.HasCode(err, errors.CodeAPIDirMissing) {
		t.Errorf("Load() error = %v, want E103", err)
	}
}

func TestServerServe(t *testing.T) {
	_, cfg := newProject(t,
		`{"api": "api", "dev": {"debounce": "10ms"}}`,
		"api/route.ts",
	)
	srv, err := NewServer(ServerOptions{Config: cfg, Logger: discard})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Load(); err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	get := func(p string) int {
		resp, err := http.Get(base + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode
	}

	if code := get("/api"); code != http.StatusOK {
		t.Errorf("GET /api = %d, want 200", code)
	}

	// Give the watcher a moment to start, then add a route while serving.
	time.Sleep(50 * time.Millisecond)
	writeTree(t, filepath.Dir(cfg.APIPath()), "api/orders/route.post.ts")
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := srv.Routes().Lookup("/api/orders"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new route was not registered while serving")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestLoadRoutes(t *testing.T) {
	root, cfg := newProject(t, `{"api": "api"}`,
		"api/route.get.ts",
		"api/docs/[...path]/route.ts",
		"api/notes.md",
	)

	routes, files, err := LoadRoutes(cfg)
	if err != nil {
		t.Fatalf("LoadRoutes() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want the two route files", files)
	}
	res, ok := routes.Lookup("/api/docs/a/b")
	if !ok {
		t.Fatal("Lookup(/api/docs/a/b) failed")
	}
	if got := res.Params.Get("path"); got != "a/b" {
		t.Errorf("Params[path] = %q", got)
	}
	if !strings.HasPrefix(res.Resource[router.MethodAny][router.DefaultVersion].File, filepath.ToSlash(root)) {
		t.Errorf("handler file %q is not joined to the project root", res.Resource[router.MethodAny][router.DefaultVersion].File)
	}

	if _, _, err := LoadRoutes(config.New()); err == nil {
		t.Error("LoadRoutes() without an API directory should fail")
	}
}
