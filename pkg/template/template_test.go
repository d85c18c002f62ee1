package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/varekai/stackup/internal/config"
)

func TestServiceTemplates(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		tt       TemplateType
		name     string
		contains []string
	}{
		{TypeWeb, "frontend", []string{`name = "frontend"`, `type = "http"`, "expect_status = 200"}},
		{TypeAPI, "api", []string{`container = "stack-api"`, `depends_on = ["db"]`, "mandatory = true"}},
		{TypeWorker, "jobs", []string{`type = "exec"`, "command = "}},
		{TypeDatabase, "db", []string{`start_timeout = "120s"`, "mandatory = true"}},
		{TypeSimple, "cache", []string{`name = "cache"`, `container = "stack-cache"`}},
	}

	for _, tc := range tests {
		t.Run(string(tc.tt), func(t *testing.T) {
			out, err := g.Service(tc.tt, tc.name)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(out, want) {
					t.Errorf("template missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestServiceUnknownType(t *testing.T) {
	if _, err := NewGenerator().Service("mystery", "x"); err == nil {
		t.Fatal("expected error for unknown template type")
	}
}

func TestStarterParsesAndFailsValidation(t *testing.T) {
	g := NewGenerator()
	out, err := g.Starter([]ServiceDef{
		{Name: "db", Type: TypeDatabase},
		{Name: "api", Type: TypeAPI},
	})
	if err != nil {
		t.Fatalf("starter: %v", err)
	}

	path := filepath.Join(t.TempDir(), "stack.toml")
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated starter must parse: %v", err)
	}
	if len(c.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(c.Services))
	}

	// Placeholder credentials must be caught before any bring-up.
	ok, _, placeholders := c.Validate()
	if ok {
		t.Fatal("starter config with placeholders must not validate")
	}
	if len(placeholders) == 0 {
		t.Fatal("expected placeholder keys to be reported")
	}
}

func TestStarterOrderIsStable(t *testing.T) {
	g := NewGenerator()
	defs := []ServiceDef{
		{Name: "db", Type: TypeDatabase},
		{Name: "api", Type: TypeAPI},
		{Name: "jobs", Type: TypeWorker},
	}
	out, err := g.Starter(defs)
	if err != nil {
		t.Fatalf("starter: %v", err)
	}
	last := -1
	for _, def := range defs {
		idx := strings.Index(out, "name = \""+def.Name+"\"")
		if idx < 0 {
			t.Fatalf("service %s missing", def.Name)
		}
		if idx < last {
			t.Fatalf("service %s out of order", def.Name)
		}
		last = idx
	}
}
