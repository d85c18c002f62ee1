package graph

import (
	"errors"
	"testing"
)

func build(t *testing.T, nodes ...Node) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		if err := g.Add(n); err != nil {
			t.Fatalf("add %s: %v", n.Name, err)
		}
	}
	return g
}

func waveOf(waves [][]string, name string) int {
	for i, w := range waves {
		for _, n := range w {
			if n == name {
				return i
			}
		}
	}
	return -1
}

func TestWavesOrdering(t *testing.T) {
	g := build(t,
		Node{Name: "postgres"},
		Node{Name: "nats"},
		Node{Name: "api", DependsOn: []string{"postgres", "nats"}},
		Node{Name: "worker", DependsOn: []string{"api"}},
		Node{Name: "metrics", DependsOn: []string{"postgres"}},
	)
	waves, err := g.Waves()
	if err != nil {
		t.Fatalf("waves: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d: %v", len(waves), waves)
	}
	// Every node strictly after all of its dependencies.
	deps := map[string][]string{
		"api":     {"postgres", "nats"},
		"worker":  {"api"},
		"metrics": {"postgres"},
	}
	for name, dd := range deps {
		for _, d := range dd {
			if waveOf(waves, name) <= waveOf(waves, d) {
				t.Fatalf("%s scheduled in wave %d, dependency %s in wave %d",
					name, waveOf(waves, name), d, waveOf(waves, d))
			}
		}
	}
}

func TestWavesDeclarationOrderTies(t *testing.T) {
	g := build(t,
		Node{Name: "b"},
		Node{Name: "a"},
		Node{Name: "c"},
	)
	waves, err := g.Waves()
	if err != nil {
		t.Fatalf("waves: %v", err)
	}
	if len(waves) != 1 {
		t.Fatalf("expected one wave, got %v", waves)
	}
	want := []string{"b", "a", "c"}
	for i, n := range waves[0] {
		if n != want[i] {
			t.Fatalf("tie-break order changed: got %v want %v", waves[0], want)
		}
	}
}

func TestWavesCycle(t *testing.T) {
	g := build(t,
		Node{Name: "a", DependsOn: []string{"b"}},
		Node{Name: "b", DependsOn: []string{"a"}},
		Node{Name: "lone"},
	)
	waves, err := g.Waves()
	if waves != nil {
		t.Fatalf("cycle must not yield a plan, got %v", waves)
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(ce.Remaining) != 2 {
		t.Fatalf("expected both cycle members reported, got %v", ce.Remaining)
	}
}

func TestSelfDependency(t *testing.T) {
	g := build(t, Node{Name: "a", DependsOn: []string{"a"}})
	if _, err := g.Waves(); err == nil {
		t.Fatal("self dependency must fail")
	}
}

func TestUnknownDependency(t *testing.T) {
	g := build(t, Node{Name: "a", DependsOn: []string{"ghost"}})
	if _, err := g.Waves(); err == nil {
		t.Fatal("unknown dependency must fail")
	}
}

func TestDuplicateNode(t *testing.T) {
	g := New()
	if err := g.Add(Node{Name: "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Add(Node{Name: "a"}); err == nil {
		t.Fatal("duplicate must fail")
	}
}

func TestDependents(t *testing.T) {
	g := build(t,
		Node{Name: "db"},
		Node{Name: "api", DependsOn: []string{"db"}},
		Node{Name: "cron", DependsOn: []string{"db"}},
	)
	deps := g.Dependents("db")
	if len(deps) != 2 || deps[0] != "api" || deps[1] != "cron" {
		t.Fatalf("unexpected dependents: %v", deps)
	}
}
