package project

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/rastermill/rastermill/pkg/dataflow"
)

type makeKind struct{}

func (makeKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "make",
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
		Params:  []dataflow.ParamSpec{{Name: "size", Default: 4}},
	}
}

func (makeKind) Evaluate(*dataflow.EvalContext, dataflow.Inputs, dataflow.Params) (dataflow.Outputs, error) {
	return dataflow.Outputs{}, nil
}

type useKind struct{}

func (useKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:   "use",
		Inputs: []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
	}
}

func (useKind) Evaluate(*dataflow.EvalContext, dataflow.Inputs, dataflow.Params) (dataflow.Outputs, error) {
	return dataflow.Outputs{}, nil
}

func testRegistry() *dataflow.Registry {
	reg := dataflow.NewRegistry()
	reg.Register(makeKind{})
	reg.Register(useKind{})
	return reg
}

func buildGraph(t *testing.T, reg *dataflow.Registry) *dataflow.Graph {
	t.Helper()
	g := dataflow.New(reg)
	if err := g.AddNode(dataflow.Node{ID: 1, Kind: "make", Params: dataflow.Params{"size": 8}}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(dataflow.Node{ID: 2, Kind: "use", Name: "sink A"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.Connect(dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return g
}

func TestNewDefaults(t *testing.T) {
	p := New("demo")
	if _, err := uuid.Parse(p.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", p.ID, err)
	}
	if p.Schema != SchemaVersion {
		t.Errorf("Schema = %d, want %d", p.Schema, SchemaVersion)
	}
	if p.Mode != "auto" {
		t.Errorf("Mode = %q, want %q", p.Mode, "auto")
	}
}

func TestRoundTripThroughJSON(t *testing.T) {
	reg := testRegistry()
	g := buildGraph(t, reg)

	p := New("demo")
	p.Encode(g)
	if p.UpdatedAt.IsZero() {
		t.Error("Encode should stamp UpdatedAt")
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var q Project
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	g2, err := q.Decode(reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g2.NodeCount() != 2 || g2.EdgeCount() != 1 {
		t.Fatalf("decoded graph has %d nodes / %d edges, want 2 / 1",
			g2.NodeCount(), g2.EdgeCount())
	}

	n1, ok := g2.Node(1)
	if !ok {
		t.Fatal("node 1 missing after decode")
	}
	if got := n1.Params.Int("size", 0); got != 8 {
		t.Errorf("node 1 size param = %d, want 8 (JSON numbers decode as float64)", got)
	}
	n2, ok := g2.Node(2)
	if !ok {
		t.Fatal("node 2 missing after decode")
	}
	if n2.Name != "sink A" {
		t.Errorf("node 2 name = %q, want %q", n2.Name, "sink A")
	}
	if edges := g2.Edges(); edges[0] != (dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"}) {
		t.Errorf("edge = %+v, want 1.out -> 2.in", edges[0])
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	for _, schema := range []int{0, 2} {
		p := &Project{ID: "x", Schema: schema}
		if _, err := p.Decode(testRegistry()); !errors.Is(err, ErrSchema) {
			t.Errorf("Decode(schema=%d) error = %v, want %v", schema, err, ErrSchema)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	p := &Project{
		ID:     "x",
		Schema: SchemaVersion,
		Nodes:  []NodeDoc{{ID: 1, Kind: "nope"}},
	}
	_, err := p.Decode(testRegistry())
	if !errors.Is(err, dataflow.ErrUnknownKind) {
		t.Fatalf("Decode() error = %v, want %v", err, dataflow.ErrUnknownKind)
	}
}

func TestDecodeDanglingEdge(t *testing.T) {
	p := &Project{
		ID:     "x",
		Schema: SchemaVersion,
		Nodes:  []NodeDoc{{ID: 1, Kind: "make"}},
		Edges:  []EdgeDoc{{From: 1, Output: "out", To: 9, Input: "in"}},
	}
	_, err := p.Decode(testRegistry())
	if !errors.Is(err, dataflow.ErrUnknownNode) {
		t.Fatalf("Decode() error = %v, want %v", err, dataflow.ErrUnknownNode)
	}
}

func TestWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.json")

	p := New("demo")
	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p.Name = "renamed"
	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "renamed")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "demo.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contains %v, want only demo.json", names)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	p := New("demo")
	p.Encode(buildGraph(t, testRegistry()))
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != p.ID || got.Name != "demo" || len(got.Nodes) != 2 {
		t.Errorf("Load() = %+v, want saved project", got)
	}

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want %v", err, ErrNotFound)
	}

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, p.ID); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
	if _, err := s.Load(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestFileStoreRejectsEmptyID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Save(context.Background(), &Project{}); err == nil {
		t.Fatal("Save of project without ID should fail")
	}
}
