package cfgfile

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

const tryCatch = `
;; try/catch that rejoins at $join
(func $try
  (block $entry entry (br $call))
  (block $call (invoke $dispatch) (br $join))
  (block $dispatch eh-switch (handler $catch))
  (block $catch eh-entry eh-exit (br $join) (data "catch (...)"))
  (block $join (br 5))
  (block $ret))

(func $chain (block (br 1)) (block))
`

func mustParse(t *testing.T, src string) []Function {
	t.Helper()
	fns, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return fns
}

func succLabels(g *region.Graph, ids []region.ID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, g.Label(id))
	}
	return out
}

func TestParse(t *testing.T) {
	fns := mustParse(t, tryCatch)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}

	fn, err := Find(fns, "try")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	g := fn.Graph
	if g.Len() != 6 {
		t.Fatalf("expected 6 blocks, got %d", g.Len())
	}
	if got := g.Label(fn.Entrypoint()); got != "entry" {
		t.Fatalf("expected entry block, got %q", got)
	}

	call, _ := g.Lookup("call")
	r := g.Region(call)
	if got := succLabels(g, r.InvokeSuccessors()); !slices.Equal(got, []string{"dispatch"}) {
		t.Fatalf("expected invoke [dispatch], got %v", got)
	}
	if got := succLabels(g, r.NormalSuccessors()); !slices.Equal(got, []string{"join"}) {
		t.Fatalf("expected br [join], got %v", got)
	}

	catch, _ := g.Lookup("catch")
	if got := g.Region(catch).Flags(); got != region.FlagExceptionHandlerEntrypoint|region.FlagExceptionHandlerExitpoint {
		t.Fatalf("expected eh-entry|eh-exit, got %s", got)
	}
	if got := g.Region(catch).Data(); got != "catch (...)" {
		t.Fatalf("expected data, got %v", got)
	}

	join, _ := g.Lookup("join")
	if got := succLabels(g, g.Region(join).NormalSuccessors()); !slices.Equal(got, []string{"ret"}) {
		t.Fatalf("expected index reference to resolve to ret, got %v", got)
	}

	chain, err := Find(fns, "chain")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if chain.Entrypoint() != 0 {
		t.Fatalf("expected first block as default entry, got %d", chain.Entrypoint())
	}
	if err := region.Validate(fn.Graph); err != nil {
		t.Fatalf("parsed graph should validate: %v", err)
	}
}

func TestParse_UnnamedFunction(t *testing.T) {
	fns := mustParse(t, "(func (block)) (func (block))")
	if fns[0].Name != "func0" || fns[1].Name != "func1" {
		t.Fatalf("expected func0 and func1, got %q and %q", fns[0].Name, fns[1].Name)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "no functions"},
		{"not a func", "(module)", `expected "func"`},
		{"unknown flag", "(func (block $a hot))", `unknown block flag "hot"`},
		{"unknown clause", "(func (block $a (jump $a)))", `unknown clause "jump"`},
		{"unknown target", "(func (block $a (br $b)))", "unknown normal target b"},
		{"index out of range", "(func (block $a (br 3)))", "unknown normal target #3"},
		{"duplicate block", "(func (block $a) (block $a))", "duplicate block name"},
		{"two entries", "(func (block $a entry) (block $b entry))", "second entry block"},
		{"duplicate function", "(func $f (block)) (func $f (block))", `duplicate function "f"`},
		{"no blocks", "(func $f)", "function has no blocks"},
		{"conflicting edge", "(func (block $a (br $b) (invoke $b)) (block $b))", "bad edge"},
		{"illegal rune", "(func (block $a (br @)))", "expected block reference"},
		{"truncated", "(func (block $a (br $a", "unexpected end of input"},
		{"line numbers", "(func\n(block $a)\n(block $b (br $c)))", "line 3"},
		{"bad escape", `(func (block $a (data "\q")))`, "bad data string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, err.Error())
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseParse {
				t.Fatalf("expected parse phase error, got %v", err)
			}
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	fns := mustParse(t, tryCatch)
	again := mustParse(t, Format(fns))
	if len(again) != len(fns) {
		t.Fatalf("expected %d functions, got %d", len(fns), len(again))
	}
	for i := range fns {
		assertSameGraph(t, fns[i].Graph, again[i].Graph)
	}
}

func TestFormat_DataEscapes(t *testing.T) {
	for _, data := range []string{
		"a\x01b\u00e9\"q\n",
		`back\slash`,
		"tab\there\x7f",
	} {
		b := region.NewBuilder()
		id := b.AddBlock("a", region.FlagNone)
		if err := b.SetData(id, data); err != nil {
			t.Fatalf("SetData: %v", err)
		}
		g, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		again := mustParse(t, Format([]Function{{Name: "f", Graph: g}}))
		if got := again[0].Graph.Region(0).Data(); got != data {
			t.Fatalf("expected data %q, got %q", data, got)
		}
	}

	fns := mustParse(t, "(func (block (data \"two\nlines\")))")
	if got := fns[0].Graph.Region(0).Data(); got != "two\nlines" {
		t.Fatalf("expected typed line break to survive, got %q", got)
	}
}

func assertSameGraph(t *testing.T, a, b *region.Graph) {
	t.Helper()
	if a.Len() != b.Len() {
		t.Fatalf("expected %d blocks, got %d", a.Len(), b.Len())
	}
	if a.Entrypoint() != b.Entrypoint() {
		t.Fatalf("expected entry %d, got %d", a.Entrypoint(), b.Entrypoint())
	}
	for id := region.ID(0); int(id) < a.Len(); id++ {
		ra, rb := a.Region(id), b.Region(id)
		if ra.Flags() != rb.Flags() {
			t.Fatalf("block %d: expected flags %s, got %s", id, ra.Flags(), rb.Flags())
		}
		if !slices.Equal(ra.NormalSuccessors(), rb.NormalSuccessors()) ||
			!slices.Equal(ra.InvokeSuccessors(), rb.InvokeSuccessors()) ||
			!slices.Equal(ra.HandlerSuccessors(), rb.HandlerSuccessors()) {
			t.Fatalf("block %d: edges differ", id)
		}
		if ra.Data() != rb.Data() {
			t.Fatalf("block %d: expected data %v, got %v", id, ra.Data(), rb.Data())
		}
	}
}

func TestParseYAML(t *testing.T) {
	src := `
functions:
  - name: cleanup
    blocks:
      - {name: b0, entry: true, succ: [b2], invoke: [b1]}
      - {name: b1, flags: [cleanup-entry, cleanup-exit], data: "dtor"}
      - {name: b2}
`
	fns, err := ParseYAML([]byte(src))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	g := fns[0].Graph
	if fns[0].Name != "cleanup" || g.Len() != 3 {
		t.Fatalf("expected cleanup with 3 blocks, got %q with %d", fns[0].Name, g.Len())
	}
	if got := g.Region(0).InvokeTarget(); got != 1 {
		t.Fatalf("expected invoke target 1, got %d", got)
	}
	if !g.Region(1).IsSelfContainedCleanup() {
		t.Fatalf("expected self-contained cleanup, got %s", g.Region(1).Flags())
	}

	tree, err := region.Lift(g, fns[0].Entrypoint(), region.Config{})
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if !tree.Structured() {
		t.Fatal("expected structured cleanup")
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "empty YAML document"},
		{"no functions", "functions: []", "no functions"},
		{"unknown key", "functions: [{name: f, blocks: [{name: a, next: [a]}]}]", "parse graph YAML"},
		{"unknown flag", "functions: [{name: f, blocks: [{name: a, flags: [hot]}]}]", `unknown block flag "hot"`},
		{"unknown target", "functions: [{name: f, blocks: [{name: a, succ: [b]}]}]", "unknown normal target b"},
		{"percent in name", `functions: [{name: f, blocks: [{name: a, succ: ["b%d"]}]}]`, "unknown normal target b%d"},
		{"percent in second entry", `functions: [{name: f, blocks: [{name: "a%s", entry: true}, {name: b, entry: true}]}]`, "second entry block, first is a%s"},
		{"duplicate function", "functions: [{name: f, blocks: [{name: a}]}, {name: f, blocks: [{name: a}]}]", "duplicate function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.src))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestMarshalYAML_RoundTrip(t *testing.T) {
	fns := mustParse(t, tryCatch)
	data, err := MarshalYAML(fns)
	if err != nil {
		t.Fatalf("MarshalYAML: %v", err)
	}
	again, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v\n%s", err, data)
	}
	for i := range fns {
		assertSameGraph(t, fns[i].Graph, again[i].Graph)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "try.cfg")
	if err := os.WriteFile(text, []byte(tryCatch), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := MarshalYAML(mustParse(t, tryCatch))
	if err != nil {
		t.Fatal(err)
	}
	yml := filepath.Join(dir, "try.YAML")
	if err := os.WriteFile(yml, data, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{text, yml} {
		fns, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if len(fns) != 2 {
			t.Fatalf("Load(%s): expected 2 functions, got %d", path, len(fns))
		}
	}

	if _, err := Load(filepath.Join(dir, "missing.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFind(t *testing.T) {
	fns := mustParse(t, tryCatch)
	if _, err := Find(fns, ""); err == nil {
		t.Fatal("expected error selecting from several functions without a name")
	}
	var e *errors.Error
	_, err := Find(fns, "nope")
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	single := mustParse(t, "(func $only (block))")
	fn, err := Find(single, "")
	if err != nil || fn.Name != "only" {
		t.Fatalf("expected the only function, got %q (%v)", fn.Name, err)
	}
}
