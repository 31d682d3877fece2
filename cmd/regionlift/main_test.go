package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/regionlift/region"
	"github.com/wippyai/regionlift/treeenc"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLiftCmd_Text(t *testing.T) {
	out, err := execute(t, "lift", "--no-progress", "testdata/loop.cfg")
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	if !strings.HasPrefix(out, "func loop (structured,") {
		t.Fatalf("unexpected header in %q", out)
	}
	for _, want := range []string{"entry", "head", "body", "exit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLiftCmd_MultipleFiles(t *testing.T) {
	out, err := execute(t, "lift", "testdata/loop.cfg", "testdata/funcs.yaml")
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	for _, want := range []string{
		"func testdata/loop.cfg:loop (structured",
		"func testdata/funcs.yaml:try (structured",
		"func testdata/funcs.yaml:goto (unstructured",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLiftCmd_CBORFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cbor")
	if _, err := execute(t, "lift", "--format", "cbor", "-o", path, "testdata/funcs.yaml"); err != nil {
		t.Fatalf("lift: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	docs, err := treeenc.UnmarshalCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalCBOR: %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "try" || docs[1].Name != "goto" {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if !docs[0].Structured || docs[1].Structured {
		t.Fatal("expected try structured and goto unstructured")
	}
}

func TestLiftCmd_Errors(t *testing.T) {
	if _, err := execute(t, "lift", "--format", "dot", "testdata/loop.cfg"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := execute(t, "lift", "testdata/missing.cfg"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := execute(t, "lift"); err == nil {
		t.Fatal("expected error without files")
	}
	if _, err := execute(t, "--log-level", "loud", "lift", "testdata/loop.cfg"); err == nil {
		t.Fatal("expected error for bad log level")
	}
}

func TestEmitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.wasm")
	if _, err := execute(t, "emit", "testdata/loop.cfg", "-o", path); err != nil {
		t.Fatalf("emit: %v", err)
	}
	bin, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(bin, []byte("\x00asm")) {
		t.Fatalf("expected wasm magic, got %x", bin[:4])
	}

	if _, err := execute(t, "emit", "testdata/funcs.yaml"); err == nil {
		t.Fatal("expected error when a multi-function file has no -f")
	}
}

func TestRunCmd(t *testing.T) {
	for _, args := range [][]string{
		{"run", "testdata/loop.cfg", "--seed", "3"},
		{"run", "testdata/funcs.yaml", "-f", "try"},
		{"run", "testdata/funcs.yaml", "-f", "goto", "--seed", "5"},
	} {
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(out, "ok: ") || !strings.HasPrefix(out, "trace: ") {
			t.Fatalf("%v: unexpected output %q", args, out)
		}
	}
}

func TestRunCmd_Fuel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spin.cfg")
	if err := os.WriteFile(path, []byte("(func $spin (block $a (br $b)) (block $b (br $a)))"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", path, "--fuel", "6")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "trace: a b a b a b\n") || !strings.Contains(out, "fuel exhausted after 6 visits") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "regionlift version "+Version+"\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestBrowseModel(t *testing.T) {
	fn, err := loadFunction("testdata/loop.cfg", "")
	if err != nil {
		t.Fatal(err)
	}
	var levels []region.Level
	tree, err := region.Lift(fn.Graph, fn.Entrypoint(), region.Config{
		OnLevel: func(l region.Level) { levels = append(levels, l) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != tree.Levels()+1 {
		t.Fatalf("expected %d levels, got %d", tree.Levels()+1, len(levels))
	}

	m := newBrowseModel(fn.Name, tree, levels)
	if m.View() != "Loading..." {
		t.Fatal("expected loading view before the first resize")
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(m.View(), "level 0/") {
		t.Fatalf("expected level 0 view, got:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.index != 1 {
		t.Fatalf("expected level 1, got %d", m.index)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	if m.index != len(levels)-1 {
		t.Fatalf("expected last level, got %d", m.index)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.index != len(levels)-1 {
		t.Fatal("stepping past the last level should be ignored")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.index != len(levels)-2 {
		t.Fatalf("expected level %d, got %d", len(levels)-2, m.index)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
