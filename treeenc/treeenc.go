package treeenc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// Node is the exported form of one region.
type Node struct {
	Label      string   `yaml:"label" cbor:"1,keyasint"`
	Variant    string   `yaml:"variant" cbor:"2,keyasint"`
	Pattern    string   `yaml:"pattern,omitempty" cbor:"3,keyasint,omitempty"`
	Flags      []string `yaml:"flags,omitempty" cbor:"4,keyasint,omitempty"`
	Children   []*Node  `yaml:"children,omitempty" cbor:"5,keyasint,omitempty"`
	ID         int32    `yaml:"id" cbor:"6,keyasint"`
	Entrypoint bool     `yaml:"entrypoint,omitempty" cbor:"7,keyasint,omitempty"`
	// Protected marks the protected child of a protected composite.
	Protected bool `yaml:"protected,omitempty" cbor:"8,keyasint,omitempty"`
}

// Document is one lifted function.
type Document struct {
	Root       *Node  `yaml:"root" cbor:"4,keyasint"`
	Name       string `yaml:"name" cbor:"1,keyasint"`
	Levels     int    `yaml:"levels" cbor:"3,keyasint"`
	Structured bool   `yaml:"structured" cbor:"2,keyasint"`
}

// Options controls Build.
type Options struct {
	// Aliases keeps alias regions as nodes. By default they are collapsed
	// into the region they carry.
	Aliases bool
}

// Build exports the subtree rooted at id.
func Build(tree *region.Tree, id region.ID, opts Options) *Node {
	if tree.Region(id) == nil {
		return nil
	}

	type task struct {
		parent *Node
		id     region.ID
		prot   bool
	}

	var root *Node
	stack := []task{{id: id}}
	for len(stack) > 0 {
		tk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rid := tk.id
		if !opts.Aliases {
			rid = tree.Resolve(rid)
		}
		r := tree.Region(rid)
		n := &Node{
			ID:         int32(rid),
			Label:      tree.Label(rid),
			Variant:    r.Variant().String(),
			Flags:      r.Flags().Names(),
			Entrypoint: r.IsFunctionEntrypoint(),
			Protected:  tk.prot,
		}
		if r.Variant() == region.Composite {
			n.Pattern = r.Pattern().String()
		}
		if tk.parent == nil {
			root = n
		} else {
			tk.parent.Children = append(tk.parent.Children, n)
		}

		switch r.Variant() {
		case region.Alias:
			stack = append(stack, task{parent: n, id: r.Wrapped()})
		case region.Composite:
			prot, hasProt := r.Protected()
			children := r.Children()
			for i := len(children) - 1; i >= 0; i-- {
				c := children[i]
				stack = append(stack, task{parent: n, id: c, prot: hasProt && c == prot})
			}
		}
	}
	return root
}

// NewDocument exports a whole lifted function.
func NewDocument(name string, tree *region.Tree, opts Options) Document {
	return Document{
		Name:       name,
		Structured: tree.Structured(),
		Levels:     tree.Levels(),
		Root:       Build(tree, tree.Root(), opts),
	}
}

// Describe returns a one-line summary of a region.
func Describe(tree *region.Tree, id region.ID) string {
	r := tree.Region(id)
	if r == nil {
		return "#" + strconv.Itoa(int(id)) + ": no such region"
	}
	var b strings.Builder
	b.WriteString(tree.Label(id))
	switch r.Variant() {
	case region.BasicBlock:
		fmt.Fprintf(&b, ": block, %d succ", len(r.Successors()))
	case region.Alias:
		fmt.Fprintf(&b, ": alias of %s", tree.Label(r.Wrapped()))
	case region.Composite:
		fmt.Fprintf(&b, ": %d children, %d leaves", len(r.Children()), len(tree.Leaves(id)))
	}
	fmt.Fprintf(&b, ", flags %s", r.Flags())
	if r.IsFunctionEntrypoint() {
		b.WriteString(", entry")
	}
	return b.String()
}

// WriteText writes n as an indented outline, one region per line.
func WriteText(w io.Writer, n *Node) error {
	type frame struct {
		n     *Node
		depth int
	}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.n == nil {
			continue
		}
		if _, err := io.WriteString(w, textLine(f.n, f.depth)); err != nil {
			return err
		}
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.Children[i], f.depth + 1})
		}
	}
	return nil
}

func textLine(n *Node, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Label)
	if n.Variant != region.Composite.String() {
		b.WriteString(" " + n.Variant)
	}
	if len(n.Flags) > 0 {
		b.WriteString(" [" + strings.Join(n.Flags, " ") + "]")
	}
	if n.Entrypoint {
		b.WriteString(" entry")
	}
	if n.Protected {
		b.WriteString(" protected")
	}
	b.WriteByte('\n')
	return b.String()
}

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatYAML, FormatCBOR:
		return f, nil
	}
	return "", errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
		Value(s).
		Detail("unknown output format %q (text, yaml, cbor)", s).
		Build()
}

// Encode writes docs to w in the given format.
func Encode(w io.Writer, docs []Document, f Format) error {
	switch f {
	case FormatText:
		for i, d := range docs {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			state := "structured"
			if !d.Structured {
				state = "unstructured"
			}
			if _, err := fmt.Fprintf(w, "func %s (%s, %d levels)\n", d.Name, state, d.Levels); err != nil {
				return err
			}
			if err := WriteText(w, d.Root); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		data, err := MarshalYAML(docs)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatCBOR:
		data, err := MarshalCBOR(docs)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return errors.Unsupported(errors.PhaseEmit, "output format "+string(f))
}
