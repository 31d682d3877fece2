package cfgfile

import (
	"bytes"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

type yamlFile struct {
	Functions []yamlFunction `yaml:"functions"`
}

type yamlFunction struct {
	Name   string      `yaml:"name"`
	Blocks []yamlBlock `yaml:"blocks"`
}

type yamlBlock struct {
	Name    string   `yaml:"name"`
	Data    string   `yaml:"data,omitempty"`
	Flags   []string `yaml:"flags,omitempty"`
	Succ    []string `yaml:"succ,omitempty"`
	Invoke  []string `yaml:"invoke,omitempty"`
	Handler []string `yaml:"handler,omitempty"`
	Entry   bool     `yaml:"entry,omitempty"`
}

// ParseYAML reads the YAML format:
//
//	functions:
//	  - name: main
//	    blocks:
//	      - {name: b0, entry: true, succ: [b1], invoke: [b4]}
//	      - {name: b4, flags: [eh-switch], handler: [b5]}
//	      - {name: b5, flags: [eh-entry, eh-exit], succ: [b1]}
//	      - {name: b1}
//
// Edge targets are block names. Unknown keys are rejected.
func ParseYAML(src []byte) ([]Function, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var f yamlFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.InvalidData(errors.PhaseParse, nil, "empty YAML document")
		}
		return nil, errors.ParseFailed("graph YAML", err)
	}
	if len(f.Functions) == 0 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "no functions")
	}

	fns := make([]Function, 0, len(f.Functions))
	seen := make(map[string]bool, len(f.Functions))
	for i, yf := range f.Functions {
		name := yf.Name
		if name == "" {
			name = "func" + strconv.Itoa(i)
		}
		if seen[name] {
			return nil, errors.InvalidData(errors.PhaseParse, []string{name}, "duplicate function")
		}
		seen[name] = true

		blocks := make([]blockSpec, 0, len(yf.Blocks))
		for _, yb := range yf.Blocks {
			bs, err := yb.parse(name)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, bs)
		}
		fn, err := buildFunction(name, blocks)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func (yb yamlBlock) parse(fn string) (blockSpec, error) {
	bs := blockSpec{name: yb.Name, entry: yb.Entry}
	if yb.Data != "" {
		bs.data = yb.Data
	}
	for _, name := range yb.Flags {
		if name == "entry" {
			bs.entry = true
			continue
		}
		f, ok := region.ParseFlag(name)
		if !ok {
			return blockSpec{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Path(fn, yb.Name).
				Detail("unknown block flag %q", name).
				Build()
		}
		bs.flags |= f
	}
	for _, list := range []struct {
		names []string
		kind  region.EdgeKind
	}{
		{yb.Succ, region.EdgeNormal},
		{yb.Invoke, region.EdgeInvoke},
		{yb.Handler, region.EdgeHandler},
	} {
		for _, target := range list.names {
			bs.edges = append(bs.edges, edgeRef{name: target, kind: list.kind})
		}
	}
	return bs, nil
}

// MarshalYAML renders fns in the YAML format accepted by ParseYAML.
func MarshalYAML(fns []Function) ([]byte, error) {
	out := yamlFile{Functions: make([]yamlFunction, 0, len(fns))}
	for _, fn := range fns {
		g := fn.Graph
		yf := yamlFunction{Name: fn.Name, Blocks: make([]yamlBlock, 0, g.Len())}
		for id := region.ID(0); int(id) < g.Len(); id++ {
			r := g.Region(id)
			yb := yamlBlock{
				Name:    g.Label(id),
				Entry:   r.IsFunctionEntrypoint(),
				Flags:   r.Flags().Names(),
				Succ:    labels(g, r.NormalSuccessors()),
				Invoke:  labels(g, r.InvokeSuccessors()),
				Handler: labels(g, r.HandlerSuccessors()),
			}
			if s, ok := r.Data().(string); ok {
				yb.Data = s
			}
			yf.Blocks = append(yf.Blocks, yb)
		}
		out.Functions = append(out.Functions, yf)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "encode YAML")
	}
	return buf.Bytes(), nil
}

func labels(g *region.Graph, ids []region.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.Label(id)
	}
	return out
}
