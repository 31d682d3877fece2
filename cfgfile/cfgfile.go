package cfgfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// Function is one parsed function: its name and the leaf graph of its blocks.
type Function struct {
	Graph *region.Graph
	Name  string
}

// Entrypoint returns the block flagged as function entry.
func (f Function) Entrypoint() region.ID { return f.Graph.Entrypoint() }

// Load reads a graph file. Files ending in .yaml or .yml are parsed as YAML,
// everything else as the text format.
func Load(path string) ([]Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read "+path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// Find returns the function with the given name. An empty name selects the
// only function of a single-function file.
func Find(fns []Function, name string) (Function, error) {
	if name == "" {
		if len(fns) == 1 {
			return fns[0], nil
		}
		return Function{}, errors.InvalidArgument(errors.PhaseParse,
			strconv.Itoa(len(fns))+" functions in file, a name is required")
	}
	for _, f := range fns {
		if f.Name == name {
			return f, nil
		}
	}
	return Function{}, errors.NotFound(errors.PhaseParse, "function", name)
}

// blockSpec is a block as written in a source file, before references are
// resolved. Text and YAML both produce it.
type blockSpec struct {
	data  any
	name  string
	edges []edgeRef
	line  int
	flags region.Flags
	entry bool
}

// edgeRef names an edge target either by block name or by index (name empty).
type edgeRef struct {
	name  string
	index int
	line  int
	kind  region.EdgeKind
}

func (r edgeRef) String() string {
	if r.name != "" {
		return r.name
	}
	return "#" + strconv.Itoa(r.index)
}

// where formats a source position for error details.
func where(line int, msg string) string {
	if line <= 0 {
		return msg
	}
	return "line " + strconv.Itoa(line) + ": " + msg
}

// buildFunction resolves references and assembles the graph. Without an
// explicit entry block the first block is the entry.
func buildFunction(name string, blocks []blockSpec) (Function, error) {
	if len(blocks) == 0 {
		return Function{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Path(name).
			Detail("function has no blocks").
			Build()
	}

	b := region.NewBuilder()
	byName := make(map[string]region.ID, len(blocks))
	entry := region.NoRegion
	for i, bs := range blocks {
		id := b.AddBlock(bs.name, bs.flags)
		if bs.name != "" {
			if _, dup := byName[bs.name]; dup {
				return Function{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
					Path(name, bs.name).
					Detail("%s", where(bs.line, "duplicate block name")).
					Build()
			}
			byName[bs.name] = id
		}
		if bs.data != nil {
			if err := b.SetData(id, bs.data); err != nil {
				return Function{}, err
			}
		}
		if bs.entry {
			if entry != region.NoRegion {
				return Function{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
					Path(name, blockName(blocks, i)).
					Detail("%s", where(bs.line, "second entry block, first is "+blockName(blocks, int(entry)))).
					Build()
			}
			entry = id
		}
	}
	if entry == region.NoRegion {
		entry = 0
	}
	if err := b.SetEntrypoint(entry); err != nil {
		return Function{}, err
	}

	for i, bs := range blocks {
		for _, e := range bs.edges {
			to, ok := resolve(byName, len(blocks), e)
			if !ok {
				return Function{}, errors.New(errors.PhaseParse, errors.KindNotFound).
					Path(name, blockName(blocks, i)).
					Detail("%s", where(e.line, "unknown "+e.kind.String()+" target "+e.String())).
					Build()
			}
			if err := b.AddEdge(region.ID(i), to, e.kind); err != nil {
				return Function{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
					Path(name, blockName(blocks, i)).
					Cause(err).
					Detail("%s", where(e.line, "bad edge")).
					Build()
			}
		}
	}

	g, err := b.Build()
	if err != nil {
		return Function{}, err
	}
	return Function{Name: name, Graph: g}, nil
}

func resolve(byName map[string]region.ID, n int, e edgeRef) (region.ID, bool) {
	if e.name != "" {
		id, ok := byName[e.name]
		return id, ok
	}
	if e.index < 0 || e.index >= n {
		return region.NoRegion, false
	}
	return region.ID(e.index), true
}

func blockName(blocks []blockSpec, i int) string {
	if blocks[i].name != "" {
		return blocks[i].name
	}
	return "#" + strconv.Itoa(i)
}
