package cfgfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/regionlift/cfgfile/internal/token"
	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// Parse reads the text format:
//
//	(func $name
//	  (block $b0 entry (br $b1))
//	  (block $b1 (br $b2 $b3) (invoke $b4))
//	  (block $b4 eh-switch (handler $b5))
//	  (block $b5 eh-entry eh-exit (br $b3))
//	  (block $b2 (data "ret"))
//	  (block $b3))
//
// Edge targets are $names or block indices; forward references are allowed.
func Parse(src []byte) ([]Function, error) {
	p := &parser{tokens: token.Tokenize(string(src))}
	fns, err := p.parseFile()
	if err != nil {
		return nil, errors.ParseFailed("graph text", err)
	}
	return fns, nil
}

type parser struct {
	tokens []token.Token
	pos    int
}

func (p *parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

func (p *parser) expectKeyword(kw string) (*token.Token, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if t.Value != kw {
		return nil, fmt.Errorf("line %d: expected %q, got %q", t.Line, kw, t.Value)
	}
	return t, nil
}

// atClause reports whether the next tokens open a parenthesized form.
func (p *parser) atClause() bool {
	t := p.peek()
	return t != nil && t.Type == token.LParen
}

func (p *parser) parseFile() ([]Function, error) {
	var fns []Function
	seen := make(map[string]bool)
	for p.peek() != nil {
		name, blocks, err := p.parseFunc(len(fns))
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate function %q", name)
		}
		seen[name] = true
		fn, err := buildFunction(name, blocks)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("no functions")
	}
	return fns, nil
}

func (p *parser) parseFunc(index int) (string, []blockSpec, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return "", nil, err
	}
	if _, err := p.expectKeyword("func"); err != nil {
		return "", nil, err
	}

	name := "func" + strconv.Itoa(index)
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
		name = t.Value[1:]
	}

	var blocks []blockSpec
	for p.atClause() {
		bs, err := p.parseBlock()
		if err != nil {
			return "", nil, err
		}
		blocks = append(blocks, bs)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return "", nil, err
	}
	return name, blocks, nil
}

func (p *parser) parseBlock() (blockSpec, error) {
	p.next() // (
	kw, err := p.expectKeyword("block")
	if err != nil {
		return blockSpec{}, err
	}
	bs := blockSpec{line: kw.Line}

	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
		bs.name = t.Value[1:]
	}

	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		p.next()
		if t.Value == "entry" {
			bs.entry = true
			continue
		}
		f, ok := region.ParseFlag(t.Value)
		if !ok {
			return blockSpec{}, fmt.Errorf("line %d: unknown block flag %q", t.Line, t.Value)
		}
		bs.flags |= f
	}

	for p.atClause() {
		if err := p.parseClause(&bs); err != nil {
			return blockSpec{}, err
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return blockSpec{}, err
	}
	return bs, nil
}

func (p *parser) parseClause(bs *blockSpec) error {
	p.next() // (
	kw, err := p.expect(token.Ident)
	if err != nil {
		return err
	}

	var kind region.EdgeKind
	switch kw.Value {
	case "br":
		kind = region.EdgeNormal
	case "invoke":
		kind = region.EdgeInvoke
	case "handler":
		kind = region.EdgeHandler
	case "data":
		s, err := p.expect(token.String)
		if err != nil {
			return err
		}
		data, err := unquote(s.Value)
		if err != nil {
			return fmt.Errorf("line %d: bad data string: %w", s.Line, err)
		}
		bs.data = data
		_, err = p.expect(token.RParen)
		return err
	default:
		return fmt.Errorf("line %d: unknown clause %q", kw.Line, kw.Value)
	}

	for {
		t := p.next()
		if t == nil {
			return fmt.Errorf("unexpected end of input")
		}
		switch {
		case t.Type == token.RParen:
			return nil
		case t.Type == token.Ident && strings.HasPrefix(t.Value, "$"):
			bs.edges = append(bs.edges, edgeRef{name: t.Value[1:], kind: kind, line: t.Line})
		case t.Type == token.Number:
			idx, err := strconv.Atoi(strings.ReplaceAll(t.Value, "_", ""))
			if err != nil {
				return fmt.Errorf("line %d: invalid block index %q", t.Line, t.Value)
			}
			bs.edges = append(bs.edges, edgeRef{index: idx, kind: kind, line: t.Line})
		default:
			return fmt.Errorf("line %d: expected block reference, got %q", t.Line, t.Value)
		}
	}
}

// unquote reads a string token body with Go escape rules. Line breaks
// typed inside the quotes are kept.
func unquote(s string) (string, error) {
	return strconv.Unquote(`"` + strings.ReplaceAll(s, "\n", `\n`) + `"`)
}

// Format writes fns back in the text format. Blocks without a label are
// referenced by index.
func Format(fns []Function) string {
	var b strings.Builder
	for i, fn := range fns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "(func $%s", fn.Name)
		g := fn.Graph
		for id := region.ID(0); int(id) < g.Len(); id++ {
			r := g.Region(id)
			b.WriteString("\n  (block")
			if r.Label() != "" {
				b.WriteString(" $" + r.Label())
			}
			if r.IsFunctionEntrypoint() {
				b.WriteString(" entry")
			}
			for _, name := range r.Flags().Names() {
				b.WriteString(" " + name)
			}
			writeEdges(&b, g, "br", r.NormalSuccessors())
			writeEdges(&b, g, "invoke", r.InvokeSuccessors())
			writeEdges(&b, g, "handler", r.HandlerSuccessors())
			if s, ok := r.Data().(string); ok {
				b.WriteString(" (data " + strconv.Quote(s) + ")")
			}
			b.WriteByte(')')
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func writeEdges(b *strings.Builder, g *region.Graph, kw string, targets []region.ID) {
	if len(targets) == 0 {
		return
	}
	b.WriteString(" (" + kw)
	for _, t := range targets {
		if l := g.Region(t).Label(); l != "" {
			b.WriteString(" $" + l)
		} else {
			b.WriteString(" " + strconv.Itoa(int(t)))
		}
	}
	b.WriteByte(')')
}
