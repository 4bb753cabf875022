package exprlang

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTemplate parses literal text interleaved with ${...} interpolations
// into a NodeList. Text outside `${` / `}` becomes LiteralNode(String, ...);
// text inside becomes a single parsed expression node.
func ParseTemplate(src string) (*NodeList, error) {
	var items []Node
	i := 0
	for i < len(src) {
		start := src[i:]
		idx := strings.Index(start, "${")
		if idx < 0 {
			items = append(items, &LiteralNode{
				Location: Location{Start: i, Stop: len(src)},
				Kind:     String,
				Value:    src[i:],
			})
			break
		}
		if idx > 0 {
			items = append(items, &LiteralNode{
				Location: Location{Start: i, Stop: i + idx},
				Kind:     String,
				Value:    start[:idx],
			})
		}
		rest := start[idx+2:]
		end := strings.Index(rest, "}")
		if end < 0 {
			return nil, fmt.Errorf("exprlang: unterminated expression in template at %d", i+idx)
		}
		exprSrc := rest[:end]
		node, err := ParseExpression(exprSrc)
		if err != nil {
			return nil, err
		}
		items = append(items, node)
		i = i + idx + 2 + end + 1
	}
	return &NodeList{Location: Location{Start: 0, Stop: len(src)}, Items: items}, nil
}

// ParseExpression parses a single expression: identifier, quoted-identifier,
// literal, or invocation.
func ParseExpression(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: src}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkEOF {
		return nil, fmt.Errorf("exprlang: unexpected trailing input at %d", p.cur().start)
	}
	return node, nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (Node, error) {
	t := p.cur()
	switch t.kind {
	case tkString:
		p.advance()
		return &LiteralNode{Location: Location{t.start, t.stop}, Kind: String, Value: t.text}, nil
	case tkQIdent:
		p.advance()
		return &IdentifierNode{Location: Location{t.start, t.stop}, Name: t.text}, nil
	case tkNumber:
		p.advance()
		return parseNumberLiteral(t)
	case tkTrue:
		p.advance()
		return &LiteralNode{Location: Location{t.start, t.stop}, Kind: Boolean, Value: true}, nil
	case tkFalse:
		p.advance()
		return &LiteralNode{Location: Location{t.start, t.stop}, Kind: Boolean, Value: false}, nil
	case tkNull:
		p.advance()
		return &LiteralNode{Location: Location{t.start, t.stop}, Kind: Null, Value: nil}, nil
	case tkIdent:
		p.advance()
		if p.cur().kind == tkLParen {
			return p.parseInvocation(t)
		}
		return &IdentifierNode{Location: Location{t.start, t.stop}, Name: t.text}, nil
	default:
		return nil, fmt.Errorf("exprlang: unexpected token at %d", t.start)
	}
}

func parseNumberLiteral(t token) (Node, error) {
	if strings.Contains(t.text, ".") {
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("exprlang: invalid decimal literal %q: %w", t.text, err)
		}
		return &LiteralNode{Location: Location{t.start, t.stop}, Kind: Decimal, Value: v}, nil
	}
	v, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("exprlang: invalid integer literal %q: %w", t.text, err)
	}
	return &LiteralNode{Location: Location{t.start, t.stop}, Kind: Integer, Value: v}, nil
}

func (p *parser) parseInvocation(nameTok token) (Node, error) {
	p.advance() // consume '('
	var args []Node
	if p.cur().kind != tkRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tkComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().kind != tkRParen {
		return nil, fmt.Errorf("exprlang: expected ')' at %d", p.cur().start)
	}
	closing := p.advance()
	return &InvocationNode{
		Location: Location{nameTok.start, closing.stop},
		Name:     nameTok.text,
		Args:     args,
	}, nil
}

// ParseDecoration parses a key -> template map into ordered key/value-pair
// nodes. Key order follows the caller-supplied slice so config-file ordering
// is preserved.
func ParseDecoration(keys []string, templates map[string]string) (*Decoration, error) {
	d := &Decoration{}
	for _, key := range keys {
		tmpl, ok := templates[key]
		if !ok {
			continue
		}
		nodeList, err := ParseTemplate(tmpl)
		if err != nil {
			return nil, fmt.Errorf("exprlang: key %q: %w", key, err)
		}
		d.Pairs = append(d.Pairs, &KeyValuePairNode{
			Location: nodeList.Location,
			Key:      key,
			Value:    nodeList,
		})
	}
	return d, nil
}
