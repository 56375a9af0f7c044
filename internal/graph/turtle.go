package graph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// EncodeTurtle writes g as Turtle: the default prefixes, then one block per
// subject in sorted order with predicate-object pairs joined by ';'.
func EncodeTurtle(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, p := range DefaultPrefixes {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p.Name, p.IRI)
	}

	var subject Term
	for i, t := range g.Triples() {
		if i == 0 || t.S != subject {
			if i > 0 {
				bw.WriteString(" .\n")
			}
			subject = t.S
			fmt.Fprintf(bw, "\n%s %s %s", t.S, t.P, t.O)
			continue
		}
		fmt.Fprintf(bw, " ;\n    %s %s", t.P, t.O)
	}
	if g.Len() > 0 {
		bw.WriteString(" .\n")
	}
	return bw.Flush()
}

// MarshalTurtle returns the Turtle bytes of g.
func MarshalTurtle(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTurtle(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTurtle parses the Turtle subset written by EncodeTurtle: @prefix
// directives, IRIs, prefixed names, the 'a' keyword, quoted literals with
// optional ^^datatype or @lang, bare integers, and ';' / ',' lists.
func DecodeTurtle(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &turtleParser{lex: &lexer{src: string(data), line: 1}, prefixes: map[string]string{}, g: New()}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.g, nil
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokString
	tokNumber
	tokDatatype // ^^
	tokLang
	tokPrefix // @prefix
	tokA
	tokDot
	tokSemicolon
	tokComma
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
	peek *token
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("turtle line %d: %s", l.line, fmt.Sprintf(format, args...))
}

func (l *lexer) next() (token, error) {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil
		return t, nil
	}
	return l.scan()
}

func (l *lexer) unread(t token) {
	l.peek = &t
}

func (l *lexer) scan() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '<':
		end := strings.IndexByte(l.src[l.pos:], '>')
		if end < 0 {
			return token{}, l.errorf("unterminated IRI")
		}
		iri := l.src[l.pos+1 : l.pos+end]
		l.pos += end + 1
		return token{kind: tokIRI, text: iri, line: l.line}, nil
	case c == '"':
		return l.scanString()
	case c == '^':
		if strings.HasPrefix(l.src[l.pos:], "^^") {
			l.pos += 2
			return token{kind: tokDatatype, line: l.line}, nil
		}
		return token{}, l.errorf("unexpected '^'")
	case c == '@':
		word := l.scanWord(l.pos + 1)
		l.pos += 1 + len(word)
		if word == "prefix" {
			return token{kind: tokPrefix, line: l.line}, nil
		}
		return token{kind: tokLang, text: word, line: l.line}, nil
	case c == '.':
		l.pos++
		return token{kind: tokDot, line: l.line}, nil
	case c == ';':
		l.pos++
		return token{kind: tokSemicolon, line: l.line}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, line: l.line}, nil
	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		word := l.scanWord(l.pos)
		word = strings.TrimRight(word, ".")
		l.pos += len(word)
		return token{kind: tokNumber, text: word, line: l.line}, nil
	default:
		word := l.scanWord(l.pos)
		word = strings.TrimRight(word, ".")
		if word == "" {
			return token{}, l.errorf("unexpected %q", c)
		}
		l.pos += len(word)
		if word == "a" {
			return token{kind: tokA, line: l.line}, nil
		}
		if !strings.Contains(word, ":") {
			return token{}, l.errorf("unexpected word %q", word)
		}
		return token{kind: tokPName, text: word, line: l.line}, nil
	}
}

func (l *lexer) scanWord(from int) string {
	end := from
	for end < len(l.src) {
		c := l.src[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ';' || c == ',' || c == '<' || c == '"' || c == '#' {
			break
		}
		end++
	}
	return l.src[from:end]
}

func (l *lexer) scanString() (token, error) {
	var b strings.Builder
	line := l.line
	i := l.pos + 1
	for i < len(l.src) {
		c := l.src[i]
		switch c {
		case '"':
			l.pos = i + 1
			return token{kind: tokString, text: b.String(), line: line}, nil
		case '\n':
			return token{}, l.errorf("newline in string literal")
		case '\\':
			if i+1 >= len(l.src) {
				return token{}, l.errorf("dangling escape")
			}
			switch l.src[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			default:
				return token{}, l.errorf("unsupported escape \\%c", l.src[i+1])
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, l.errorf("unterminated string literal")
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\n':
			l.line++
			l.pos++
		case ' ', '\t', '\r':
			l.pos++
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

type turtleParser struct {
	lex      *lexer
	prefixes map[string]string
	g        *Graph
}

func (p *turtleParser) parse() error {
	for {
		t, err := p.lex.next()
		if err != nil {
			return err
		}
		switch t.kind {
		case tokEOF:
			return nil
		case tokPrefix:
			if err := p.prefixDirective(); err != nil {
				return err
			}
		default:
			p.lex.unread(t)
			if err := p.statement(); err != nil {
				return err
			}
		}
	}
}

func (p *turtleParser) prefixDirective() error {
	name, err := p.lex.next()
	if err != nil {
		return err
	}
	if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
		return p.lex.errorf("expected prefix name")
	}
	iri, err := p.lex.next()
	if err != nil {
		return err
	}
	if iri.kind != tokIRI {
		return p.lex.errorf("expected namespace IRI")
	}
	p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
	return p.expect(tokDot, "'.' after @prefix")
}

func (p *turtleParser) statement() error {
	subj, err := p.term()
	if err != nil {
		return err
	}
	if !subj.IsIRI() {
		return p.lex.errorf("subject must be an IRI")
	}
	for {
		pred, err := p.verb()
		if err != nil {
			return err
		}
		for {
			obj, err := p.term()
			if err != nil {
				return err
			}
			p.g.Add(subj, pred, obj)

			t, err := p.lex.next()
			if err != nil {
				return err
			}
			switch t.kind {
			case tokComma:
				continue
			case tokSemicolon:
				// a trailing ';' before '.' is legal
				nt, err := p.lex.next()
				if err != nil {
					return err
				}
				if nt.kind == tokDot {
					return nil
				}
				p.lex.unread(nt)
			case tokDot:
				return nil
			default:
				return p.lex.errorf("expected ',', ';' or '.'")
			}
			break
		}
	}
}

func (p *turtleParser) verb() (Term, error) {
	t, err := p.lex.next()
	if err != nil {
		return Term{}, err
	}
	if t.kind == tokA {
		return Type, nil
	}
	p.lex.unread(t)
	v, err := p.term()
	if err != nil {
		return Term{}, err
	}
	if !v.IsIRI() {
		return Term{}, p.lex.errorf("predicate must be an IRI")
	}
	return v, nil
}

func (p *turtleParser) term() (Term, error) {
	t, err := p.lex.next()
	if err != nil {
		return Term{}, err
	}
	switch t.kind {
	case tokIRI:
		return NewIRI(t.text), nil
	case tokPName:
		iri, err := p.expand(t.text)
		if err != nil {
			return Term{}, err
		}
		return NewIRI(iri), nil
	case tokNumber:
		if strings.ContainsAny(t.text, ".eE") {
			return NewTypedLiteral(t.text, XSDNS+"decimal"), nil
		}
		return NewTypedLiteral(strings.TrimPrefix(t.text, "+"), XSDInteger), nil
	case tokString:
		nt, err := p.lex.next()
		if err != nil {
			return Term{}, err
		}
		switch nt.kind {
		case tokDatatype:
			dt, err := p.term()
			if err != nil {
				return Term{}, err
			}
			if !dt.IsIRI() {
				return Term{}, p.lex.errorf("datatype must be an IRI")
			}
			return NewTypedLiteral(t.text, dt.Value), nil
		case tokLang:
			// language tags are not modelled; keep the lexical form
			return NewLiteral(t.text), nil
		default:
			p.lex.unread(nt)
			return NewLiteral(t.text), nil
		}
	default:
		return Term{}, p.lex.errorf("expected a term")
	}
}

func (p *turtleParser) expand(pname string) (string, error) {
	prefix, local, _ := strings.Cut(pname, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.lex.errorf("undeclared prefix %q", prefix)
	}
	return ns + strings.ReplaceAll(local, `\`, ""), nil
}

func (p *turtleParser) expect(kind tokenKind, what string) error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	if t.kind != kind {
		return p.lex.errorf("expected %s", what)
	}
	return nil
}
