package format

import (
	"strconv"
	"strings"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Resolver resolves predicate and column names met while parsing.
type Resolver interface {
	VocabElementByName(name string) (*ir.VocabElement, error)
}

type tokenKind uint8

const (
	tokWord tokenKind = iota + 1
	tokQuote
	tokOpen
	tokClose
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits s into words, quoted strings and punctuation. A word runs
// to the next delimiter, so nominals keep their interior spaces.
func tokenize(s string) ([]token, error) {
	const op = "format.parse"
	var toks []token
	var word strings.Builder
	flush := func() {
		if w := strings.TrimSpace(word.String()); w != "" {
			toks = append(toks, token{kind: tokWord, text: w})
		}
		word.Reset()
	}
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '(':
			flush()
			toks = append(toks, token{kind: tokOpen, text: "("})
		case ')':
			flush()
			toks = append(toks, token{kind: tokClose, text: ")"})
		case ',':
			flush()
			toks = append(toks, token{kind: tokComma, text: ","})
		case '"':
			flush()
			j := i + 1
			for ; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' {
					j++
				}
			}
			if j >= len(s) {
				return nil, ir.Errorf(ir.CodeInvalidArgument, op, "unterminated quote string at offset %d", i)
			}
			q, err := strconv.Unquote(s[i : j+1])
			if err != nil {
				return nil, ir.Errorf(ir.CodeInvalidArgument, op, "malformed quote string at offset %d", i)
			}
			toks = append(toks, token{kind: tokQuote, text: q})
			i = j
		default:
			word.WriteByte(ch)
		}
	}
	flush()
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
	r    Resolver
	tps  int64
}

// ParseMatrix parses a cell payload written as (v1, v2, ...) against the
// matrix element ve. Predicate names resolve through r. Values are not
// checked for legality; the database does that on insert.
func ParseMatrix(r Resolver, ve *ir.VocabElement, s string, tps int64) (ir.Matrix, error) {
	const op = "format.parse_matrix"
	if ve.MatrixType == ir.MatrixText {
		s = strings.TrimSpace(s)
		if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
			return ir.Matrix{}, ir.Errorf(ir.CodeInvalidArgument, op, "text matrix must be parenthesized")
		}
		f := ve.Fargs[0]
		text := s[1 : len(s)-1]
		if text == f.Name {
			text = ""
		}
		return ir.Matrix{VocabID: ve.ID, Args: []ir.DataValue{ir.Bind(f, ir.Text(text))}}, nil
	}

	toks, err := tokenize(s)
	if err != nil {
		return ir.Matrix{}, err
	}
	p := &parser{toks: toks, r: r, tps: tps}
	if err := p.expect(tokOpen); err != nil {
		return ir.Matrix{}, err
	}
	args, err := p.args(ve.Fargs)
	if err != nil {
		return ir.Matrix{}, err
	}
	if err := p.expect(tokClose); err != nil {
		return ir.Matrix{}, err
	}
	if err := p.end(); err != nil {
		return ir.Matrix{}, err
	}
	return ir.Matrix{VocabID: ve.ID, Args: args}, nil
}

// ParseValue parses one value for formal argument f.
func ParseValue(r Resolver, f ir.FormalArg, s string, tps int64) (ir.Value, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, r: r, tps: tps}
	v, err := p.value(f)
	if err != nil {
		return nil, err
	}
	return v, p.end()
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) peek(kind tokenKind) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].kind == kind
}

func (p *parser) expect(kind tokenKind) error {
	t, ok := p.next()
	if !ok {
		return ir.Errorf(ir.CodeInvalidArgument, "format.parse", "unexpected end of input")
	}
	if t.kind != kind {
		return ir.Errorf(ir.CodeInvalidArgument, "format.parse", "unexpected %q", t.text)
	}
	return nil
}

func (p *parser) end() error {
	if p.pos < len(p.toks) {
		return ir.Errorf(ir.CodeInvalidArgument, "format.parse", "trailing %q", p.toks[p.pos].text)
	}
	return nil
}

func (p *parser) args(fargs []ir.FormalArg) ([]ir.DataValue, error) {
	out := make([]ir.DataValue, len(fargs))
	for i, f := range fargs {
		if i > 0 {
			if err := p.expect(tokComma); err != nil {
				return nil, err
			}
		}
		v, err := p.value(f)
		if err != nil {
			return nil, err
		}
		out[i] = ir.Bind(f, v)
	}
	return out, nil
}

func (p *parser) value(f ir.FormalArg) (ir.Value, error) {
	const op = "format.parse"
	t, ok := p.next()
	if !ok {
		return nil, ir.Errorf(ir.CodeInvalidArgument, op, "missing value for %s", f.Name)
	}
	switch t.kind {
	case tokQuote:
		return ir.QuoteString(t.text), nil
	case tokWord:
		if p.peek(tokOpen) {
			return p.predicate(t.text)
		}
		return p.literal(f, t.text)
	}
	return nil, ir.Errorf(ir.CodeInvalidArgument, op, "unexpected %q for %s", t.text, f.Name)
}

func (p *parser) predicate(name string) (ir.Value, error) {
	ve, err := p.r.VocabElementByName(name)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokOpen); err != nil {
		return nil, err
	}
	var v ir.Value
	if ve.Kind == ir.VocabMatrix {
		implicit, err := p.args(implicitFargs())
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokComma); err != nil {
			return nil, err
		}
		rest, err := p.args(ve.Fargs)
		if err != nil {
			return nil, err
		}
		v = ir.ColPredicate{VocabID: ve.ID, Args: append(implicit, rest...)}
	} else {
		args, err := p.args(ve.Fargs)
		if err != nil {
			return nil, err
		}
		v = ir.Predicate{VocabID: ve.ID, Args: args}
	}
	return v, p.expect(tokClose)
}

func implicitFargs() []ir.FormalArg {
	return []ir.FormalArg{
		{Name: implicitNames[0], Kind: ir.FargInteger},
		{Name: implicitNames[1], Kind: ir.FargTimeStamp},
		{Name: implicitNames[2], Kind: ir.FargTimeStamp},
	}
}

// literal interprets a bare word for f. A bracketed word stands for the
// empty value of the slot.
func (p *parser) literal(f ir.FormalArg, w string) (ir.Value, error) {
	const op = "format.parse"
	if strings.HasPrefix(w, "<") && strings.HasSuffix(w, ">") {
		return ir.DefaultValue(f, p.tps), nil
	}
	bad := func() (ir.Value, error) {
		return nil, ir.Errorf(ir.CodeTypeMismatch, op, "%q is not a %s value for %s", w, f.Kind, f.Name)
	}
	switch f.Kind {
	case ir.FargInteger:
		n, err := strconv.ParseInt(w, 10, 64)
		if err != nil {
			return bad()
		}
		return ir.Integer(n), nil
	case ir.FargFloat:
		x, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return bad()
		}
		return ir.Float(x), nil
	case ir.FargTimeStamp:
		ts, err := ir.ParseTimeStamp(w, p.tps)
		if err != nil {
			return nil, err
		}
		return ts, nil
	case ir.FargNominal:
		return ir.Nominal(w), nil
	case ir.FargText:
		return ir.Text(w), nil
	case ir.FargUntyped:
		if numeric(w) {
			if n, err := strconv.ParseInt(w, 10, 64); err == nil {
				return ir.Integer(n), nil
			}
			if x, err := strconv.ParseFloat(w, 64); err == nil {
				return ir.Float(x), nil
			}
		}
		if strings.Count(w, ":") == 3 {
			if ts, err := ir.ParseTimeStamp(w, p.tps); err == nil {
				return ts, nil
			}
		}
		return ir.Nominal(w), nil
	}
	return bad()
}

// numeric reports whether w starts like a number, so that nominals such as
// "nan" or "inf" stay nominals.
func numeric(w string) bool {
	if w != "" && (w[0] == '-' || w[0] == '+') {
		w = w[1:]
	}
	return w != "" && (w[0] >= '0' && w[0] <= '9' || w[0] == '.')
}
