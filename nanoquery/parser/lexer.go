package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// dates may carry an RFC3339 time part, whose colons would otherwise end the word
	datePattern       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?)?`)
	numberPattern     = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	identPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	nestedFieldRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

var keywords = map[string]Kind{
	"AND": And,
	"OR":  Or,
	"NOT": Not,
}

// Tokenize splits query text into tokens. The returned slice always ends
// with an EOF token.
func Tokenize(text string) ([]Token, error) {
	l := &lexer{src: text}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Kind == EOF {
			return l.tokens, nil
		}
	}
}

type lexer struct {
	src    string
	pos    int
	tokens []Token
}

func isDelimiter(r rune) bool {
	switch r {
	case '(', ')', ':', ',', '<', '>':
		return true
	}
	return unicode.IsSpace(r)
}

func (l *lexer) emit(kind Kind, start int) Token {
	return Token{
		Kind:       kind,
		Lexeme:     l.src[start:l.pos],
		Pos:        start,
		Categories: categoriesOf(kind),
	}
}

func (l *lexer) peekRune(offset int) (rune, bool) {
	if l.pos+offset >= len(l.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r, true
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Pos: start}, nil
	}

	switch c := l.src[l.pos]; c {
	case '(':
		l.pos++
		return l.emit(LParen, start), nil
	case ')':
		l.pos++
		return l.emit(RParen, start), nil
	case ':':
		l.pos++
		return l.emit(Colon, start), nil
	case ',':
		l.pos++
		return l.emit(Comma, start), nil
	case '<', '>':
		l.pos++
		kind := LT
		if c == '>' {
			kind = GT
		}
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			kind++
		}
		return l.emit(kind, start), nil
	case '"', '\'':
		return l.quoted(c)
	case '-':
		if l.isNegation() {
			l.pos++
			return l.emit(Minus, start), nil
		}
	}

	if m := datePattern.FindString(l.src[l.pos:]); m != "" {
		end := l.pos + len(m)
		if end == len(l.src) || l.endsWord(end) {
			l.pos = end
			return l.emit(Date, start), nil
		}
	}

	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if isDelimiter(r) {
			break
		}
		l.pos += size
	}
	return l.emit(classify(l.src[start:l.pos]), start), nil
}

func (l *lexer) endsWord(at int) bool {
	r, _ := utf8.DecodeRuneInString(l.src[at:])
	return isDelimiter(r)
}

// isNegation reports whether the '-' under the cursor negates what follows
// rather than starting a negative number or a bare word. Where a value is
// expected, after ':', ',' or a comparator, it always starts a word.
func (l *lexer) isNegation() bool {
	if n := len(l.tokens); n > 0 {
		switch l.tokens[n-1].Kind {
		case Colon, Comma, LT, LTE, GT, GTE:
			return false
		}
	}
	r, ok := l.peekRune(1)
	if !ok || unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '(', '"', '\'':
		return true
	case ')', ':', ',', '<', '>':
		return false
	}
	end := l.pos + 1
	for end < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[end:])
		if isDelimiter(r) {
			break
		}
		end += size
	}
	return !numberPattern.MatchString(l.src[l.pos:end])
}

func (l *lexer) quoted(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case c == quote:
			l.pos++
			tok := l.emit(String, start)
			tok.text = sb.String()
			return tok, nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

func classify(word string) Kind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	switch strings.ToLower(word) {
	case "true", "false":
		return Boolean
	case "null":
		return Null
	}
	switch {
	case numberPattern.MatchString(word):
		return Number
	case identPattern.MatchString(word):
		return Identifier
	case nestedFieldRegexp.MatchString(word):
		return NestedField
	}
	return Literal
}
