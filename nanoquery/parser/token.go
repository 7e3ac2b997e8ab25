package parser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies the lexical form of a token
type Kind int

const (
	EOF Kind = iota
	LParen
	RParen
	Colon
	Comma
	LT
	LTE
	GT
	GTE
	Minus
	And
	Or
	Not
	// String is a quoted string
	String
	// Literal is a bare word that is not an identifier, number or keyword
	Literal
	Identifier
	// NestedField is a dotted identifier such as author.name
	NestedField
	Number
	Boolean
	Date
	Null
)

var kindNames = [...]string{
	EOF:         "end of input",
	LParen:      "'('",
	RParen:      "')'",
	Colon:       "':'",
	Comma:       "','",
	LT:          "'<'",
	LTE:         "'<='",
	GT:          "'>'",
	GTE:         "'>='",
	Minus:       "'-'",
	And:         "AND",
	Or:          "OR",
	Not:         "NOT",
	String:      "string",
	Literal:     "literal",
	Identifier:  "identifier",
	NestedField: "nested field",
	Number:      "number",
	Boolean:     "boolean",
	Date:        "date",
	Null:        "null",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Category is a set of lexical roles. A token may play several roles at once:
// identifiers are both field references and values, and the grammar decides
// which by position.
type Category uint8

const (
	CatField Category = 1 << iota
	CatValue
	CatComparator
	CatConnective
	CatBracket
	CatSeparator
	CatNegation
)

func categoriesOf(k Kind) Category {
	switch k {
	case Identifier, NestedField:
		return CatField | CatValue
	case String, Literal, Number, Boolean, Date, Null:
		return CatValue
	case LT, LTE, GT, GTE:
		return CatComparator
	case And, Or:
		return CatConnective
	case LParen, RParen:
		return CatBracket
	case Colon, Comma:
		return CatSeparator
	case Not, Minus:
		return CatNegation
	}
	return 0
}

// Token is a lexical unit of query text
type Token struct {
	Kind Kind
	// Lexeme is the source text of the token, quotes included
	Lexeme string
	// Pos is the byte offset of the token in the query text
	Pos        int
	Categories Category

	text string
}

// Is reports whether the token plays role c
func (t Token) Is(c Category) bool {
	return t.Categories&c != 0
}

// Text returns the token content: the unescaped body of quoted strings and
// the lexeme of everything else
func (t Token) Text() string {
	if t.Kind == String {
		return t.text
	}
	return t.Lexeme
}

func (t Token) String() string {
	if t.Kind == EOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Lexeme)
}

// maxSafeInteger is the largest integer every numeric consumer can hold
// exactly; literals beyond it are kept as *big.Int
const maxSafeInteger = 1<<53 - 1

var (
	maxSafe = big.NewInt(maxSafeInteger)
	minSafe = big.NewInt(-maxSafeInteger)
)

// Value returns the lexical value of a value token: string for strings,
// literals and identifiers; int64 or *big.Int for integers (big outside the
// safe integer range); float64 for decimals; bool; time.Time for dates that
// parse (the raw text otherwise); nil for null.
func (t Token) Value() any {
	switch t.Kind {
	case Number:
		return numberValue(t.Lexeme)
	case Boolean:
		return strings.EqualFold(t.Lexeme, "true")
	case Null:
		return nil
	case Date:
		if d, err := cast.ToTimeInDefaultLocationE(t.Lexeme, time.UTC); err == nil {
			return d
		}
		return t.Lexeme
	default:
		return t.Text()
	}
}

func numberValue(s string) any {
	if !strings.ContainsAny(s, ".eE") {
		n, ok := new(big.Int).SetString(s, 10)
		if ok {
			if n.Cmp(maxSafe) > 0 || n.Cmp(minSafe) < 0 {
				return n
			}
			return n.Int64()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}
