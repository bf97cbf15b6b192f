package schema

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/samsarahq/go/oops"
)

// LiteralKind tags the variant of a Literal, mirroring the Kind enum that
// gqlparser's ast.Value uses to distinguish literal shapes (the
// pack's hanpama-protograph dependency), generalized here to spec.md §3's
// explicit sum type.
type LiteralKind int

const (
	KindNull LiteralKind = iota
	KindBool
	KindString
	KindInt
	KindFloat
	KindEnum
	KindList
	KindObject
)

// Literal is a parsed GraphQL literal value. Exactly one of the payload
// fields is meaningful, selected by Kind; the zero value is KindNull.
// Two literals are Equal iff their syntactic forms match: 3.14 and 3.140
// are distinct FloatLit values because their lexical forms differ.
type Literal struct {
	kind LiteralKind

	boolVal  bool
	strVal   string
	intVal   *big.Int
	floatVal *big.Float
	floatLex string // original lexeme, preserved for round-trip fidelity
	enumVal  string
	listVal  []Literal
	objVal   []ObjectField // ordered, preserves source field order
}

// ObjectField is one entry of an ObjectLit, preserving declaration order.
type ObjectField struct {
	Name  string
	Value Literal
}

func (l Literal) Kind() LiteralKind { return l.kind }

var nullLiteral = Literal{kind: KindNull}

// NullLiteral returns the Null literal.
func NullLiteral() Literal { return nullLiteral }

// BoolLiteral constructs True or False.
func BoolLiteral(v bool) Literal { return Literal{kind: KindBool, boolVal: v} }

// StringLiteral constructs a StringLit from its already-unescaped value.
func StringLiteral(v string) Literal { return Literal{kind: KindString, strVal: v} }

var intLexRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

// IntLiteral validates and constructs an IntLit from its lexical form,
// rejecting a leading zero per spec.md §3 ("no leading zeros on ints").
func IntLiteral(lexeme string) (Literal, error) {
	if !intLexRe.MatchString(lexeme) {
		return Literal{}, oops.Errorf("invalid int literal %q: leading zeros are not permitted", lexeme)
	}
	i, ok := new(big.Int).SetString(lexeme, 10)
	if !ok {
		return Literal{}, oops.Errorf("invalid int literal %q", lexeme)
	}
	return Literal{kind: KindInt, intVal: i}, nil
}

var floatLexRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// FloatLiteral validates and constructs a FloatLit, requiring either a
// fractional part or an exponent per spec.md §3. The original lexeme is
// retained so that 3.14 and 3.140 remain distinct under Equal, per the
// round-trip invariant in spec.md §8.
func FloatLiteral(lexeme string) (Literal, error) {
	if !floatLexRe.MatchString(lexeme) {
		return Literal{}, oops.Errorf("invalid float literal %q", lexeme)
	}
	if !strings.ContainsAny(lexeme, ".eE") {
		return Literal{}, oops.Errorf("float literal %q must carry a fractional part or exponent", lexeme)
	}
	f, _, err := big.ParseFloat(lexeme, 10, 256, big.ToNearestEven)
	if err != nil {
		return Literal{}, oops.Errorf("invalid float literal %q: %v", lexeme, err)
	}
	return Literal{kind: KindFloat, floatVal: f, floatLex: lexeme}, nil
}

var enumNameRe = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

// EnumLiteral validates and constructs an EnumLit. Names matching
// true/false/null are rejected, per spec.md §3: those lexemes always
// parse as the corresponding Bool/Null literal instead.
func EnumLiteral(name string) (Literal, error) {
	if !enumNameRe.MatchString(name) {
		return Literal{}, oops.Errorf("invalid enum literal name %q", name)
	}
	switch name {
	case "true", "false", "null":
		return Literal{}, oops.Errorf("enum literal name %q collides with a keyword literal", name)
	}
	return Literal{kind: KindEnum, enumVal: name}, nil
}

// ListLiteral constructs a ListLit.
func ListLiteral(items ...Literal) Literal {
	return Literal{kind: KindList, listVal: items}
}

// ObjectLiteral constructs an ObjectLit, preserving field order.
func ObjectLiteral(fields ...ObjectField) Literal {
	return Literal{kind: KindObject, objVal: fields}
}

// AsBigInt returns the literal's integer value; ok is false for
// non-KindInt literals.
func (l Literal) AsBigInt() (*big.Int, bool) {
	if l.kind != KindInt {
		return nil, false
	}
	return l.intVal, true
}

// AsBigFloat returns the literal's float value; ok is false for
// non-KindFloat literals.
func (l Literal) AsBigFloat() (*big.Float, bool) {
	if l.kind != KindFloat {
		return nil, false
	}
	return l.floatVal, true
}

// AsString returns the literal's string payload for KindString/KindEnum.
func (l Literal) AsString() (string, bool) {
	switch l.kind {
	case KindString:
		return l.strVal, true
	case KindEnum:
		return l.enumVal, true
	}
	return "", false
}

// AsBool returns the literal's bool payload for KindBool.
func (l Literal) AsBool() (bool, bool) {
	if l.kind != KindBool {
		return false, false
	}
	return l.boolVal, true
}

// Items returns a ListLit's elements.
func (l Literal) Items() ([]Literal, bool) {
	if l.kind != KindList {
		return nil, false
	}
	return l.listVal, true
}

// Fields returns an ObjectLit's fields in declaration order.
func (l Literal) Fields() ([]ObjectField, bool) {
	if l.kind != KindObject {
		return nil, false
	}
	return l.objVal, true
}

// String renders the literal back to GraphQL source text. Reparsing the
// result yields an identical Literal per spec.md §8, with the FloatLit
// exception that the original lexical form -- not a canonicalized one --
// is what is preserved (String uses the stored lexeme directly).
func (l Literal) String() string {
	switch l.kind {
	case KindNull:
		return "null"
	case KindBool:
		if l.boolVal {
			return "true"
		}
		return "false"
	case KindString:
		return fmt.Sprintf("%q", l.strVal)
	case KindInt:
		return l.intVal.String()
	case KindFloat:
		return l.floatLex
	case KindEnum:
		return l.enumVal
	case KindList:
		parts := make([]string, len(l.listVal))
		for i, item := range l.listVal {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		parts := make([]string, len(l.objVal))
		for i, f := range l.objVal {
			parts[i] = f.Name + ": " + f.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid literal>"
	}
}

// Equal reports syntactic equality: two literals are equal iff their
// lexical forms match, so FloatLiteral("3.14") != FloatLiteral("3.140").
func (l Literal) Equal(other Literal) bool {
	if l.kind != other.kind {
		return false
	}
	switch l.kind {
	case KindNull:
		return true
	case KindBool:
		return l.boolVal == other.boolVal
	case KindString:
		return l.strVal == other.strVal
	case KindInt:
		return l.intVal.Cmp(other.intVal) == 0
	case KindFloat:
		return l.floatLex == other.floatLex
	case KindEnum:
		return l.enumVal == other.enumVal
	case KindList:
		if len(l.listVal) != len(other.listVal) {
			return false
		}
		for i := range l.listVal {
			if !l.listVal[i].Equal(other.listVal[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(l.objVal) != len(other.objVal) {
			return false
		}
		for i := range l.objVal {
			if l.objVal[i].Name != other.objVal[i].Name || !l.objVal[i].Value.Equal(other.objVal[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
