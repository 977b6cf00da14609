package parser

import (
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// RefKind classifies a dotted reference against the known fields and materials.
type RefKind int

// Dotted reference kinds.
const (
	// RefUnknown has a base that names neither a field nor a material.
	RefUnknown RefKind = iota
	// RefFieldProperty reads a property of the material selected in a
	// material-typed field.
	RefFieldProperty
	// RefMaterialProperty reads a property of a catalog material directly.
	RefMaterialProperty
	// RefNonMaterialField has a base that names a field which cannot select
	// a material, so it exposes no properties.
	RefNonMaterialField
)

func (k RefKind) String() string {
	switch k {
	case RefFieldProperty:
		return "field-property"
	case RefMaterialProperty:
		return "material-property"
	case RefNonMaterialField:
		return "non-material-field"
	default:
		return "unknown"
	}
}

// Schema is the set of names a formula can refer to.
type Schema struct {
	fields    map[string]*core.Field
	materials map[string]*core.Material
	order     []core.Material
}

// NewSchema indexes fields and materials by variable name.
func NewSchema(fields []core.Field, materials []core.Material) *Schema {
	s := &Schema{
		fields:    make(map[string]*core.Field, len(fields)),
		materials: core.MaterialIndex(materials),
		order:     materials,
	}
	for i := range fields {
		s.fields[fields[i].VariableName] = &fields[i]
	}
	return s
}

// Field returns the field with the given variable name.
func (s *Schema) Field(name string) (*core.Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Material returns the material with the given variable name.
func (s *Schema) Material(name string) (*core.Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

// Materials returns the catalog in its original order.
func (s *Schema) Materials() []core.Material {
	return s.order
}

// Classify returns the kind of a dotted reference with the given base.
// A material-typed field shadows a material of the same name.
func (s *Schema) Classify(base string) RefKind {
	if f, ok := s.fields[base]; ok && f.Type == core.FieldMaterial {
		return RefFieldProperty
	}
	if _, ok := s.materials[base]; ok {
		return RefMaterialProperty
	}
	if _, ok := s.fields[base]; ok {
		return RefNonMaterialField
	}
	return RefUnknown
}

// Ref is a dotted reference found in a formula.
type Ref struct {
	Kind     RefKind
	Base     string
	Property string
	// Index is the position of the token in Scan.Tokens.
	Index int
}

// Text returns the reference as written.
func (r Ref) Text() string {
	return r.Base + "." + r.Property
}

// Ident is a plain identifier found in a formula.
type Ident struct {
	Name string
	// Call is set when the identifier is immediately followed by '('.
	Call  bool
	Index int
}

// Scan is the token stream of a formula plus its references, in source order.
type Scan struct {
	Tokens []token.Token
	Refs   []Ref
	Idents []Ident
}

// Parse tokenizes expr and classifies its references against schema.
func Parse(expr string, schema *Schema) *Scan {
	s := &Scan{Tokens: Tokenize(expr)}
	for i, tok := range s.Tokens {
		switch tok.Type {
		case token.DOTTED:
			s.Refs = append(s.Refs, Ref{
				Kind:     schema.Classify(tok.Base),
				Base:     tok.Base,
				Property: tok.Property,
				Index:    i,
			})
		case token.IDENT:
			s.Idents = append(s.Idents, Ident{
				Name:  tok.Text,
				Call:  s.nextSignificant(i) == token.LPAREN,
				Index: i,
			})
		}
	}
	return s
}

// RefsOf returns the references of the given kind.
func (s *Scan) RefsOf(kind RefKind) []Ref {
	var out []Ref
	for _, r := range s.Refs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// IsCall reports whether the token at index i is an identifier used as a
// function name.
func (s *Scan) IsCall(i int) bool {
	return s.Tokens[i].Type == token.IDENT && s.nextSignificant(i) == token.LPAREN
}

func (s *Scan) nextSignificant(i int) token.TokenType {
	for j := i + 1; j < len(s.Tokens); j++ {
		if s.Tokens[j].Type != token.SPACE {
			return s.Tokens[j].Type
		}
	}
	return token.EOF
}
