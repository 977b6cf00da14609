package formula

import (
	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

// PropertyRef is a base.property reference.
type PropertyRef struct {
	Base     string `json:"base"`
	Property string `json:"property"`
}

func (r PropertyRef) String() string {
	return r.Base + "." + r.Property
}

// Analysis describes the names a formula uses. Every list is in order of
// first appearance without duplicates.
type Analysis struct {
	// Variables are plain identifiers naming fields or materials.
	Variables []string `json:"variables"`
	// UnknownVariables name nothing the formula can read.
	UnknownVariables     []string      `json:"unknown_variables"`
	FieldPropertyRefs    []PropertyRef `json:"field_property_refs"`
	MaterialPropertyRefs []PropertyRef `json:"material_property_refs"`
	// MathFunctions are the registered functions and constants used.
	MathFunctions []string `json:"math_functions"`
}

// Analyze reports which fields, materials, properties and functions expr
// refers to. It evaluates nothing.
func Analyze(expr string, fields []core.Field, materials []core.Material) Analysis {
	schema := parser.NewSchema(fields, materials)
	in := arith.Default()
	scan := parser.Parse(expr, schema)

	a := Analysis{
		Variables:            []string{},
		UnknownVariables:     []string{},
		FieldPropertyRefs:    []PropertyRef{},
		MaterialPropertyRefs: []PropertyRef{},
		MathFunctions:        []string{},
	}
	seen := make(map[string]bool)
	once := func(list *[]string, group, name string) {
		key := group + ":" + name
		if !seen[key] {
			seen[key] = true
			*list = append(*list, name)
		}
	}
	onceRef := func(list *[]PropertyRef, group string, ref PropertyRef) {
		key := group + ":" + ref.String()
		if !seen[key] {
			seen[key] = true
			*list = append(*list, ref)
		}
	}

	refs := make(map[int]parser.Ref, len(scan.Refs))
	for _, r := range scan.Refs {
		refs[r.Index] = r
	}
	idents := make(map[int]parser.Ident, len(scan.Idents))
	for _, id := range scan.Idents {
		idents[id.Index] = id
	}

	for i := range scan.Tokens {
		if ref, ok := refs[i]; ok {
			pr := PropertyRef{Base: ref.Base, Property: ref.Property}
			switch ref.Kind {
			case parser.RefFieldProperty:
				onceRef(&a.FieldPropertyRefs, "field", pr)
			case parser.RefMaterialProperty:
				onceRef(&a.MaterialPropertyRefs, "material", pr)
			case parser.RefNonMaterialField, parser.RefUnknown:
				once(&a.UnknownVariables, "unknown", pr.String())
			}
			continue
		}
		id, ok := idents[i]
		if !ok {
			continue
		}
		_, isField := schema.Field(id.Name)
		_, isMaterial := schema.Material(id.Name)
		switch {
		case id.Call && in.IsFunction(id.Name):
			once(&a.MathFunctions, "math", id.Name)
		case isField || isMaterial:
			once(&a.Variables, "var", id.Name)
		case in.Knows(id.Name):
			once(&a.MathFunctions, "math", id.Name)
		default:
			once(&a.UnknownVariables, "unknown", id.Name)
		}
	}
	return a
}
