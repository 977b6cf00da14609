package lint

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/leapstack-labs/leapcalc/pkg/units"
)

// FieldProperty checks properties read through material fields.
var FieldProperty = RuleDef{
	ID:          "LC01",
	Name:        "references.field-property",
	Group:       "references",
	Description: "Properties read through a field must exist on a material the field can select",
	Severity:    core.SeverityError,
	Check:       checkFieldProperty,
}

// MaterialProperty checks properties read from catalog materials.
var MaterialProperty = RuleDef{
	ID:          "LC02",
	Name:        "references.material-property",
	Group:       "references",
	Description: "Properties read from a material must exist on that material",
	Severity:    core.SeverityError,
	Check:       checkMaterialProperty,
}

// Undefined checks that every name refers to something.
var Undefined = RuleDef{
	ID:          "LC03",
	Name:        "references.undefined",
	Group:       "references",
	Description: "Names must be fields, materials, known variables, functions or constants",
	Severity:    core.SeverityError,
	Check:       checkUndefined,
}

// UnitCompatibility checks adjacent operations for unit mismatches.
var UnitCompatibility = RuleDef{
	ID:          "LC04",
	Name:        "units.compatibility",
	Group:       "units",
	Description: "Added, subtracted and divided operands must have compatible units",
	Severity:    core.SeverityError,
	Check:       checkUnits,
}

// SyntaxProbe checks that the formula runs.
var SyntaxProbe = RuleDef{
	ID:          "LC05",
	Name:        "syntax.probe",
	Group:       "syntax",
	Description: "The formula must parse and run with every reference set to 1",
	Severity:    core.SeverityError,
	Check:       checkSyntax,
}

func init() {
	for _, r := range []RuleDef{FieldProperty, MaterialProperty, Undefined, UnitCompatibility, SyntaxProbe} {
		Register(r)
	}
}

// exposes reports whether any of materials has property prop.
func exposes(materials []core.Material, prop string) bool {
	if prop == formula.PriceProperty {
		return true
	}
	for i := range materials {
		if _, ok := materials[i].Property(prop); ok {
			return true
		}
	}
	return false
}

func checkFieldProperty(in *Input) []Diagnostic {
	var diags []Diagnostic
	for _, ref := range in.Scan.Refs {
		tok := in.Scan.Tokens[ref.Index]
		switch ref.Kind {
		case parser.RefNonMaterialField:
			f, _ := in.Schema.Field(ref.Base)
			diags = append(diags, diagnostic(tok, formula.NewPropertyNotFoundError(ref.Base, ref.Property,
				fmt.Sprintf("Field '%s' is a %s field and has no property '%s'", ref.Base, f.Type, ref.Property))))
		case parser.RefFieldProperty:
			f, _ := in.Schema.Field(ref.Base)
			candidates := core.MaterialsInCategory(in.Materials, f.MaterialCategory)
			if exposes(candidates, ref.Property) {
				continue
			}
			msg := fmt.Sprintf("Property '%s' not found on any material for field '%s'", ref.Property, ref.Base)
			if f.MaterialCategory != "" {
				msg = fmt.Sprintf("Property '%s' not found on any material in category '%s' for field '%s'",
					ref.Property, f.MaterialCategory, ref.Base)
			}
			diags = append(diags, diagnostic(tok, formula.NewPropertyNotFoundError(ref.Base, ref.Property, msg)))
		}
	}
	return diags
}

func checkMaterialProperty(in *Input) []Diagnostic {
	var diags []Diagnostic
	for _, ref := range in.Scan.RefsOf(parser.RefMaterialProperty) {
		m, _ := in.Schema.Material(ref.Base)
		if exposes([]core.Material{*m}, ref.Property) {
			continue
		}
		diags = append(diags, diagnostic(in.Scan.Tokens[ref.Index], formula.NewPropertyNotFoundError(ref.Base, ref.Property,
			fmt.Sprintf("Material '%s' has no property '%s'", ref.Base, ref.Property))))
	}
	return diags
}

func checkUndefined(in *Input) []Diagnostic {
	var diags []Diagnostic
	for i, tok := range in.Scan.Tokens {
		switch tok.Type {
		case token.IDENT:
			if in.Scan.IsCall(i) {
				if !in.Interp.IsFunction(tok.Text) {
					diags = append(diags, diagnostic(tok, formula.NewUnknownFunctionError(tok.Text)))
				}
				continue
			}
			if !in.isKnownName(tok.Text) {
				diags = append(diags, diagnostic(tok, formula.NewUndefinedVariableError(tok.Text)))
			}
		case token.DOTTED:
			if in.Schema.Classify(tok.Base) == parser.RefUnknown {
				diags = append(diags, diagnostic(tok, formula.NewUndefinedVariableError(tok.Base)))
			}
		}
	}
	return diags
}

// operandCategory infers the unit category of the operand token at index i.
// The empty category means unknown.
func operandCategory(in *Input, toks []token.Token, i int) units.Category {
	tok := toks[i]
	switch tok.Type {
	case token.IDENT:
		if i+1 < len(toks) && toks[i+1].Type == token.LPAREN {
			return ""
		}
		if f, ok := in.Schema.Field(tok.Text); ok {
			return fieldCategory(f)
		}
	case token.DOTTED:
		switch in.Schema.Classify(tok.Base) {
		case parser.RefFieldProperty:
			f, _ := in.Schema.Field(tok.Base)
			for _, m := range core.MaterialsInCategory(in.Materials, f.MaterialCategory) {
				if c := propertyCategory(&m, tok.Property); c != "" {
					return c
				}
			}
		case parser.RefMaterialProperty:
			m, _ := in.Schema.Material(tok.Base)
			return propertyCategory(m, tok.Property)
		}
	}
	return ""
}

func fieldCategory(f *core.Field) units.Category {
	switch f.Type {
	case core.FieldNumber:
		if f.UnitCategory != "" {
			return f.UnitCategory
		}
		c, _ := units.CategoryOf(f.UnitSymbol)
		return c
	case core.FieldText, core.FieldDropdown, core.FieldBoolean, core.FieldMaterial:
		return ""
	default:
		return ""
	}
}

func propertyCategory(m *core.Material, prop string) units.Category {
	p, ok := m.Property(prop)
	if !ok || p.Type != core.PropertyNumber {
		return ""
	}
	c, _ := units.CategoryOf(p.UnitSymbol)
	return c
}

func isMulDiv(t token.TokenType) bool {
	return t == token.STAR || t == token.SLASH || t == token.PERCENT
}

// checkUnits looks at operand-operator-operand triples. An addition whose
// operands belong to a product or quotient is skipped, as is a division whose
// left operand is the end of a product or quotient.
func checkUnits(in *Input) []Diagnostic {
	toks := parser.Significant(in.Scan.Tokens)
	operand := func(i int) bool {
		return i >= 0 && i < len(toks) && (toks[i].Type == token.IDENT || toks[i].Type == token.DOTTED)
	}
	typeAt := func(i int) token.TokenType {
		if i < 0 || i >= len(toks) {
			return token.EOF
		}
		return toks[i].Type
	}

	var diags []Diagnostic
	for i := 1; i+1 < len(toks); i++ {
		op := toks[i].Type
		if op != token.PLUS && op != token.MINUS && op != token.SLASH {
			continue
		}
		if !operand(i-1) || !operand(i+1) {
			continue
		}
		switch op {
		case token.PLUS, token.MINUS:
			if isMulDiv(typeAt(i-2)) || isMulDiv(typeAt(i+2)) {
				continue
			}
		case token.SLASH:
			if isMulDiv(typeAt(i - 2)) {
				continue
			}
		}

		left := operandCategory(in, toks, i-1)
		right := operandCategory(in, toks, i+1)
		if left == "" || right == "" {
			continue
		}

		var bad bool
		if op == token.SLASH {
			_, ok := units.DivideCategories(left, right)
			bad = !ok
		} else {
			bad = !units.CanAdd(left, right)
		}
		if bad {
			err := formula.NewUnitIncompatibilityError(left, toks[i].Text, right)
			d := diagnostic(toks[i], err)
			d.Span = token.SpanOf(toks[i-1], toks[i+1])
			d.Message = fmt.Sprintf("%s ('%s' is %s, '%s' is %s)", err.Error(), toks[i-1].Text, left, toks[i+1].Text, right)
			diags = append(diags, d)
		}
	}
	return diags
}

// checkSyntax replaces every reference with 1 and runs the result.
func checkSyntax(in *Input) []Diagnostic {
	if len(parser.Significant(in.Scan.Tokens)) == 0 {
		return []Diagnostic{{
			Message: "Expression is empty",
			Err:     formula.NewSyntaxError(in.Expr, "Expression is empty", nil),
		}}
	}

	probe := slices.Clone(in.Scan.Tokens)
	for i, tok := range probe {
		switch tok.Type {
		case token.DOTTED:
			probe[i].Text = "1"
		case token.IDENT:
			if in.Scan.IsCall(i) || in.Interp.Knows(tok.Text) {
				continue
			}
			probe[i].Text = "1"
		case token.NUMBER:
			probe[i].Text = arith.NormalizeLiteral(tok.Text)
		}
	}

	texts := make([]string, len(probe))
	for i, t := range probe {
		texts[i] = t.Text
	}
	_, err := in.Interp.Eval(parser.RenderWith(in.Scan.Tokens, texts))
	if err == nil {
		return nil
	}
	msg := formula.DescribeSyntaxError(in.Expr, in.Interp, err)
	var fnErr *arith.FunctionError
	if errors.As(err, &fnErr) {
		msg = fnErr.Message
	}
	return []Diagnostic{{
		Message: msg,
		Span:    spanAll(in.Scan.Tokens),
		Err:     formula.NewSyntaxError(in.Expr, msg, err),
	}}
}

func spanAll(toks []token.Token) token.Span {
	if len(toks) == 0 {
		return token.Span{}
	}
	return token.SpanOf(toks[0], toks[len(toks)-1])
}
