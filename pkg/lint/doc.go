// Package lint checks formulas against field and material definitions before
// any value is known.
//
// # Rules
//
// Checks are data-driven RuleDef values run in ID order:
//
//   - LC01 (references.field-property): properties read through a material
//     field exist on some material the field may select
//   - LC02 (references.material-property): properties read from a catalog
//     material exist on it
//   - LC03 (references.undefined): every name is a field, a material, a
//     known variable, or a registered function or constant
//   - LC04 (units.compatibility): adjacent additions, subtractions and
//     divisions combine compatible unit categories
//   - LC05 (syntax.probe): the formula parses and runs with every reference
//     set to 1
//
// # Usage
//
// Validate returns the first failure, which is what an editor shows:
//
//	res := lint.Validate("material.width * qty", fields, materials)
//	if !res.Valid {
//		fmt.Println(res.Error)
//	}
//
// Diagnostics returns every finding for lint-style listings:
//
//	cfg := lint.NewConfig().Disable("LC04")
//	for _, d := range lint.Diagnostics(expr, fields, materials, lint.WithConfig(cfg)) {
//		fmt.Println(d.RuleID, d.Message)
//	}
package lint
