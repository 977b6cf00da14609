package loader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/units"
)

// workspaceDoc is the on-disk shape of a workspace. The same tags serve the
// YAML, TOML and JSON encodings.
type workspaceDoc struct {
	Name      string        `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Materials []materialDoc `yaml:"materials" toml:"materials" json:"materials"`
	Modules   []moduleDoc   `yaml:"modules" toml:"modules" json:"modules"`
	Quotes    []quoteDoc    `yaml:"quotes" toml:"quotes" json:"quotes"`
}

type materialDoc struct {
	VariableName string                 `yaml:"variable_name" toml:"variable_name" json:"variable_name"`
	Name         string                 `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Price        float64                `yaml:"price" toml:"price" json:"price"`
	Category     string                 `yaml:"category,omitempty" toml:"category,omitempty" json:"category,omitempty"`
	Properties   map[string]propertyDoc `yaml:"properties,omitempty" toml:"properties,omitempty" json:"properties,omitempty"`
}

type propertyDoc struct {
	Type       string   `yaml:"type" toml:"type" json:"type"`
	Value      any      `yaml:"value" toml:"value" json:"value"`
	BaseValue  *float64 `yaml:"base_value,omitempty" toml:"base_value,omitempty" json:"base_value,omitempty"`
	UnitSymbol string   `yaml:"unit,omitempty" toml:"unit,omitempty" json:"unit,omitempty"`
}

type moduleDoc struct {
	ID              string      `yaml:"id" toml:"id" json:"id"`
	Name            string      `yaml:"name" toml:"name" json:"name"`
	Description     string      `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Fields          []fieldDoc  `yaml:"fields" toml:"fields" json:"fields"`
	Formula         string      `yaml:"formula" toml:"formula" json:"formula"`
	ComputedOutputs []outputDoc `yaml:"computed_outputs,omitempty" toml:"computed_outputs,omitempty" json:"computed_outputs,omitempty"`
}

type fieldDoc struct {
	ID               string   `yaml:"id,omitempty" toml:"id,omitempty" json:"id,omitempty"`
	Label            string   `yaml:"label,omitempty" toml:"label,omitempty" json:"label,omitempty"`
	VariableName     string   `yaml:"variable_name" toml:"variable_name" json:"variable_name"`
	Type             string   `yaml:"type" toml:"type" json:"type"`
	Required         bool     `yaml:"required,omitempty" toml:"required,omitempty" json:"required,omitempty"`
	Options          []string `yaml:"options,omitempty" toml:"options,omitempty" json:"options,omitempty"`
	DropdownMode     string   `yaml:"dropdown_mode,omitempty" toml:"dropdown_mode,omitempty" json:"dropdown_mode,omitempty"`
	DefaultValue     any      `yaml:"default,omitempty" toml:"default,omitempty" json:"default,omitempty"`
	UnitSymbol       string   `yaml:"unit,omitempty" toml:"unit,omitempty" json:"unit,omitempty"`
	MaterialCategory string   `yaml:"material_category,omitempty" toml:"material_category,omitempty" json:"material_category,omitempty"`
}

type outputDoc struct {
	ID           string `yaml:"id,omitempty" toml:"id,omitempty" json:"id,omitempty"`
	Label        string `yaml:"label,omitempty" toml:"label,omitempty" json:"label,omitempty"`
	VariableName string `yaml:"variable_name" toml:"variable_name" json:"variable_name"`
	Expression   string `yaml:"expression" toml:"expression" json:"expression"`
}

type quoteDoc struct {
	ID        string        `yaml:"id" toml:"id" json:"id"`
	Name      string        `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Instances []instanceDoc `yaml:"instances" toml:"instances" json:"instances"`
}

type instanceDoc struct {
	ID       string             `yaml:"id" toml:"id" json:"id"`
	ModuleID string             `yaml:"module" toml:"module" json:"module"`
	Label    string             `yaml:"label,omitempty" toml:"label,omitempty" json:"label,omitempty"`
	Values   map[string]any     `yaml:"values,omitempty" toml:"values,omitempty" json:"values,omitempty"`
	Links    map[string]linkDoc `yaml:"links,omitempty" toml:"links,omitempty" json:"links,omitempty"`
}

type linkDoc struct {
	Instance string `yaml:"instance" toml:"instance" json:"instance"`
	Field    string `yaml:"field" toml:"field" json:"field"`
}

// ValidationError lists every problem found in a workspace document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid workspace: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid workspace: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// IsValidationError reports whether err is a workspace validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// toWorkspace converts and validates a decoded document.
func (d *workspaceDoc) toWorkspace() (*core.Workspace, error) {
	var errs problems
	ws := &core.Workspace{Name: d.Name}

	seenMaterials := make(map[string]bool)
	for _, md := range d.Materials {
		m := md.toMaterial(&errs)
		if seenMaterials[m.VariableName] {
			errs.addf("material %q: duplicate variable name", m.VariableName)
		}
		seenMaterials[m.VariableName] = true
		ws.Materials = append(ws.Materials, m)
	}

	modules := make(map[string]*core.Module)
	for _, md := range d.Modules {
		m := md.toModule(&errs)
		if _, dup := modules[m.ID]; dup {
			errs.addf("module %q: duplicate id", m.ID)
		}
		ws.Modules = append(ws.Modules, m)
		modules[m.ID] = &ws.Modules[len(ws.Modules)-1]
	}

	for _, qd := range d.Quotes {
		ws.Quotes = append(ws.Quotes, qd.toQuote(modules, &errs))
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Problems: errs}
	}
	return ws, nil
}

func (md materialDoc) toMaterial(errs *problems) core.Material {
	m := core.Material{
		VariableName: md.VariableName,
		Name:         md.Name,
		Price:        md.Price,
		Category:     md.Category,
	}
	if !core.ValidVariableName(md.VariableName) {
		errs.addf("material %q: invalid variable name", md.VariableName)
	}
	if len(md.Properties) > 0 {
		m.Properties = make(map[string]core.Property, len(md.Properties))
	}
	for name, pd := range md.Properties {
		v, err := core.ValueOf(pd.Value)
		if err != nil {
			errs.addf("material %q: property %q: %v", md.VariableName, name, err)
		}
		p := core.Property{
			Type:       core.PropertyType(pd.Type),
			Value:      v,
			BaseValue:  pd.BaseValue,
			UnitSymbol: pd.UnitSymbol,
		}
		if p.Type == "" {
			p.Type = propertyTypeOf(v)
		}
		if !p.Type.Valid() {
			errs.addf("material %q: property %q: unknown type %q", md.VariableName, name, pd.Type)
		}
		if p.UnitSymbol != "" {
			if _, ok := units.Lookup(p.UnitSymbol); !ok {
				errs.addf("material %q: property %q: unknown unit %q", md.VariableName, name, p.UnitSymbol)
			}
		}
		m.Properties[name] = p
	}
	return m
}

func propertyTypeOf(v core.Value) core.PropertyType {
	switch v.Kind() {
	case core.ValueString:
		return core.PropertyString
	case core.ValueBool:
		return core.PropertyBoolean
	default:
		return core.PropertyNumber
	}
}

func (md moduleDoc) toModule(errs *problems) core.Module {
	m := core.Module{
		ID:          md.ID,
		Name:        md.Name,
		Description: md.Description,
		Formula:     md.Formula,
	}
	if md.ID == "" {
		errs.addf("module with empty id")
	}

	seen := make(map[string]bool)
	for _, fd := range md.Fields {
		f := fd.toField(md.ID, errs)
		if seen[f.VariableName] {
			errs.addf("module %q: field %q: duplicate variable name", md.ID, f.VariableName)
		}
		seen[f.VariableName] = true
		m.Fields = append(m.Fields, f)
	}

	for _, od := range md.ComputedOutputs {
		switch {
		case !core.ValidVariableName(od.VariableName):
			errs.addf("module %q: output %q: invalid variable name", md.ID, od.VariableName)
		case seen[od.VariableName]:
			errs.addf("module %q: output %q: name already used by a field or output", md.ID, od.VariableName)
		}
		seen[od.VariableName] = true
		m.ComputedOutputs = append(m.ComputedOutputs, core.ComputedOutput(od))
	}
	return m
}

func (fd fieldDoc) toField(moduleID string, errs *problems) core.Field {
	f := core.Field{
		ID:               fd.ID,
		Label:            fd.Label,
		VariableName:     fd.VariableName,
		Type:             core.FieldType(fd.Type),
		Required:         fd.Required,
		Options:          fd.Options,
		DropdownMode:     core.DropdownMode(fd.DropdownMode),
		MaterialCategory: fd.MaterialCategory,
	}
	if f.ID == "" {
		f.ID = f.VariableName
	}
	if f.Label == "" {
		f.Label = f.VariableName
	}
	if !core.ValidVariableName(fd.VariableName) {
		errs.addf("module %q: field %q: invalid variable name", moduleID, fd.VariableName)
	}
	if !f.Type.Valid() {
		errs.addf("module %q: field %q: unknown type %q", moduleID, fd.VariableName, fd.Type)
	}
	switch f.DropdownMode {
	case "", core.DropdownSelect, core.DropdownFree:
	default:
		errs.addf("module %q: field %q: unknown dropdown mode %q", moduleID, fd.VariableName, fd.DropdownMode)
	}

	v, err := core.ValueOf(fd.DefaultValue)
	if err != nil {
		errs.addf("module %q: field %q: default: %v", moduleID, fd.VariableName, err)
	}
	f.DefaultValue = v

	// The category is always recomputed from the symbol.
	f.SetUnit(fd.UnitSymbol)
	if fd.UnitSymbol != "" && f.UnitCategory == "" {
		errs.addf("module %q: field %q: unknown unit %q", moduleID, fd.VariableName, fd.UnitSymbol)
	}
	return f
}

func (qd quoteDoc) toQuote(modules map[string]*core.Module, errs *problems) core.Quote {
	q := core.Quote{ID: qd.ID, Name: qd.Name}
	seen := make(map[string]bool)
	for _, id := range qd.Instances {
		if seen[id.ID] {
			errs.addf("quote %q: instance %q: duplicate id", qd.ID, id.ID)
		}
		seen[id.ID] = true
		if _, ok := modules[id.ModuleID]; !ok {
			errs.addf("quote %q: instance %q: module %q not found", qd.ID, id.ID, id.ModuleID)
		}

		in := core.Instance{
			ID:          id.ID,
			ModuleID:    id.ModuleID,
			Label:       id.Label,
			FieldValues: make(map[string]core.Value, len(id.Values)),
			FieldLinks:  make(map[string]core.FieldLink, len(id.Links)),
		}
		for _, name := range sortedKeys(id.Values) {
			v, err := core.ValueOf(id.Values[name])
			if err != nil {
				errs.addf("quote %q: instance %q: value %q: %v", qd.ID, id.ID, name, err)
			}
			in.FieldValues[name] = v
		}
		// Broken links are kept; they fall back to the stored value.
		for name, l := range id.Links {
			in.FieldLinks[name] = core.FieldLink{TargetInstanceID: l.Instance, TargetVariableName: l.Field}
		}
		q.Instances = append(q.Instances, in)
	}
	return q
}

// fromWorkspace converts a workspace back into its document shape.
func fromWorkspace(ws *core.Workspace) *workspaceDoc {
	d := &workspaceDoc{
		Name:      ws.Name,
		Materials: []materialDoc{},
		Modules:   []moduleDoc{},
		Quotes:    []quoteDoc{},
	}
	for _, m := range ws.Materials {
		md := materialDoc{VariableName: m.VariableName, Name: m.Name, Price: m.Price, Category: m.Category}
		if len(m.Properties) > 0 {
			md.Properties = make(map[string]propertyDoc, len(m.Properties))
		}
		for name, p := range m.Properties {
			md.Properties[name] = propertyDoc{
				Type:       string(p.Type),
				Value:      p.Value.Interface(),
				BaseValue:  p.BaseValue,
				UnitSymbol: p.UnitSymbol,
			}
		}
		d.Materials = append(d.Materials, md)
	}
	for _, m := range ws.Modules {
		md := moduleDoc{ID: m.ID, Name: m.Name, Description: m.Description, Formula: m.Formula, Fields: []fieldDoc{}}
		for _, f := range m.Fields {
			md.Fields = append(md.Fields, fieldDoc{
				ID:               f.ID,
				Label:            f.Label,
				VariableName:     f.VariableName,
				Type:             string(f.Type),
				Required:         f.Required,
				Options:          f.Options,
				DropdownMode:     string(f.DropdownMode),
				DefaultValue:     f.DefaultValue.Interface(),
				UnitSymbol:       f.UnitSymbol,
				MaterialCategory: f.MaterialCategory,
			})
		}
		for _, o := range m.ComputedOutputs {
			md.ComputedOutputs = append(md.ComputedOutputs, outputDoc(o))
		}
		d.Modules = append(d.Modules, md)
	}
	for _, q := range ws.Quotes {
		qd := quoteDoc{ID: q.ID, Name: q.Name, Instances: []instanceDoc{}}
		for _, in := range q.Instances {
			id := instanceDoc{ID: in.ID, ModuleID: in.ModuleID, Label: in.Label}
			for name, v := range in.FieldValues {
				// TOML has no null
				if v.IsNone() {
					continue
				}
				if id.Values == nil {
					id.Values = make(map[string]any)
				}
				id.Values[name] = v.Interface()
			}
			for name, l := range in.FieldLinks {
				if id.Links == nil {
					id.Links = make(map[string]linkDoc)
				}
				id.Links[name] = linkDoc{Instance: l.TargetInstanceID, Field: l.TargetVariableName}
			}
			qd.Instances = append(qd.Instances, id)
		}
		d.Quotes = append(d.Quotes, qd)
	}
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
