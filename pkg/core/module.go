package core

// ComputedOutput is a derived expression evaluated after the module formula.
// Outputs see fields and every output declared before them.
type ComputedOutput struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	VariableName string `json:"variable_name"`
	Expression   string `json:"expression"`
}

// Module is a reusable calculation: typed fields plus a formula.
type Module struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Fields          []Field          `json:"fields"`
	Formula         string           `json:"formula"`
	ComputedOutputs []ComputedOutput `json:"computed_outputs,omitempty"`
}

// Field returns the field with the given variable name.
func (m *Module) Field(name string) (*Field, bool) {
	for i := range m.Fields {
		if m.Fields[i].VariableName == name {
			return &m.Fields[i], true
		}
	}
	return nil, false
}

// FieldLink sources a field's value from a field on another instance.
type FieldLink struct {
	TargetInstanceID   string `json:"target_instance_id"`
	TargetVariableName string `json:"target_variable_name"`
}

// Instance is a configured occurrence of a module inside a quote.
// A link on a field overrides its stored value; the stored value is kept as
// the fallback when the link breaks.
type Instance struct {
	ID          string               `json:"id"`
	ModuleID    string               `json:"module_id"`
	Label       string               `json:"label,omitempty"`
	FieldValues map[string]Value     `json:"field_values,omitempty"`
	FieldLinks  map[string]FieldLink `json:"field_links,omitempty"`
}

// Clone returns a deep copy of the instance maps.
func (in Instance) Clone() Instance {
	out := in
	out.FieldValues = make(map[string]Value, len(in.FieldValues))
	for k, v := range in.FieldValues {
		out.FieldValues[k] = v
	}
	out.FieldLinks = make(map[string]FieldLink, len(in.FieldLinks))
	for k, v := range in.FieldLinks {
		out.FieldLinks[k] = v
	}
	return out
}

// Quote is an ordered list of module instances.
type Quote struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Instances []Instance `json:"instances"`
}

// Workspace holds everything a quote evaluation reads: the material catalog,
// the module definitions and the quotes built from them.
type Workspace struct {
	Name      string     `json:"name,omitempty"`
	Materials []Material `json:"materials"`
	Modules   []Module   `json:"modules"`
	Quotes    []Quote    `json:"quotes"`
}

// Module returns the module with the given ID.
func (w *Workspace) Module(id string) (*Module, bool) {
	for i := range w.Modules {
		if w.Modules[i].ID == id {
			return &w.Modules[i], true
		}
	}
	return nil, false
}

// Quote returns the quote with the given ID.
func (w *Workspace) Quote(id string) (*Quote, bool) {
	for i := range w.Quotes {
		if w.Quotes[i].ID == id {
			return &w.Quotes[i], true
		}
	}
	return nil, false
}
