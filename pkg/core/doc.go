// Package core defines the shared language of the LeapCalc system.
//
// This package contains:
//   - Catalog entities (Material, Property)
//   - Module definitions (Module, Field, ComputedOutput)
//   - Quote entities (Quote, Instance, FieldLink) and the Workspace that holds them
//   - The tagged Value carried by field values and material properties
//   - Run history types and the Store interface
//
// The Golden Rule: pkg/core imports ONLY pkg/units and stdlib.
// All other packages depend on core, not the reverse.
package core
