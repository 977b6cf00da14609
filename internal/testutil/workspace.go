package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleWorkspaceYAML is a small workspace used across package tests.
//
// Quote q1 evaluates to 137: the wall line is 4 * 2.5 * 12.5 = 125 and the
// trim line reads its length from the wall's width, 4 * 3 = 12.
const SampleWorkspaceYAML = `name: sample
materials:
  - variable_name: mat_board
    name: Gypsum board
    price: 12.5
    category: board
    properties:
      width:
        type: number
        value: 1.2
        unit: m
      thickness:
        type: number
        value: 10
        unit: mm
  - variable_name: mat_generic
    price: 9
    category: board
  - variable_name: paint
    price: 20
    category: finish
    properties:
      coverage:
        type: number
        value: 8
modules:
  - id: wall
    name: Wall
    fields:
      - variable_name: width
        type: number
        unit: m
      - variable_name: height
        type: number
        unit: m
      - variable_name: board
        type: material
        material_category: board
      - variable_name: coats
        type: number
        default: 2
    formula: width * height * board.price
    computed_outputs:
      - id: out-area
        label: Area
        variable_name: area
        expression: width * height
      - id: out-boards
        label: Boards
        variable_name: boards
        expression: ceil(area / board.width)
  - id: trim
    name: Trim
    fields:
      - variable_name: length
        type: number
        unit: m
      - variable_name: rate
        type: number
        default: 3
    formula: length * rate
quotes:
  - id: q1
    name: Kitchen
    instances:
      - id: w1
        module: wall
        values:
          width: 4
          height: 2.5
          board: mat_board
      - id: t1
        module: trim
        values:
          length: 1
        links:
          length:
            instance: w1
            field: width
`

// WriteWorkspace writes SampleWorkspaceYAML into dir and returns its path.
func WriteWorkspace(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "workspace.yaml")
	if err := os.WriteFile(path, []byte(SampleWorkspaceYAML), 0o600); err != nil {
		t.Fatalf("failed to write workspace: %v", err)
	}
	return path
}
