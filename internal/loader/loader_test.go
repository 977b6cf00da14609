package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/units"
)

const sampleTOML = `
name = "toml sample"

[[materials]]
variable_name = "mat_board"
price = 12
category = "board"

[materials.properties.width]
type = "number"
value = 1.2
unit = "m"

[[modules]]
id = "wall"
name = "Wall"
formula = "width * board.price"

[[modules.fields]]
variable_name = "width"
type = "number"
unit = "ft"

[[modules.fields]]
variable_name = "board"
type = "material"

[[quotes]]
id = "q1"

[[quotes.instances]]
id = "w1"
module = "wall"

[quotes.instances.values]
width = 3
board = "mat_board"
`

const sampleJSON = `{
  "materials": [{"variable_name": "steel", "price": 4.5}],
  "modules": [{
    "id": "beam",
    "name": "Beam",
    "fields": [{"variable_name": "mass", "type": "number", "unit": "kg", "default": 10}],
    "formula": "mass * steel"
  }],
  "quotes": []
}`

func TestLoad_YAML(t *testing.T) {
	path := testutil.WriteWorkspace(t, t.TempDir())

	ws, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sample", ws.Name)
	require.Len(t, ws.Materials, 3)
	require.Len(t, ws.Modules, 2)
	require.Len(t, ws.Quotes, 1)

	wall, ok := ws.Module("wall")
	require.True(t, ok)
	width, ok := wall.Field("width")
	require.True(t, ok)
	assert.Equal(t, units.Length, width.UnitCategory, "category recomputed from unit")
	assert.Equal(t, "width", width.ID, "id defaults to variable name")

	coats, _ := wall.Field("coats")
	assert.Equal(t, core.Number(2), coats.DefaultValue)
	require.Len(t, wall.ComputedOutputs, 2)
	assert.Equal(t, "boards", wall.ComputedOutputs[1].VariableName)

	q, ok := ws.Quote("q1")
	require.True(t, ok)
	assert.Equal(t, core.String("mat_board"), q.Instances[0].FieldValues["board"])
	assert.Equal(t, core.FieldLink{TargetInstanceID: "w1", TargetVariableName: "width"}, q.Instances[1].FieldLinks["length"])

	board := core.MaterialIndex(ws.Materials)["mat_board"]
	assert.Equal(t, core.PropertyNumber, board.Properties["width"].Type)
}

func TestDecode_TOML(t *testing.T) {
	ws, err := Decode(strings.NewReader(sampleTOML), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "toml sample", ws.Name)
	assert.InDelta(t, 12.0, ws.Materials[0].Price, 1e-9)
	assert.Equal(t, core.Number(1.2), ws.Materials[0].Properties["width"].Value)
	assert.Equal(t, units.Length, ws.Modules[0].Fields[0].UnitCategory)
	assert.Equal(t, core.Number(3), ws.Quotes[0].Instances[0].FieldValues["width"])
}

func TestDecode_JSON(t *testing.T) {
	ws, err := Decode(strings.NewReader(sampleJSON), FormatJSON)
	require.NoError(t, err)

	mass := ws.Modules[0].Fields[0]
	assert.Equal(t, units.Weight, mass.UnitCategory)
	assert.Equal(t, core.Number(10), mass.DefaultValue)
	assert.Empty(t, ws.Quotes)
}

func TestDecode_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "bad variable name",
			doc:     "modules:\n  - id: m\n    fields:\n      - {variable_name: 2x, type: number}\n",
			problem: `module "m": field "2x": invalid variable name`,
		},
		{
			name:    "duplicate variable name",
			doc:     "modules:\n  - id: m\n    fields:\n      - {variable_name: a, type: number}\n      - {variable_name: a, type: text}\n",
			problem: `module "m": field "a": duplicate variable name`,
		},
		{
			name:    "unknown field type",
			doc:     "modules:\n  - id: m\n    fields:\n      - {variable_name: a, type: date}\n",
			problem: `module "m": field "a": unknown type "date"`,
		},
		{
			name:    "unknown unit",
			doc:     "modules:\n  - id: m\n    fields:\n      - {variable_name: a, type: number, unit: parsec}\n",
			problem: `module "m": field "a": unknown unit "parsec"`,
		},
		{
			name:    "missing module",
			doc:     "quotes:\n  - id: q\n    instances:\n      - {id: i, module: nope}\n",
			problem: `quote "q": instance "i": module "nope" not found`,
		},
		{
			name:    "output shadows field",
			doc:     "modules:\n  - id: m\n    fields:\n      - {variable_name: a, type: number}\n    computed_outputs:\n      - {id: o, variable_name: a, expression: a * 2}\n",
			problem: `module "m": output "a": name already used by a field or output`,
		},
		{
			name:    "bad output name",
			doc:     "modules:\n  - id: m\n    computed_outputs:\n      - {id: o, variable_name: 1st, expression: \"2\"}\n",
			problem: `module "m": output "1st": invalid variable name`,
		},
		{
			name:    "bad material name",
			doc:     "materials:\n  - {variable_name: my board, price: 1}\n",
			problem: `material "my board": invalid variable name`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), FormatYAML)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.(*ValidationError).Problems, tt.problem)
		})
	}
}

func TestDecode_UnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("modulez: []\n"), FormatYAML)
	assert.ErrorContains(t, err, "failed to parse YAML")

	_, err = Decode(strings.NewReader("modulez = []\n"), FormatTOML)
	assert.ErrorContains(t, err, "unknown key")

	_, err = Decode(strings.NewReader(`{"modulez": []}`), FormatJSON)
	assert.ErrorContains(t, err, "failed to parse JSON")
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML, "a.YML": FormatYAML, "a.toml": FormatTOML, "a.json": FormatJSON,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("a.ini")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	src, err := Load(testutil.WriteWorkspace(t, t.TempDir()))
	require.NoError(t, err)

	for _, ext := range []string{".yaml", ".toml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ws"+ext)
			require.NoError(t, Save(context.Background(), path, src))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, src, got)
		})
	}
}

func TestUpdate(t *testing.T) {
	path := testutil.WriteWorkspace(t, t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, path, func(ws *core.Workspace) error {
				ws.Materials[0].Price++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ws, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 16.5, ws.Materials[0].Price, 1e-9, "no update lost")

	before, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = Update(ctx, path, func(*core.Workspace) error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "failed update leaves the file alone")
}
