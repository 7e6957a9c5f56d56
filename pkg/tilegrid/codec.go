package tilegrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrUnknownType is returned by [Unmarshal] when the wire object's type
	// tag names no known grid variant. An unknown tag is fatal to the
	// decode: there is no generic fallback representation.
	ErrUnknownType = errors.New("unknown tile grid type")

	// ErrTypeMismatch is returned when a wire object is decoded directly
	// into a variant whose tag does not match the object's type field.
	ErrTypeMismatch = errors.New("tile grid type mismatch")

	// ErrDataLength is returned when a wire object's data array does not
	// hold exactly width*height values.
	ErrDataLength = errors.New("data length does not match extent")

	// ErrDataValue is returned when a byte-valued data array contains a
	// value outside [0, 255].
	ErrDataValue = errors.New("data value outside byte range")

	// ErrLabelCode is returned when a label key cannot be parsed as a byte
	// category code.
	ErrLabelCode = errors.New("label key is not a byte code")
)

// envelope is the wire representation shared by all variants. The type tag
// selects the concrete grid on decode; data holds width*height cell values
// as JSON numbers (bytes for boolean and categorical grids, 32-bit floats
// for numeric grids, with non-finite cells encoded as null).
type envelope struct {
	Type   Type              `json:"type"`
	Zoom   int               `json:"zoom"`
	X      int               `json:"x"`
	Y      int               `json:"y"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Data   json.RawMessage   `json:"data"`
	Labels map[string]string `json:"labels,omitempty"`
}

// wireFloat encodes a float32 cell as a JSON number, or null when the value
// is not finite (JSON has no NaN or Infinity literals).
type wireFloat float32

func (f wireFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Marshal encodes a grid into its tagged wire form. The inverse is
// [Unmarshal]; the round trip preserves geometry, cell data and, for
// categorical grids, the label table.
func Marshal(g Grid) ([]byte, error) {
	switch t := g.(type) {
	case *BooleanTileGrid:
		return t.MarshalJSON()
	case *NumericTileGrid:
		return t.MarshalJSON()
	case *CategoricalTileGrid:
		return t.MarshalJSON()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, g)
	}
}

// Unmarshal decodes a tagged wire object into the concrete grid variant
// named by its type field. An unrecognized tag returns [ErrUnknownType].
func Unmarshal(data []byte) (Grid, error) {
	var probe struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode tile grid: %w", err)
	}

	switch probe.Type {
	case TypeBoolean:
		g := &BooleanTileGrid{}
		if err := g.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return g, nil
	case TypeNumeric:
		g := &NumericTileGrid{}
		if err := g.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return g, nil
	case TypeCategorical:
		g := &CategoricalTileGrid{}
		if err := g.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(probe.Type))
	}
}

// ===== Boolean =====

// MarshalJSON encodes the grid in the tagged wire form with one 0/1 number
// per cell.
func (g *BooleanTileGrid) MarshalJSON() ([]byte, error) {
	cells := make([]uint16, len(g.data))
	for i, v := range g.data {
		cells[i] = uint16(v)
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type: TypeBoolean,
		Zoom: g.zoom, X: g.x, Y: g.y, Width: g.width, Height: g.height,
		Data: data,
	})
}

// UnmarshalJSON decodes a tagged wire object into the grid, validating the
// tag, the geometry and the data length. Nonzero data values are normalized
// to 1.
func (g *BooleanTileGrid) UnmarshalJSON(data []byte) error {
	env, cells, err := decodeByteEnvelope(data, TypeBoolean)
	if err != nil {
		return err
	}
	for i, v := range cells {
		if v != 0 {
			cells[i] = 1
		}
	}
	f, err := newFrame(env.Zoom, env.X, env.Y, env.Width, env.Height)
	if err != nil {
		return err
	}
	g.frame = f
	g.data = cells
	return nil
}

// ===== Numeric =====

// MarshalJSON encodes the grid in the tagged wire form with one number per
// cell; non-finite cells are encoded as null.
func (g *NumericTileGrid) MarshalJSON() ([]byte, error) {
	cells := make([]wireFloat, len(g.data))
	for i, v := range g.data {
		cells[i] = wireFloat(v)
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type: TypeNumeric,
		Zoom: g.zoom, X: g.x, Y: g.y, Width: g.width, Height: g.height,
		Data: data,
	})
}

// UnmarshalJSON decodes a tagged wire object into the grid. Null cells
// decode to NaN, matching the null encoding of non-finite values.
func (g *NumericTileGrid) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode tile grid: %w", err)
	}
	if env.Type != TypeNumeric {
		return fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, env.Type, TypeNumeric)
	}

	var raw []*float64
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return fmt.Errorf("decode tile grid data: %w", err)
	}
	if len(raw) != env.Width*env.Height {
		return fmt.Errorf("%w: got %d, want %d", ErrDataLength, len(raw), env.Width*env.Height)
	}

	cells := make([]float32, len(raw))
	for i, v := range raw {
		if v == nil {
			cells[i] = float32(math.NaN())
			continue
		}
		cells[i] = float32(*v)
	}

	f, err := newFrame(env.Zoom, env.X, env.Y, env.Width, env.Height)
	if err != nil {
		return err
	}
	g.frame = f
	g.data = cells
	g.rng = nil
	return nil
}

// ===== Categorical =====

// MarshalJSON encodes the grid in the tagged wire form with one byte code
// per cell and the label table keyed by decimal code strings.
func (g *CategoricalTileGrid) MarshalJSON() ([]byte, error) {
	cells := make([]uint16, len(g.data))
	for i, v := range g.data {
		cells[i] = uint16(v)
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}

	var labels map[string]string
	if len(g.labels) > 0 {
		labels = make(map[string]string, len(g.labels))
		for code, label := range g.labels {
			labels[strconv.Itoa(int(code))] = label
		}
	}

	return json.Marshal(envelope{
		Type: TypeCategorical,
		Zoom: g.zoom, X: g.x, Y: g.y, Width: g.width, Height: g.height,
		Data: data, Labels: labels,
	})
}

// UnmarshalJSON decodes a tagged wire object into the grid, including the
// label table. Label keys must be decimal byte codes.
func (g *CategoricalTileGrid) UnmarshalJSON(data []byte) error {
	env, cells, err := decodeByteEnvelope(data, TypeCategorical)
	if err != nil {
		return err
	}

	labels := make(map[uint8]string, len(env.Labels))
	for key, label := range env.Labels {
		code, err := strconv.ParseUint(key, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrLabelCode, key)
		}
		labels[uint8(code)] = label
	}

	f, err := newFrame(env.Zoom, env.X, env.Y, env.Width, env.Height)
	if err != nil {
		return err
	}
	g.frame = f
	g.data = cells
	g.labels = labels
	return nil
}

// decodeByteEnvelope decodes a wire object whose data array holds byte
// values, checking the type tag, the value range and the data length.
// The data is decoded through an int slice because encoding/json treats a
// []uint8 destination as base64 text rather than a number array.
func decodeByteEnvelope(data []byte, want Type) (envelope, []uint8, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("decode tile grid: %w", err)
	}
	if env.Type != want {
		return env, nil, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, env.Type, want)
	}

	var raw []int
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return env, nil, fmt.Errorf("decode tile grid data: %w", err)
	}
	if len(raw) != env.Width*env.Height {
		return env, nil, fmt.Errorf("%w: got %d, want %d", ErrDataLength, len(raw), env.Width*env.Height)
	}

	cells := make([]uint8, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return env, nil, fmt.Errorf("%w: %d at index %d", ErrDataValue, v, i)
		}
		cells[i] = uint8(v)
	}
	return env, cells, nil
}
