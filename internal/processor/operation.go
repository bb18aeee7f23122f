package processor

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"image"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"go-album-center/internal/apperr"
)

// Operation is one named image transformation with its parameters.
// On the wire it is the two element array [name, {params}].
type Operation struct {
	Name   string
	Params Params
}

// Operations is an ordered pipeline. It is stored as a JSON text column.
type Operations []Operation

type definition struct {
	params   []string
	validate func(Params) error
	apply    func(image.Image, Params) (image.Image, error)
}

var definitions = map[string]definition{
	"crop": {
		params:   []string{"left", "top", "width", "height"},
		validate: requireAll("left", "top", "width", "height"),
		apply:    applyCrop,
	},
	"resize": {
		params:   []string{"width", "height"},
		validate: requireAny("width", "height"),
		apply:    applyResize,
	},
	"rotate": {
		params:   []string{"degrees"},
		validate: validateRotate,
		apply:    applyRotate,
	},
	"explicit": {
		params:   []string{"data"},
		validate: validateExplicit,
		apply:    applyExplicit,
	},
}

// Names lists the supported operation names.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a validated operation.
func New(name string, params Params) (Operation, error) {
	op := Operation{Name: name, Params: params}
	if err := op.Validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// Validate checks the name against the registry and the parameters against
// the operation's parameter list.
func (op Operation) Validate() error {
	def, ok := definitions[op.Name]
	if !ok {
		return fmt.Errorf("%w (supported: %s)", apperr.Unsupported(op.Name), strings.Join(Names(), ", "))
	}
	for key := range op.Params {
		if !contains(def.params, key) {
			return apperr.Validation("%s: unknown parameter %q", op.Name, key)
		}
	}
	if err := def.validate(op.Params); err != nil {
		return fmt.Errorf("%s: %w", op.Name, err)
	}
	return nil
}

// Apply runs the operation on img.
func (op Operation) Apply(img image.Image) (image.Image, error) {
	def, ok := definitions[op.Name]
	if !ok {
		return nil, apperr.Unsupported(op.Name)
	}
	out, err := def.apply(img, op.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}
	return out, nil
}

// MarshalJSON encodes the operation as [name, {params}] with sorted keys.
func (op Operation) MarshalJSON() ([]byte, error) {
	params := op.Params
	if params == nil {
		params = Params{}
	}
	return json.Marshal([]any{op.Name, params})
}

// UnmarshalJSON decodes [name, {params}] or [name, [positional...]].
func (op *Operation) UnmarshalJSON(data []byte) error {
	parsed, err := parseOperation(data)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Validate checks every operation of the pipeline.
func (ops Operations) Validate() error {
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

// Apply runs the pipeline in order.
func (ops Operations) Apply(img image.Image) (image.Image, error) {
	var err error
	for _, op := range ops {
		if img, err = op.Apply(img); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (ops Operations) MarshalJSON() ([]byte, error) {
	if ops == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Operation(ops))
}

// Value implements driver.Valuer.
func (ops Operations) Value() (driver.Value, error) {
	data, err := ops.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (ops *Operations) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*ops = Operations{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("processor: cannot scan %T into Operations", value)
	}

	parsed, err := ParseOperations(data)
	if err != nil {
		return err
	}
	*ops = parsed
	return nil
}

// ParseOperations decodes and validates a JSON list of operations.
func ParseOperations(data []byte) (Operations, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.Validation("operations must be a list")
	}

	ops := make(Operations, 0, len(raw))
	for i, item := range raw {
		op, err := parseOperation(item)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOperation(data []byte) (Operation, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) == 0 || len(pair) > 2 {
		return Operation{}, apperr.Validation("operation must be [name, parameters]")
	}

	var name string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return Operation{}, apperr.Validation("operation name must be a string")
	}
	op := Operation{Name: name, Params: Params{}}
	if len(pair) == 1 || string(pair[1]) == "null" {
		return op, nil
	}

	if len(pair[1]) > 0 && pair[1][0] == '[' {
		def, ok := definitions[name]
		if !ok {
			return Operation{}, apperr.Unsupported(name)
		}
		var values []Value
		if err := json.Unmarshal(pair[1], &values); err != nil {
			return Operation{}, apperr.Validation("%s: invalid parameters", name)
		}
		if len(values) > len(def.params) {
			return Operation{}, apperr.Validation("%s: takes at most %d parameters", name, len(def.params))
		}
		for i, v := range values {
			op.Params[def.params[i]] = v
		}
		return op, nil
	}

	if err := json.Unmarshal(pair[1], &op.Params); err != nil {
		return Operation{}, apperr.Validation("%s: invalid parameters", name)
	}
	return op, nil
}

func requireAll(keys ...string) func(Params) error {
	return func(p Params) error {
		for _, key := range keys {
			v, ok := p[key]
			if !ok {
				return apperr.Validation("missing parameter %q", key)
			}
			if _, err := v.Resolve(1); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireAny(keys ...string) func(Params) error {
	return func(p Params) error {
		found := false
		for _, key := range keys {
			v, ok := p[key]
			if !ok {
				continue
			}
			found = true
			if _, err := v.Resolve(1); err != nil {
				return err
			}
		}
		if !found {
			return apperr.Validation("one of %v is required", keys)
		}
		return nil
	}
}

func validateRotate(p Params) error {
	v, ok := p["degrees"]
	if !ok {
		return apperr.Validation("missing parameter %q", "degrees")
	}
	_, err := v.Float()
	return err
}

func validateExplicit(p Params) error {
	v, ok := p["data"]
	if !ok {
		return apperr.Validation("missing parameter %q", "data")
	}
	if _, err := base64.StdEncoding.DecodeString(string(v)); err != nil {
		return apperr.Validation("data is not valid base64")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
