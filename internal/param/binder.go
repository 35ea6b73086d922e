// Package param turns a caller's name -> value mapping into driver-neutral
// named parameters.
package param

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
)

// Set maps placeholder names, as written in the query text (e.g. "@id"),
// to their values. Values must be primitives, []byte, time.Time or nil.
type Set map[string]any

// NullValue is the explicit null marker. A Param holding Null is bound as
// SQL NULL, which is not the same as leaving the placeholder unbound.
type NullValue struct{}

func (NullValue) String() string { return "NULL" }

var Null = NullValue{}

type Param struct {
	Name  string
	Value any
}

func (p Param) IsNull() bool {
	_, ok := p.Value.(NullValue)
	return ok
}

// Native returns the value a database/sql or pgx driver expects, with Null
// replaced by nil.
func (p Param) Native() any {
	if p.IsNull() {
		return nil
	}
	return p.Value
}

// BareName strips a single leading placeholder marker (@, : or $). Driver
// adapters need it because their named-argument APIs reject the marker.
func (p Param) BareName() string {
	return BareName(p.Name)
}

func BareName(name string) string {
	if name == "" {
		return name
	}
	switch name[0] {
	case '@', ':', '$':
		return name[1:]
	}
	return name
}

// Bind emits one Param per entry of set, sorted by name. Names are kept as
// given. An empty or nil set yields an empty slice. Two names that differ
// only by their placeholder marker ("@id" and "id") are rejected.
func Bind(set Set) ([]Param, error) {
	params := make([]Param, 0, len(set))
	for name, value := range set {
		if strings.TrimSpace(BareName(name)) == "" {
			return nil, apperr.NewUnknown(fmt.Sprintf("parameter name %q is empty", name))
		}
		v, err := normalize(value)
		if err != nil {
			return nil, apperr.NewUnknownWrap(fmt.Sprintf("parameter %s", name), err)
		}
		params = append(params, Param{Name: name, Value: v})
	}

	sort.Slice(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})

	seen := make(map[string]string, len(params))
	for _, p := range params {
		bare := p.BareName()
		if other, ok := seen[bare]; ok {
			return nil, apperr.NewUnknown(fmt.Sprintf("parameters %q and %q bind the same name %q", other, p.Name, bare))
		}
		seen[bare] = p.Name
	}

	return params, nil
}

func normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return Null, nil
	case NullValue:
		return v, nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, time.Time:
		return v, nil
	case *string:
		if v == nil {
			return Null, nil
		}
		return *v, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

// Echo returns the set described by params, mapping Null back to nil.
func Echo(params []Param) Set {
	set := make(Set, len(params))
	for _, p := range params {
		set[p.Name] = p.Native()
	}
	return set
}
