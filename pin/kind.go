package pin

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Kind is the closed set of value shapes a pin can hold.
type Kind uint8

const (
	KindNumeric Kind = iota + 1
	KindBoolean
	KindString
	KindList
	KindEnum
	KindImage
	KindEvent
)

var kindNames = [...]string{
	KindNumeric: "numeric",
	KindBoolean: "boolean",
	KindString:  "string",
	KindList:    "list",
	KindEnum:    "enum",
	KindImage:   "image",
	KindEvent:   "event",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k > 0 && int(k) < len(kindNames)
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindOf maps a concrete Go value to the kind that can hold it. It is the
// only place where value types are dispatched to kinds: integers and floats
// are numeric, bool is boolean, string is string, and string slices are
// lists. Anything else fails with ErrUnsupportedType. Enum, image and event
// pins have no natural Go type and are created with their own constructors.
func KindOf(v any) (Kind, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	switch v.(type) {
	case json.Number:
		return KindNumeric, nil
	case bool:
		return KindBoolean, nil
	case string:
		return KindString, nil
	case []string:
		return KindList, nil
	case []any:
		if _, ok := stringList(v); ok {
			return KindList, nil
		}
		return 0, fmt.Errorf("%w: %T with non-string elements", ErrUnsupportedType, v)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumeric, nil
	case reflect.Bool:
		return KindBoolean, nil
	case reflect.String:
		return KindString, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}
