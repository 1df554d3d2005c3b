package crucible

import (
	"encoding/json"
)

// VendorValueKind discriminates the forms a vendor parameter can take.
type VendorValueKind int

const (
	VendorString VendorValueKind = iota
	VendorNumber
	VendorBool
	VendorObject
)

// VendorValue is a loosely typed extension parameter carried by an
// expectation for rule kinds that are not specified yet. It is a tagged
// variant over {string, number, bool, nested mapping} rather than an untyped
// blob so recorded expectations stay forward-compatible without giving up
// type safety.
type VendorValue struct {
	Kind   VendorValueKind
	Str    string
	Num    float64
	Bool   bool
	Object map[string]VendorValue
}

// StringValue returns a string vendor value.
func StringValue(value string) VendorValue {
	return VendorValue{Kind: VendorString, Str: value}
}

// NumberValue returns a numeric vendor value.
func NumberValue(value float64) VendorValue {
	return VendorValue{Kind: VendorNumber, Num: value}
}

// BoolValue returns a boolean vendor value.
func BoolValue(value bool) VendorValue {
	return VendorValue{Kind: VendorBool, Bool: value}
}

// ObjectValue returns a nested mapping vendor value.
func ObjectValue(value map[string]VendorValue) VendorValue {
	return VendorValue{Kind: VendorObject, Object: value}
}

// MarshalJSON implements [json.Marshaler].
func (v VendorValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case VendorNumber:
		return json.Marshal(v.Num)
	case VendorBool:
		return json.Marshal(v.Bool)
	case VendorObject:
		return json.Marshal(v.Object)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON implements [json.Unmarshaler].
func (v *VendorValue) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*v = StringValue(str)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = NumberValue(num)
		return nil
	}
	var boolean bool
	if err := json.Unmarshal(data, &boolean); err == nil {
		*v = BoolValue(boolean)
		return nil
	}
	var object map[string]VendorValue
	if err := json.Unmarshal(data, &object); err == nil {
		*v = ObjectValue(object)
		return nil
	}
	return ErrorFormat().WithMessagef("vendor parameter is not a string, number, bool or mapping: %s", string(data))
}
