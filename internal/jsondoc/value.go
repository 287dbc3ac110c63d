package jsondoc

// Kind identifies the JSON type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one decoded JSON value.
//
// Text holds the unescaped string, the literal number text, or "true"/"false".
// Raw holds the compact JSON text of objects and arrays.
type Value struct {
	Kind   Kind
	Text   string
	Object Object
	Array  []Value
	Raw    string
}

// Null reports whether the value is JSON null.
func (v Value) Null() bool { return v.Kind == KindNull }

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a JSON object with its keys in document order.
type Object []Field

// Get returns the value stored under key. When a key repeats, the last
// occurrence wins.
func (o Object) Get(key string) (Value, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Key == key {
			return o[i].Value, true
		}
	}
	return Value{}, false
}

// Keys returns the distinct keys of the object in first-seen order.
func (o Object) Keys() []string {
	seen := make(map[string]struct{}, len(o))
	keys := make([]string, 0, len(o))
	for _, f := range o {
		if _, dup := seen[f.Key]; dup {
			continue
		}
		seen[f.Key] = struct{}{}
		keys = append(keys, f.Key)
	}
	return keys
}
