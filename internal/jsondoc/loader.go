package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/buger/jsonparser"
)

// Load reads the file at path and parses it as an array of records.
func Load(path string) ([]Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	records, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return records, nil
}

// Parse decodes data, which must hold a JSON array of objects.
func Parse(data []byte) ([]Object, error) {
	// jsonparser is lenient about malformed input it never visits.
	if !json.Valid(data) {
		return nil, &ParseError{Err: ErrInvalidJSON}
	}

	root, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
	}
	if typ != jsonparser.Array {
		return nil, &ParseError{Err: fmt.Errorf("%w (found %s)", ErrNotArray, typ)}
	}

	var records []Object
	var walkErr error
	index := 0
	_, err = jsonparser.ArrayEach(root, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if walkErr != nil {
			return
		}
		if err != nil {
			walkErr = err
			return
		}
		if dataType != jsonparser.Object {
			walkErr = fmt.Errorf("element %d: %w (found %s)", index, ErrNotObject, dataType)
			return
		}
		obj, err := decodeObject(value)
		if err != nil {
			walkErr = fmt.Errorf("element %d: %w", index, err)
			return
		}
		records = append(records, obj)
		index++
	})
	if walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return nil, &ParseError{Err: walkErr}
	}
	if records == nil {
		records = []Object{}
	}
	return records, nil
}

func decodeObject(data []byte) (Object, error) {
	obj := Object{}
	// ObjectEach hands over keys already unescaped.
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		name := string(key)
		v, err := decodeValue(value, dataType)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		obj = append(obj, Field{Key: name, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(data []byte) ([]Value, error) {
	values := []Value{}
	var walkErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if walkErr != nil {
			return
		}
		if err != nil {
			walkErr = err
			return
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			walkErr = err
			return
		}
		values = append(values, v)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

func decodeValue(raw []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.Null:
		return Value{Kind: KindNull}, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			// jsonparser rejects lone surrogate escapes that encoding/json
			// accepts and replaces with U+FFFD.
			if jerr := json.Unmarshal(quote(raw), &s); jerr != nil {
				return Value{}, err
			}
		}
		return Value{Kind: KindString, Text: s}, nil
	case jsonparser.Number:
		return Value{Kind: KindNumber, Text: string(raw)}, nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, err
		}
		if b {
			return Value{Kind: KindBool, Text: "true"}, nil
		}
		return Value{Kind: KindBool, Text: "false"}, nil
	case jsonparser.Object:
		obj, err := decodeObject(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindObject, Object: obj, Raw: compact(raw)}, nil
	case jsonparser.Array:
		values, err := decodeArray(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindArray, Array: values, Raw: compact(raw)}, nil
	default:
		return Value{}, fmt.Errorf("unsupported json value %q", raw)
	}
}

func quote(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+2)
	out = append(out, '"')
	out = append(out, raw...)
	return append(out, '"')
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
