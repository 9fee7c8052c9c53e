package signature

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Canonical encodes the value as JSON with object keys sorted, ", " and ": "
// separators, non-ASCII characters escaped and floats written in their
// shortest round-trip form. This is byte for byte the output of Python's
// json.dumps(value, sort_keys=True), which the reference peers hash.
//
// Structs are encoded using their json tag names. Only exported fields are
// considered and a tag of "-" skips the field.
func Canonical(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, reflect.ValueOf(value)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// =============================================================================

type member struct {
	key   string
	value reflect.Value
}

func encode(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return encode(buf, v.Elem())

	case reflect.Bool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		s, err := formatFloat(v.Float())
		if err != nil {
			return err
		}
		buf.WriteString(s)

	case reflect.String:
		writeString(buf, v.String())

	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("[]")
			return nil
		}
		return encodeArray(buf, v)

	case reflect.Array:
		return encodeArray(buf, v)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		members := make([]member, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			members = append(members, member{key: iter.Key().String(), value: iter.Value()})
		}
		return encodeObject(buf, members)

	case reflect.Struct:
		return encodeObject(buf, structMembers(v))

	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}

	return nil
}

func encodeArray(buf *bytes.Buffer, v reflect.Value) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := encode(buf, v.Index(i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')

	return nil
}

func encodeObject(buf *bytes.Buffer, members []member) error {
	sort.Slice(members, func(i, j int) bool {
		return members[i].key < members[j].key
	})

	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(buf, m.key)
		buf.WriteString(": ")
		if err := encode(buf, m.value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')

	return nil
}

func structMembers(v reflect.Value) []member {
	t := v.Type()

	members := make([]member, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		members = append(members, member{key: name, value: v.Field(i)})
	}

	return members
}

// formatFloat follows the repr rules for doubles: fixed notation between
// 1e-4 and 1e16 with at least one fractional digit, exponent notation
// otherwise.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New("unsupported float value")
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64), nil
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				buf.WriteRune(r)
			case r > 0xffff:
				r1, r2 := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
			default:
				fmt.Fprintf(buf, `\u%04x`, r)
			}
		}
	}
	buf.WriteByte('"')
}
