package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

const indent = "    "

var (
	errUnexpectedEnd = errors.New("unexpected end of JSON input")
	errTrailingData  = errors.New("unexpected data after top-level JSON value")
)

// object keeps members in first-seen order. A repeated key keeps its first
// position and takes the last value.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Pretty parses a JSON document and serializes it again with four spaces per
// level. Keys keep the order they were received in, strings are written
// unescaped where JSON allows it, and numbers are written in their shortest
// round-trip form.
func Pretty(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return "", endOfInput(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return "", endOfInput(err)
		}
		return "", errTrailingData
	}

	var sb strings.Builder
	writeValue(&sb, v, 0)
	return sb.String(), nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, errors.New("object key is not a string")
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, errors.New("unexpected delimiter " + delim.String())
	}
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errUnexpectedEnd
	}
	return err
}

func writeValue(sb *strings.Builder, v any, depth int) {
	switch t := v.(type) {
	case *object:
		if len(t.keys) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{\n")
		for i, k := range t.keys {
			sb.WriteString(strings.Repeat(indent, depth+1))
			writeString(sb, k)
			sb.WriteString(": ")
			writeValue(sb, t.vals[k], depth+1)
			if i < len(t.keys)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indent, depth))
		sb.WriteByte('}')
	case []any:
		if len(t) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for i, e := range t {
			sb.WriteString(strings.Repeat(indent, depth+1))
			writeValue(sb, e, depth+1)
			if i < len(t)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indent, depth))
		sb.WriteByte(']')
	case string:
		writeString(sb, t)
	case json.Number:
		sb.WriteString(formatNumber(t))
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	default:
		sb.WriteString("null")
	}
}

func writeString(sb *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	sb.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

// formatNumber writes n as a double: 1.0 becomes 1, 1e2 becomes 100, and
// values beyond the double range become null.
func formatNumber(n json.Number) string {
	f, _ := strconv.ParseFloat(n.String(), 64)
	if math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	// encoding/json picks the exponent form only below 1e-6 and from 1e21 up.
	out, err := json.Marshal(f)
	if err != nil {
		return "null"
	}
	return string(out)
}
