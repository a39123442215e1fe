package botkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// LatestVersion is the BotKit API version this package speaks.
const LatestVersion = "0.3.0"

// TimestampLayout is the wire form of every time.Time: second precision, no
// zone suffix.
const TimestampLayout = "2006-01-02T15:04:05"

const maxDepth = 64

// Record is a structured value that lists its own fields. Messages, hooks and
// button actions are records; callers may implement it for jsonData payloads
// that want the same omission rule. A record that also has a Type() string
// method is written with a leading _type key.
type Record interface {
	EncodeFields(f *Fields)
}

// Response is the top-level envelope returned by every webhook.
type Response struct {
	BotkitVersion string
	Messages      []Message
	ChatKey       string
	LoginData     any
}

// NewResponse returns an envelope for messages stamped with LatestVersion.
func NewResponse(messages ...Message) Response {
	return Response{BotkitVersion: LatestVersion, Messages: messages}
}

// Validate checks sequence placement first, then every message.
func (r Response) Validate() error {
	if err := ValidateSequence(r.Messages); err != nil {
		return err
	}
	for _, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r Response) EncodeFields(f *Fields) {
	f.String("botkitVersion", r.BotkitVersion)
	List(f, "messages", r.Messages)
	f.String("chatKey", r.ChatKey)
	f.Value("loginData", r.LoginData)
}

// Encode validates r and renders it as wire JSON. Nothing is returned unless
// the whole envelope encodes.
func Encode(r Response) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return encodeRoot(r)
}

// EncodeMessage validates and renders a single message.
func EncodeMessage(m Message) ([]byte, error) {
	if m == nil || isNilValue(m) {
		return nil, &ProtocolError{Index: -1, Reason: "nil message"}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return encodeRoot(m)
}

func encodeRoot(r Record) ([]byte, error) {
	e := &encoder{active: make(map[uintptr]struct{})}
	if err := e.writeRecord("$", r, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// Fields collects the present fields of one record. Every writer skips
// values that are not present, so a record lists all of its fields
// unconditionally and lets Fields apply the omission rule.
type Fields struct {
	e     *encoder
	path  string
	depth int
	n     int
	err   error
}

// String writes a non-empty string.
func (f *Fields) String(name, v string) {
	if f.err != nil || v == "" {
		return
	}
	f.key(name)
	f.e.writeString(v)
}

// Bool writes true; false is omitted.
func (f *Fields) Bool(name string, v bool) {
	if f.err != nil || !v {
		return
	}
	f.key(name)
	f.e.buf.WriteString("true")
}

// Strings writes a non-empty list of strings, keeping every element.
func (f *Fields) Strings(name string, v []string) {
	if f.err != nil || len(v) == 0 {
		return
	}
	f.key(name)
	f.e.buf.WriteByte('[')
	for i, s := range v {
		if i > 0 {
			f.e.buf.WriteByte(',')
		}
		f.e.writeString(s)
	}
	f.e.buf.WriteByte(']')
}

// Value writes an opaque value if IsPresent reports it present.
func (f *Fields) Value(name string, v any) {
	if f.err != nil || !IsPresent(v) {
		return
	}
	f.key(name)
	f.err = f.e.writeValue(f.path+"."+name, v, f.depth+1)
}

// Record writes a nested record; nil records are omitted.
func (f *Fields) Record(name string, r Record) {
	if f.err != nil || r == nil || isNilValue(r) {
		return
	}
	if h, ok := r.(Hook); ok && h.IsZero() {
		return
	}
	f.key(name)
	f.err = f.e.writeRecord(f.path+"."+name, r, f.depth+1)
}

// List writes a non-empty, ordered list of records.
func List[T Record](f *Fields, name string, items []T) {
	if f.err != nil || len(items) == 0 {
		return
	}
	f.key(name)
	f.e.buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			f.e.buf.WriteByte(',')
		}
		p := fmt.Sprintf("%s.%s[%d]", f.path, name, i)
		if isNilValue(item) {
			f.err = &EncodingError{Path: p, Reason: "nil element"}
			return
		}
		if f.err = f.e.writeRecord(p, item, f.depth+1); f.err != nil {
			return
		}
	}
	f.e.buf.WriteByte(']')
}

func (f *Fields) key(name string) {
	if f.n > 0 {
		f.e.buf.WriteByte(',')
	}
	f.n++
	f.e.writeString(name)
	f.e.buf.WriteByte(':')
}

// IsPresent reports whether v counts as present on the wire: not nil, not
// an empty string or collection, not zero, not false and not the zero time.
// Pointers are followed; a pointer cycle counts as present and is left for
// the encoder to reject.
func IsPresent(v any) bool {
	return isPresent(v, nil)
}

func isPresent(v any, seen map[uintptr]struct{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return x != "" && (err != nil || f != 0)
	case json.RawMessage:
		switch string(bytes.TrimSpace(x)) {
		case "", "null", "false", "0", `""`, "[]", "{}":
			return false
		}
		return true
	case time.Time:
		return !x.IsZero()
	case Hook:
		return !x.IsZero()
	case Record:
		return !isNilValue(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		if rv.Kind() == reflect.Pointer {
			p := rv.Pointer()
			if _, ok := seen[p]; ok {
				return true
			}
			if seen == nil {
				seen = map[uintptr]struct{}{}
			}
			seen[p] = struct{}{}
		}
		return isPresent(rv.Elem().Interface(), seen)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return !rv.IsNil()
	}
	return true
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

type encoder struct {
	buf     bytes.Buffer
	scratch bytes.Buffer
	// containers on the current path, for cycle detection
	active map[uintptr]struct{}
}

func (e *encoder) writeRecord(path string, r Record, depth int) error {
	if depth > maxDepth {
		return &EncodingError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d levels", maxDepth)}
	}
	if rv := reflect.ValueOf(r); rv.Kind() == reflect.Pointer {
		if err := e.enter(path, rv.Pointer()); err != nil {
			return err
		}
		defer e.leave(rv.Pointer())
	}
	e.buf.WriteByte('{')
	f := &Fields{e: e, path: path, depth: depth}
	if t, ok := r.(interface{ Type() string }); ok {
		f.key("_type")
		e.writeString(t.Type())
	}
	r.EncodeFields(f)
	if f.err != nil {
		return f.err
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) writeValue(path string, v any, depth int) error {
	if depth > maxDepth {
		return &EncodingError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d levels", maxDepth)}
	}
	switch x := v.(type) {
	case nil:
		e.buf.WriteString("null")
		return nil
	case string:
		e.writeString(x)
		return nil
	case bool:
		e.buf.WriteString(strconv.FormatBool(x))
		return nil
	case json.Number:
		if !json.Valid([]byte(x)) || x == "" || (x[0] != '-' && (x[0] < '0' || x[0] > '9')) {
			return &EncodingError{Path: path, Reason: "invalid number " + quote(string(x))}
		}
		e.buf.WriteString(string(x))
		return nil
	case json.RawMessage:
		if err := json.Compact(&e.scratch, x); err != nil {
			e.scratch.Reset()
			return &EncodingError{Path: path, Reason: "invalid raw JSON", Err: err}
		}
		e.buf.Write(e.scratch.Bytes())
		e.scratch.Reset()
		return nil
	case time.Time:
		e.writeString(x.Format(TimestampLayout))
		return nil
	case Record:
		if isNilValue(x) {
			e.buf.WriteString("null")
			return nil
		}
		return e.writeRecord(path, x, depth)
	}
	return e.writeReflect(path, reflect.ValueOf(v), depth)
}

func (e *encoder) writeReflect(path string, rv reflect.Value, depth int) error {
	switch rv.Kind() {
	case reflect.String:
		e.writeString(rv.String())
	case reflect.Bool:
		e.buf.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		fv := rv.Float()
		if math.IsNaN(fv) || math.IsInf(fv, 0) {
			return &EncodingError{Path: path, Reason: fmt.Sprintf("unsupported float value %v", fv)}
		}
		b, err := json.Marshal(fv)
		if err != nil {
			return &EncodingError{Path: path, Reason: "float", Err: err}
		}
		e.buf.Write(b)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			if err := e.enter(path, rv.Pointer()); err != nil {
				return err
			}
			defer e.leave(rv.Pointer())
		}
		return e.writeValue(path, rv.Elem().Interface(), depth+1)
	case reflect.Map:
		return e.writeMap(path, rv, depth)
	case reflect.Slice, reflect.Array:
		return e.writeSlice(path, rv, depth)
	case reflect.Struct:
		return &EncodingError{Path: path, Reason: fmt.Sprintf("unsupported struct %s; implement botkit.Record", rv.Type())}
	default:
		return &EncodingError{Path: path, Reason: fmt.Sprintf("unsupported value of type %s", rv.Type())}
	}
	return nil
}

func (e *encoder) writeMap(path string, rv reflect.Value, depth int) error {
	if rv.Type().Key().Kind() != reflect.String {
		return &EncodingError{Path: path, Reason: fmt.Sprintf("map key type %s is not a string", rv.Type().Key())}
	}
	if rv.IsNil() {
		e.buf.WriteString("null")
		return nil
	}
	if err := e.enter(path, rv.Pointer()); err != nil {
		return err
	}
	defer e.leave(rv.Pointer())

	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)

	e.buf.WriteByte('{')
	n := 0
	for _, k := range keys {
		val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		if !IsPresent(val) {
			continue
		}
		if n > 0 {
			e.buf.WriteByte(',')
		}
		n++
		e.writeString(k)
		e.buf.WriteByte(':')
		if err := e.writeValue(path+"."+k, val, depth+1); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) writeSlice(path string, rv reflect.Value, depth int) error {
	if rv.Kind() == reflect.Slice {
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Len() > 0 {
			if err := e.enter(path, rv.Pointer()); err != nil {
				return err
			}
			defer e.leave(rv.Pointer())
		}
	}
	e.buf.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.writeValue(fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface(), depth+1); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) enter(path string, p uintptr) error {
	if _, ok := e.active[p]; ok {
		return &EncodingError{Path: path, Reason: "cyclic value"}
	}
	e.active[p] = struct{}{}
	return nil
}

func (e *encoder) leave(p uintptr) { delete(e.active, p) }

// writeString writes s as a JSON string without HTML escaping.
func (e *encoder) writeString(s string) {
	enc := json.NewEncoder(&e.scratch)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	e.buf.Write(bytes.TrimSuffix(e.scratch.Bytes(), []byte("\n")))
	e.scratch.Reset()
}
