package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// variablesRoot prefixes every recorded path
const variablesRoot = "variables"

// ExtractedFile is a file found in the variables and the path it was found at
type ExtractedFile struct {
	File File
	Path []string
}

// Extraction is the result of pulling files out of a variables value
type Extraction struct {
	// Clone is a deep copy of the input with every file replaced by nil
	Clone any
	// Files are in depth-first discovery order
	Files []ExtractedFile
}

// ExtractFiles walks value depth-first and returns a clone with every File
// replaced by nil, along with the location of each file.
//
// Map keys are visited in sorted order so the result is stable. Pointer file
// handles are tracked by identity: a handle reachable twice keeps its first
// position and records the last path it was seen at. Cyclic values are not
// detected and will recurse forever.
func ExtractFiles(value any) *Extraction {
	e := &extractor{seen: make(map[File]int)}
	clone := e.walk(value, nil)
	return &Extraction{Clone: clone, Files: e.files}
}

// MarshalMap renders the multipart "map" field. Entries are written in index
// order; encoding a Go map would sort "10" before "2".
func (x *Extraction) MarshalMap() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range x.Files {
		if i > 0 {
			buf.WriteByte(',')
		}
		path, err := json.Marshal(f.Path)
		if err != nil {
			return nil, fmt.Errorf("marshaling path for file %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "%q:", strconv.Itoa(i))
		buf.Write(path)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PathMap returns the index to path mapping
func (x *Extraction) PathMap() map[string][]string {
	m := make(map[string][]string, len(x.Files))
	for i, f := range x.Files {
		m[strconv.Itoa(i)] = f.Path
	}
	return m
}

type extractor struct {
	files []ExtractedFile
	seen  map[File]int
	found int // handles recorded, duplicates included
}

var jsonMarshaler = reflect.TypeFor[json.Marshaler]()

func (e *extractor) walk(value any, path []string) any {
	if f, ok := value.(File); ok {
		// A typed nil handle is a null, not a file
		if isNil(reflect.ValueOf(f)) {
			return nil
		}
		e.record(f, append([]string{variablesRoot}, path...))
		return nil
	}

	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if v == nil {
			return v
		}
		clone := make(map[string]any, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			clone[k] = e.walk(v[k], appendPath(path, k))
		}
		return clone
	case []any:
		if v == nil {
			return v
		}
		clone := make([]any, len(v))
		for i, item := range v {
			clone[i] = e.walk(item, appendPath(path, strconv.Itoa(i)))
		}
		return clone
	case string, bool, float64, float32, int, int64, int32, json.Number, []byte:
		return v
	}

	return e.walkReflect(value, path)
}

// walkReflect handles typed containers such as []*os.File or map[string]string,
// pointers and structs. Pointers and structs that hold no file are returned
// unchanged so their own JSON encoding is kept.
func (e *extractor) walkReflect(value any, path []string) any {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return value
		}
		return e.keepUnlessFound(value, func() any {
			return e.walk(rv.Elem().Interface(), path)
		})
	case reflect.Struct:
		if rv.Type().Implements(jsonMarshaler) {
			return value
		}
		return e.keepUnlessFound(value, func() any {
			clone := make(map[string]any)
			e.walkStruct(rv, path, clone)
			return clone
		})
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return value
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value
		}
		clone := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			clone[i] = e.walk(rv.Index(i).Interface(), appendPath(path, strconv.Itoa(i)))
		}
		return clone
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return value
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		clone := make(map[string]any, len(keys))
		for _, k := range keys {
			clone[k.String()] = e.walk(rv.MapIndex(k).Interface(), appendPath(path, k.String()))
		}
		return clone
	default:
		return value
	}
}

// keepUnlessFound runs walk and returns its result only if it found a file
func (e *extractor) keepUnlessFound(value any, walk func() any) any {
	before := e.found
	clone := walk()
	if e.found == before {
		return value
	}
	return clone
}

// walkStruct clones the exported fields of rv into clone under their JSON
// names. Untagged embedded structs are flattened as encoding/json does.
func (e *extractor) walkStruct(rv reflect.Value, path []string, clone map[string]any) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if field.Anonymous && name == "" {
			embedded := fv
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				e.walkStruct(embedded, path, clone)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if strings.Contains(","+opts+",", ",omitempty,") && isEmptyValue(fv) {
			continue
		}
		clone[name] = e.walk(fv.Interface(), appendPath(path, name))
	}
}

// isEmptyValue matches encoding/json's omitempty rule
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func (e *extractor) record(f File, path []string) {
	e.found++
	// Only pointers have identity; value handles get an entry per occurrence
	if reflect.ValueOf(f).Kind() != reflect.Pointer {
		e.files = append(e.files, ExtractedFile{File: f, Path: path})
		return
	}
	if i, ok := e.seen[f]; ok {
		e.files[i].Path = path
		return
	}
	e.seen[f] = len(e.files)
	e.files = append(e.files, ExtractedFile{File: f, Path: path})
}

func appendPath(path []string, segment string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = segment
	return p
}
