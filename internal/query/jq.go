package query

import (
	"errors"
	"fmt"
	"os"

	"github.com/itchyny/gojq"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
)

// highlightKey mirrors the teacher's FilterScheme convention: a jq
// program may call highlight(true) on its output map to flag a record
// for highlight-role styling without a separate out-of-band channel
// (spec §4 supplement: "Highlight fields... From the teacher's
// HighlightFields/gojq highlight() builtin").
const highlightKey = "__hl_highlight"

// JQStage is the optional --jq predicate stage layered on top of the
// compiled query tree (documented extension beyond spec.md §4.5's
// grammar; grounded on the teacher's FilterScheme.JQ / compileJQ /
// runJQ in pkg/parse/filter.go).
type JQStage struct {
	code *gojq.Code
}

// CompileJQ compiles a jq program. An empty program compiles to a no-op
// stage (teacher's compileJQ: `if p == "" { return nil, nil }`).
func CompileJQ(program string, searchPath []string) (*JQStage, error) {
	if program == "" {
		return &JQStage{}, nil
	}
	q, err := gojq.Parse(program)
	if err != nil {
		return nil, fmt.Errorf("query: parsing jq program %q: %w", program, err)
	}
	code, err := gojq.Compile(q,
		gojq.WithVariables(jqVariableNames),
		gojq.WithFunction("highlight", 1, 1, func(dot interface{}, args []interface{}) interface{} {
			hl, ok := args[0].(bool)
			if !ok {
				return fmt.Errorf("argument to highlight should be a boolean; not %#v", args[0])
			}
			if val, ok := dot.(map[string]interface{}); ok {
				val[highlightKey] = hl
			}
			return dot
		}),
		gojq.WithEnvironLoader(os.Environ),
		gojq.WithModuleLoader(gojq.NewModuleLoader(searchPath)))
	if err != nil {
		return nil, fmt.Errorf("query: compiling jq program %q: %w", program, err)
	}
	return &JQStage{code: code}, nil
}

// Result is the outcome of running a JQStage over one record.
type Result struct {
	Filtered  bool // true if the record should be dropped
	Highlight bool
	Fields    map[string]interface{} // possibly rewritten field set
}

// Run evaluates the jq program against r's fields (converted to a plain
// map the way gojq expects, mirroring the teacher's l.fields input) plus
// the predefined-field variables. An empty/uncompiled stage always
// passes records through unfiltered (teacher's runJQ: "if f.JQ == nil,
// return false, nil").
func (s *JQStage) Run(r *record.Record, levels *level.Table) (Result, error) {
	if s == nil || s.code == nil {
		return Result{}, nil
	}
	fields, err := recordToMap(r)
	if err != nil {
		return Result{}, err
	}
	iter := s.code.Run(fields, jqVariableValues(r, levels)...)
	result, ok := iter.Next()
	if !ok {
		return Result{Filtered: true}, nil
	}
	switch x := result.(type) {
	case map[string]interface{}:
		highlight := false
		if raw, ok := x[highlightKey]; ok {
			delete(x, highlightKey)
			if hi, ok := raw.(bool); ok {
				highlight = hi
			}
		}
		if _, ok := iter.Next(); ok {
			return Result{}, errors.New("query: jq program unexpectedly produced more than one output")
		}
		return Result{Fields: x, Highlight: highlight}, nil
	case nil:
		return Result{}, errors.New("query: jq program produced nil; yield an empty map ('{}') to delete all fields")
	case error:
		return Result{}, fmt.Errorf("query: jq program error: %w", x)
	case bool:
		return Result{}, errors.New("query: jq program produced a boolean; did you mean to use select(...)?")
	default:
		return Result{}, fmt.Errorf("query: jq program produced unexpected result type %T", result)
	}
}

// jqVariableNames names the predefined variables exposed to jq programs,
// in the same order jqVariableValues supplies their values.
var jqVariableNames = []string{"$TS", "$RAW", "$MSG", "$LVL"}

func jqVariableValues(r *record.Record, levels *level.Table) []interface{} {
	var ts float64
	if t, ok := r.Time(); ok && t.Valid() {
		ts = float64(t.UnixNano()) / 1e9
	}
	msg, _ := r.Message()
	var lvlNum uint8
	if lvl, ok := r.Level(); ok {
		lvlNum = uint8(lvl)
	}
	return []interface{}{ts, string(r.Raw), msg, lvlNum}
}

// recordToMap converts every scanned field, under its own decoded key,
// into the plain map[string]interface{} shape
// gojq expects, since the scanner's zero-copy Value type is not itself
// something gojq can traverse.
func recordToMap(r *record.Record) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, f := range r.Fields {
		key, err := f.DecodeKey()
		if err != nil {
			continue
		}
		v, err := f.Value.Interface()
		if err != nil {
			return nil, fmt.Errorf("query: decoding field %q for jq: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}
