package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/cortexlog/hl/internal/iecsize"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/tstamp"
)

// ColorMode mirrors --color's three-valued flag.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// Resolved is the flat, read-only configuration the core packages
// consume (spec §5: "Config and theme are read-only process-wide after
// startup; never mutated"). It plays the role the teacher's
// parse.InputSchema/OutputSchema/FilterScheme play together, generalized
// to one struct per spec §6's CLI surface.
type Resolved struct {
	ColorMode      ColorMode
	Paging         string
	Theme          string
	Raw            bool
	RawFields      bool
	AllowPrefix    bool
	BufferSize     int64
	MaxMessageSize int64
	Concurrency    int
	Filters        []string
	Query          string
	JQ             string
	BeforeContext  int
	AfterContext   int
	HidePatterns   []string
	MinLevel       level.Level
	Since          tstamp.Timestamp
	Until          tstamp.Timestamp
	TimeTemplate   string
	TimeZone       *time.Location
	HideEmpty      bool
	ShowEmpty      bool
	Expansion      string
	Sort           bool
	Follow         bool
	Tail           int
	SyncIntervalMs int
	InputFormat    string
	UnixTimeUnit   record.TimeConfig
	Delimiter      string
	OutputPath     string
	DumpIndex      bool
	Debug          bool
	HighlightKeys  []string
	Inputs         []string
}

// Resolve builds a Resolved from already-merged Flags (the product of
// Layer's precedence chain). It performs the same kind of parsing the
// teacher's NewInputSchema/NewOutputFormatter do — translating string
// flags into typed values — but returns a *Error (spec §7 ConfigError)
// instead of printing directly to stderr.
func Resolve(f Flags) (*Resolved, error) {
	r := &Resolved{
		Paging:         f.Paging,
		Theme:          f.Theme,
		Raw:            f.Raw,
		RawFields:      f.RawFields,
		AllowPrefix:    f.AllowPrefix,
		Concurrency:    f.Concurrency,
		Filters:        f.Filter,
		Query:          f.Query,
		JQ:             f.JQ,
		HidePatterns:   f.Hide,
		HideEmpty:      f.HideEmpty,
		ShowEmpty:      f.ShowEmpty,
		Expansion:      strings.ToLower(f.Expansion),
		Sort:           f.Sort,
		Follow:         f.Follow,
		Tail:           f.Tail,
		SyncIntervalMs: f.SyncIntervalMs,
		InputFormat:    strings.ToLower(f.InputFormat),
		Delimiter:      normalizeDelimiter(f.Delimiter),
		OutputPath:     f.Output,
		DumpIndex:      f.DumpIndex,
		Debug:          f.Debug,
		HighlightKeys:  f.Highlight,
		Inputs:         f.Positional.Inputs,
	}

	switch strings.ToLower(f.Color) {
	case "always":
		r.ColorMode = ColorAlways
	case "never":
		r.ColorMode = ColorNever
	default:
		r.ColorMode = ColorAuto
	}

	if f.BufferSize != "" {
		n, err := iecsize.Parse(f.BufferSize)
		if err != nil {
			return nil, Wrap(KindConfig, "parsing --buffer-size", err)
		}
		r.BufferSize = n
	}
	if f.MaxMessageSize != "" {
		n, err := iecsize.Parse(f.MaxMessageSize)
		if err != nil {
			return nil, Wrap(KindConfig, "parsing --max-message-size", err)
		}
		r.MaxMessageSize = n
	}
	if r.MaxMessageSize > 0 && r.BufferSize > 0 && r.MaxMessageSize < r.BufferSize {
		return nil, New(KindConfig, "--max-message-size must be >= --buffer-size")
	}

	levels := level.DefaultTable()
	if f.Level != "" {
		lvl, ok := levels.ParseString(f.Level)
		if !ok {
			return nil, New(KindConfig, "unrecognized --level value "+strconv.Quote(f.Level))
		}
		r.MinLevel = lvl
	}

	if f.Since != "" {
		ts, err := tstamp.ParseNatural(f.Since, time.Now())
		if err != nil {
			return nil, Wrap(KindConfig, "parsing --since", err)
		}
		r.Since = ts
	}
	if f.Until != "" {
		ts, err := tstamp.ParseNatural(f.Until, time.Now())
		if err != nil {
			return nil, Wrap(KindConfig, "parsing --until", err)
		}
		r.Until = ts
	}

	r.TimeTemplate = f.TimeFormat
	loc := time.UTC
	if f.Local && !f.NoLocal {
		loc = time.Local
	}
	if f.TimeZone != "" {
		l, err := time.LoadLocation(f.TimeZone)
		if err != nil {
			return nil, Wrap(KindConfig, "loading --time-zone", err)
		}
		loc = l
	}
	r.TimeZone = loc

	switch strings.ToLower(f.UnixTimeUnit) {
	case "s":
		r.UnixTimeUnit = record.TimeConfig{UnixUnit: tstamp.UnitSeconds}
	case "ms":
		r.UnixTimeUnit = record.TimeConfig{UnixUnit: tstamp.UnitMillis}
	case "us":
		r.UnixTimeUnit = record.TimeConfig{UnixUnit: tstamp.UnitMicros}
	case "ns":
		r.UnixTimeUnit = record.TimeConfig{UnixUnit: tstamp.UnitNanos}
	default:
		r.UnixTimeUnit = record.TimeConfig{UnixUnit: tstamp.UnitAuto}
	}

	r.BeforeContext, r.AfterContext = f.BeforeContext, f.AfterContext
	if f.Context > 0 {
		if r.BeforeContext == 0 {
			r.BeforeContext = f.Context
		}
		if r.AfterContext == 0 {
			r.AfterContext = f.Context
		}
	}

	return r, nil
}
