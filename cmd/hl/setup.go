package main

import (
	"fmt"
	"strings"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/format"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/query"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/theme"
	"github.com/cortexlog/hl/internal/tstamp"
)

// runtime bundles everything derived from a Resolved config that the
// streaming, sorted, and follow modes all need, built once in main so
// each mode just wires it into its own engine.
type runtime struct {
	levels       *level.Table
	aliases      *record.AliasTable
	timeCfg      record.TimeConfig
	query        query.Expr
	jq           *query.JQStage
	formatter    *format.Formatter
	colorEnabled bool
}

func buildRuntime(r *config.Resolved, colorEnabled bool, sets query.SetLoader) (*runtime, error) {
	levels := level.DefaultTable()
	aliases := record.DefaultAliasTable()

	q, err := buildQuery(r, levels, sets)
	if err != nil {
		return nil, config.Wrap(config.KindQueryParse, "building query", err)
	}

	jq, err := query.CompileJQ(r.JQ, nil)
	if err != nil {
		return nil, config.Wrap(config.KindQueryParse, "compiling --jq program", err)
	}

	th, err := resolveTheme(r.Theme)
	if err != nil {
		return nil, err
	}

	expansion, err := parseExpansion(r.Expansion)
	if err != nil {
		return nil, err
	}

	highlight := make(map[string]bool, len(r.HighlightKeys))
	for _, k := range r.HighlightKeys {
		highlight[k] = true
	}

	fmtCfg := format.Config{
		Theme:                th,
		Visibility:           format.NewVisibility(r.HidePatterns, r.HideEmpty && !r.ShowEmpty),
		Expansion:            expansion,
		Flatten:              true,
		ElideDuplicateFields: true,
		ShowInputIndicator:   true,
		HighlightFields:      highlight,
		ColorEnabled:         colorEnabled,
		Levels:               levels,
		Zone:                 r.TimeZone,
	}
	if r.TimeTemplate != "" {
		tpl, err := tstamp.NewTemplate(r.TimeTemplate, r.TimeZone)
		if err != nil {
			return nil, config.Wrap(config.KindConfig, "parsing --time-format", err)
		}
		fmtCfg.TimeTemplate = tpl
	}

	return &runtime{
		levels:       levels,
		aliases:      aliases,
		timeCfg:      r.UnixTimeUnit,
		query:        q,
		jq:           jq,
		formatter:    format.New(fmtCfg),
		colorEnabled: colorEnabled,
	}, nil
}

// buildQuery ANDs together every --filter predicate, --query, and a
// level-floor predicate derived from --level: streaming mode has no
// separate level-filtering field of its own (unlike merge.Window.Levels
// for sorted/follow mode), so the floor is folded into the same
// predicate tree the query grammar already evaluates.
func buildQuery(r *config.Resolved, levels *level.Table, sets query.SetLoader) (query.Expr, error) {
	var exprs []query.Expr
	for _, f := range r.Filters {
		e, err := query.Parse(f, sets)
		if err != nil {
			return nil, fmt.Errorf("parsing --filter %q: %w", f, err)
		}
		exprs = append(exprs, e)
	}
	if r.Query != "" {
		e, err := query.Parse(r.Query, sets)
		if err != nil {
			return nil, fmt.Errorf("parsing --query: %w", err)
		}
		exprs = append(exprs, e)
	}
	if r.MinLevel != level.Unknown {
		exprs = append(exprs, query.Compare{
			Field:   query.FieldRef{Predefined: "level"},
			Op:      query.OpGe,
			Literal: query.Literal{Kind: query.LiteralString, Str: r.MinLevel.String()},
		})
	}
	if len(exprs) == 0 {
		return nil, nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = query.And{Left: out, Right: e}
	}
	return out, nil
}

// resolveTheme supports only the built-in "default" theme; by-name
// loading of arbitrary theme files is out of scope (see DESIGN.md).
func resolveTheme(name string) (*theme.Theme, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return theme.DefaultTheme(), nil
	default:
		return nil, config.New(config.KindTheme, fmt.Sprintf("unknown theme %q: only \"default\" is built in", name))
	}
}

func parseExpansion(s string) (format.Expansion, error) {
	switch strings.ToLower(s) {
	case "never":
		return format.ExpandNever, nil
	case "inline":
		return format.ExpandInline, nil
	case "", "auto":
		return format.ExpandAuto, nil
	case "always":
		return format.ExpandAlways, nil
	default:
		return 0, config.New(config.KindConfig, fmt.Sprintf("unrecognized --expansion value %q", s))
	}
}
