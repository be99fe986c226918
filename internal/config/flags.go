package config

// Flags mirrors the teacher's cmd/internal/jlog struct-tag groups
// (Output/General/Input), generalized to spec §6's full CLI surface.
// cmd/hl parses this struct with go-flags (the same library the teacher
// uses) and hands the result to Resolve to build a Resolved.
type Flags struct {
	Color          string   `long:"color" short:"c" description:"Colorize output: auto, always, or never." default:"auto" env:"HL_COLOR"`
	Paging         string   `long:"paging" short:"P" description:"Pipe output through a pager: auto, always, or never." default:"auto" env:"HL_PAGING"`
	Theme          string   `long:"theme" description:"Name of the theme to use." default:"default" env:"HL_THEME"`
	ListThemes     string   `long:"list-themes" optional-value:"all" optional:"true" description:"List available themes, optionally filtered by tag."`
	Raw            bool     `long:"raw" short:"r" description:"Pass records through verbatim alongside formatted output." env:"HL_RAW"`
	RawFields      bool     `long:"raw-fields" description:"Show raw source text for field values instead of re-encoding them."`
	AllowPrefix    bool     `long:"allow-prefix" description:"Allow and preserve a non-JSON/logfmt prefix before each record."`
	BufferSize     string   `long:"buffer-size" description:"Segmenter working-buffer size (IEC units, e.g. '256 KiB')." default:"256 KiB" env:"HL_BUFFER_SIZE"`
	MaxMessageSize string   `long:"max-message-size" description:"Hard ceiling for a single record (IEC units)." default:"1 MiB" env:"HL_MAX_MESSAGE_SIZE"`
	Concurrency    int      `long:"concurrency" description:"Number of worker threads; 0 uses logical CPU count." env:"HL_CONCURRENCY"`
	Filter         []string `long:"filter" short:"f" description:"A query-language predicate; repeatable, ANDed together."`
	Query          string   `long:"query" short:"q" description:"A query-language predicate (alternate spelling of --filter, single expression)."`
	JQ             string   `long:"jq" description:"A jq program run as an additional predicate/transform stage after --filter/--query."`
	AfterContext   int      `long:"after-context" short:"A" description:"Print this many lines of trailing context after each selected record."`
	BeforeContext  int      `long:"before-context" short:"B" description:"Print this many lines of leading context before each selected record."`
	Context        int      `long:"context" short:"C" description:"Print this many lines of context around each selected record (shorthand for equal --before-context/--after-context)."`
	Hide           []string `long:"hide" short:"h" description:"A field-name glob to hide; prefix with '!' to reveal. Repeatable, last match wins."`
	Level          string   `long:"level" short:"l" description:"Minimum level to show." env:"HL_LEVEL"`
	Since          string   `long:"since" description:"Only show records at or after this time."`
	Until          string   `long:"until" description:"Only show records at or before this time."`
	TimeFormat     string   `long:"time-format" short:"t" description:"A strftime-style template for rendering timestamps." env:"HL_TIME_FORMAT"`
	TimeZone       string   `long:"time-zone" short:"Z" description:"IANA time zone name used to render timestamps." env:"HL_TIME_ZONE"`
	Local          bool     `long:"local" short:"L" description:"Render timestamps in the local time zone."`
	NoLocal        bool     `long:"no-local" description:"Render timestamps in UTC."`
	HideEmpty      bool     `long:"hide-empty-fields" short:"e" description:"Hide fields whose value is empty."`
	ShowEmpty      bool     `long:"show-empty-fields" short:"E" description:"Show fields whose value is empty."`
	Expansion      string   `long:"expansion" short:"x" description:"Multi-line field value expansion: never, inline, auto, or always." default:"auto" env:"HL_EXPANSION"`
	Sort           bool     `long:"sort" short:"s" description:"Merge all sources in timestamp order instead of streaming each in arrival order."`
	Follow         bool     `long:"follow" short:"F" description:"Follow sources for new records, like tail -f."`
	Tail           int      `long:"tail" description:"Records to pre-load per source before following; accepted but not applied by follow mode."`
	SyncIntervalMs int      `long:"sync-interval-ms" description:"Follow-mode poll/refresh granularity, in milliseconds." default:"500"`
	InputFormat    string   `long:"input-format" description:"Force the input format: auto, json, or logfmt." default:"auto" env:"HL_INPUT_FORMAT"`
	UnixTimeUnit   string   `long:"unix-timestamp-unit" description:"Unit for numeric timestamps: auto, s, ms, us, or ns." default:"auto"`
	Delimiter      string   `long:"delimiter" description:"Record delimiter: auto, lf, cr, crlf, nul, or a literal string." default:"auto"`
	Output         string   `long:"output" short:"o" description:"Write formatted output to this file instead of stdout."`
	DumpIndex      bool     `long:"dump-index" description:"Print the segment index header and descriptors as plain text instead of formatted records."`
	Debug          bool     `long:"debug" description:"Enable verbose internal diagnostics and causal error chains."`
	Highlight      []string `long:"highlight" description:"A list of field names to render with the highlight role; repeatable." env:"HL_HIGHLIGHT" env-delim:","`
	Config         []string `long:"config" description:"Load one or more named presets or config file paths, applied in order; '-' clears the chain to embedded defaults only." env:"HL_CONFIG" env-delim:","`
	Version        bool     `short:"v" long:"version" description:"Print version information and exit."`

	Positional struct {
		Inputs []string `positional-arg-name:"input" description:"Input files, or '-' for stdin."`
	} `positional-args:"yes"`
}
