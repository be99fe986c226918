package record

// PredefinedKind identifies which resolved slot a field alias feeds.
type PredefinedKind int

const (
	PredefinedTime PredefinedKind = iota
	PredefinedLevel
	PredefinedMessage
	PredefinedLogger
	PredefinedCaller
	numPredefined
)

// AliasTable maps field names to predefined slots. Alias sets are ordered:
// for a given kind, an earlier alias has priority when distinct aliases
// both appear on the same record (spec §4.3: "alias sets are ordered").
// Matching is case-sensitive, per spec.
type AliasTable struct {
	aliases [numPredefined][]string
	index   map[string]predefinedRef
}

type predefinedRef struct {
	kind PredefinedKind
	rank int
}

// NewAliasTable builds a table from an ordered alias list per kind. Earlier
// entries in each slice take priority over later ones.
func NewAliasTable(aliasesByKind map[PredefinedKind][]string) *AliasTable {
	t := &AliasTable{index: make(map[string]predefinedRef)}
	for kind, names := range aliasesByKind {
		t.aliases[kind] = names
		for rank, name := range names {
			if _, exists := t.index[name]; !exists {
				t.index[name] = predefinedRef{kind: kind, rank: rank}
			}
		}
	}
	return t
}

// DefaultAliasTable returns the built-in alias set matching common
// structured-logging conventions (zap, logrus, zerolog, bunyan, stackdriver).
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(map[PredefinedKind][]string{
		PredefinedTime:    {"time", "ts", "timestamp", "@timestamp", "t"},
		PredefinedLevel:   {"level", "severity", "lvl", "loglevel", "log.level"},
		PredefinedMessage: {"message", "msg", "short_message", "text"},
		PredefinedLogger:  {"logger", "loggerName", "logger_name", "name"},
		PredefinedCaller:  {"caller", "source", "file"},
	})
}

func (t *AliasTable) lookup(key string) (predefinedRef, bool) {
	ref, ok := t.index[key]
	return ref, ok
}
