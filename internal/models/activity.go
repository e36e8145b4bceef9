// Package models holds the data shapes shared by the identity store, the
// schema manager and the field mapper: users, the activity attribute catalog
// and the two column-naming generations of the activities table.
package models

import (
	"sort"
	"strings"
	"unicode"
)

// ActivitiesTable is the canonical name of the per-partition table.
const ActivitiesTable = "activities"

// Generation identifies which column-naming convention a partition's
// activities table uses.
type Generation int

const (
	// GenerationAbsent means the activities table does not exist yet.
	GenerationAbsent Generation = iota
	// GenerationLegacy uses underscore-separated column names (count_unit).
	GenerationLegacy
	// GenerationCurrent uses mixed-case column names (countUnit).
	GenerationCurrent
)

func (g Generation) String() string {
	switch g {
	case GenerationAbsent:
		return "absent"
	case GenerationLegacy:
		return "legacy"
	case GenerationCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// Discriminator columns: a table with LegacyDiscriminator and without
// CurrentDiscriminator is legacy.
const (
	LegacyDiscriminator  = "count_unit"
	CurrentDiscriminator = "countUnit"
)

// AttrType tells the field mapper how an attribute is stored.
type AttrType int

const (
	// AttrText is stored as TEXT.
	AttrText AttrType = iota
	// AttrInteger is stored as INTEGER (id, user_id).
	AttrInteger
	// AttrNumber is stored as REAL.
	AttrNumber
	// AttrStructured holds a sequence or object serialized as JSON text.
	AttrStructured
	// AttrTextOrList is either scalar text or a JSON-encoded sequence.
	AttrTextOrList
)

// Attribute describes one activity attribute and its column in both
// generations.
type Attribute struct {
	Name    string
	Legacy  string
	Type    AttrType
	NotNull bool
	SQLType string
}

// Column returns the column name of a in generation g.
func (a Attribute) Column(g Generation) string {
	if g == GenerationLegacy {
		return a.Legacy
	}
	return a.Name
}

// Activity attribute names as exposed to clients.
const (
	AttrID                = "id"
	AttrUserID            = "user_id"
	AttrTitle             = "title"
	AttrDescription       = "description"
	AttrCategory          = "category"
	AttrIcon              = "icon"
	AttrTags              = "tags"
	AttrCreateDate        = "createDate"
	AttrUpdateDate        = "updateDate"
	AttrStart             = "start"
	AttrEnd               = "end"
	AttrState             = "state"
	AttrCount             = "count"
	AttrCountUnit         = "countUnit"
	AttrFeedback          = "feedback"
	AttrCountCondition    = "countCondition"
	AttrTimeCondition     = "timeCondition"
	AttrDurationCondition = "durationCondition"
	AttrNotif             = "notif"
	AttrRepetition        = "repetition"
	AttrError             = "error"
)

// legacyOverrides lists the legacy columns that do not follow the plain
// camelCase -> snake_case rule.
var legacyOverrides = map[string]string{
	AttrStart: "start_time",
	AttrEnd:   "end_time",
}

func attr(name string, t AttrType, sqlType string, notNull bool) Attribute {
	legacy, ok := legacyOverrides[name]
	if !ok {
		legacy = SnakeCase(name)
	}
	return Attribute{Name: name, Legacy: legacy, Type: t, NotNull: notNull, SQLType: sqlType}
}

// ActivityAttributes is the activity schema in table column order.
var ActivityAttributes = []Attribute{
	attr(AttrID, AttrInteger, "INTEGER PRIMARY KEY AUTOINCREMENT", false),
	attr(AttrUserID, AttrInteger, "INTEGER", true),
	attr(AttrTitle, AttrText, "TEXT", false),
	attr(AttrDescription, AttrText, "TEXT", false),
	attr(AttrCategory, AttrTextOrList, "TEXT", false),
	attr(AttrIcon, AttrText, "TEXT", false),
	attr(AttrTags, AttrStructured, "TEXT", false),
	attr(AttrCreateDate, AttrText, "TEXT", true),
	attr(AttrUpdateDate, AttrText, "TEXT", true),
	attr(AttrStart, AttrText, "TEXT", false),
	attr(AttrEnd, AttrText, "TEXT", false),
	attr(AttrState, AttrText, "TEXT", false),
	attr(AttrCount, AttrNumber, "REAL", false),
	attr(AttrCountUnit, AttrText, "TEXT", false),
	attr(AttrFeedback, AttrStructured, "TEXT", false),
	attr(AttrCountCondition, AttrText, "TEXT", false),
	attr(AttrTimeCondition, AttrText, "TEXT", false),
	attr(AttrDurationCondition, AttrText, "TEXT", false),
	attr(AttrNotif, AttrStructured, "TEXT", false),
	attr(AttrRepetition, AttrStructured, "TEXT", false),
	attr(AttrError, AttrText, "TEXT", false),
}

var (
	byName   = make(map[string]Attribute, len(ActivityAttributes))
	byLegacy = make(map[string]Attribute, len(ActivityAttributes))
)

func init() {
	for _, a := range ActivityAttributes {
		byName[a.Name] = a
		byLegacy[a.Legacy] = a
	}
}

// LookupAttribute finds an attribute by its client-facing name.
func LookupAttribute(name string) (Attribute, bool) {
	a, ok := byName[name]
	return a, ok
}

// LookupColumn finds the attribute stored in column col of generation g.
func LookupColumn(col string, g Generation) (Attribute, bool) {
	if g == GenerationLegacy {
		a, ok := byLegacy[col]
		return a, ok
	}
	a, ok := byName[col]
	return a, ok
}

// AttributeNames returns all attribute names, sorted.
func AttributeNames() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SnakeCase converts a mixed-case name to lower-case underscore form:
// "countUnit" -> "count_unit". An underscore is inserted only where a
// lower-case letter is followed by an upper-case one.
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CamelCase converts an underscore-separated name to mixed case:
// "count_unit" -> "countUnit".
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
