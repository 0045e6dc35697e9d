package store

// Match is the predicate shape of a Filter.
type Match int

const (
	// MatchAll selects every document.
	MatchAll Match = iota
	// MatchIDs selects documents whose id is in IDs.
	MatchIDs
	// MatchEquals selects documents whose scalar Field equals Value.
	MatchEquals
	// MatchContains selects documents whose reference set Field holds Value.
	MatchContains
)

// Filter is a single-predicate document selector.
type Filter struct {
	Match Match
	IDs   []string
	Field string
	Value string
}

// All matches every document.
func All() Filter { return Filter{Match: MatchAll} }

// ByID matches the document with the given id.
func ByID(id string) Filter { return Filter{Match: MatchIDs, IDs: []string{id}} }

// ByIDs matches any document whose id is listed. An empty list matches nothing.
func ByIDs(ids []string) Filter { return Filter{Match: MatchIDs, IDs: ids} }

// Where matches documents whose scalar field equals value.
func Where(field, value string) Filter {
	return Filter{Match: MatchEquals, Field: field, Value: value}
}

// Holding matches documents whose reference set field contains id.
func Holding(field, id string) Filter {
	return Filter{Match: MatchContains, Field: field, Value: id}
}

// Update describes a partial modification of one document. Push adds an id
// to a reference set unless already present; Pull removes it if present.
type Update struct {
	Set  map[string]string
	Push map[string]string
	Pull map[string]string
}

// SetFields builds an update assigning scalar fields.
func SetFields(fields map[string]string) Update { return Update{Set: fields} }

// Push builds an update adding id to a reference set.
func Push(field, id string) Update { return Update{Push: map[string]string{field: id}} }

// Pull builds an update removing id from a reference set.
func Pull(field, id string) Update { return Update{Pull: map[string]string{field: id}} }

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}
