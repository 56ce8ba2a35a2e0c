package whitelist

import "github.com/milsim-hq/rosterd/internal/roles"

// Document is the parsed in-memory form of one whitelist file: an ordered
// role -> ordered identifier list mapping. It is rebuilt from the source on
// every store operation and discarded afterwards; the file (or database) is
// the only durable state.
type Document struct {
	codes []string
	ids   map[string][]string
}

// NewDocument builds an empty document covering every code in the registry.
func NewDocument(reg *roles.Registry) *Document {
	codes := reg.Codes()
	ids := make(map[string][]string, len(codes))
	for _, code := range codes {
		ids[code] = nil
	}
	return &Document{codes: codes, ids: ids}
}

// Codes returns the role codes in registry order.
func (d *Document) Codes() []string {
	out := make([]string, len(d.codes))
	copy(out, d.codes)
	return out
}

// IDs returns the identifiers whitelisted for code, in file order.
func (d *Document) IDs(code string) []string {
	list := d.ids[roles.Normalize(code)]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Has reports whether id is present under code.
func (d *Document) Has(code, id string) bool {
	for _, existing := range d.ids[roles.Normalize(code)] {
		if existing == id {
			return true
		}
	}
	return false
}

func (d *Document) set(code string, list []string) {
	code = roles.Normalize(code)
	if _, ok := d.ids[code]; !ok {
		d.codes = append(d.codes, code)
	}
	d.ids[code] = list
}

// Entry meta accompanies a mutation for audit purposes. The file-backed
// store only records it in logs; the database store persists it.
type Meta struct {
	Actor      string
	PlayerName string
	Notes      string
}
