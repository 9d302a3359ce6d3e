package vehicle

import (
	"sort"
	"time"

	"github.com/mohae/deepcopy"
)

// Record holds the vehicle data returned by the upstream provider for a
// single VRM. Records are immutable once built: the cache hands out clones,
// never the stored value itself.
type Record struct {
	VRM             string            `json:"vrm"`
	Make            string            `json:"make,omitempty"`
	Model           string            `json:"model,omitempty"`
	Colour          string            `json:"colour,omitempty"`
	FuelType        string            `json:"fuel_type,omitempty"`
	FirstRegistered string            `json:"first_registered,omitempty"`
	MOTStatus       string            `json:"mot_status,omitempty"`
	MOTExpiry       string            `json:"mot_expiry,omitempty"`
	TaxStatus       string            `json:"tax_status,omitempty"`
	TaxExpiry       string            `json:"tax_expiry,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
	RetrievedAt     time.Time         `json:"retrieved_at"`
}

// Clone returns a deep copy of the record. Callers may hold onto the copy
// for as long as they like without aliasing cache-owned state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return deepcopy.Copy(r).(*Record)
}

// Field is a single name/value pair of the flattened record.
type Field struct {
	Name  string
	Value string
}

// Fields flattens the record into an ordered list of name/value pairs:
// the well-known fields first, then the provider extras sorted by name.
// Empty well-known fields are skipped.
func (r *Record) Fields() []Field {
	fields := []Field{
		{"VRM", r.VRM},
		{"Make", r.Make},
		{"Model", r.Model},
		{"Colour", r.Colour},
		{"FuelType", r.FuelType},
		{"FirstRegistered", r.FirstRegistered},
		{"MOTStatus", r.MOTStatus},
		{"MOTExpiry", r.MOTExpiry},
		{"TaxStatus", r.TaxStatus},
		{"TaxExpiry", r.TaxExpiry},
	}

	out := make([]Field, 0, len(fields)+len(r.Extra))
	for _, f := range fields {
		if len(f.Value) > 0 {
			out = append(out, f)
		}
	}

	extraNames := make([]string, 0, len(r.Extra))
	for name := range r.Extra {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)
	for _, name := range extraNames {
		out = append(out, Field{name, r.Extra[name]})
	}

	return out
}
