package examples

import (
	"github.com/arkeindustries/requestcore/internal/pagedlist"
	"github.com/arkeindustries/requestcore/internal/registry"
)

// userRecord is the source record a paged-users query scans; in a real
// node this would come from a SQL query against the worker's database
// context, matching spec §4.4 "Given a queryable source sequence of some
// record type".
type userRecord struct {
	ID   uint64
	Name string
}

// UserEntry is the wire-visible page entry spec §8 scenario 3 describes:
// "a list of {id:u64, name:string}". Field names match userRecord's so
// codec.Bind's name matching finds them.
type UserEntry struct {
	ID   uint64 `rpc:"out,0"`
	Name string `rpc:"out,1"`
}

// userComparators is the static field-name-to-comparator map spec §9's
// redesign calls for in place of runtime reflection on a field name.
var userComparators = map[string]pagedlist.Comparator[userRecord]{
	"id":   func(a, b userRecord) bool { return a.ID < b.ID },
	"name": func(a, b userRecord) bool { return a.Name < b.Name },
}

// demoUsers is the fixed 5-record source spec §8 scenario 3 pages over.
var demoUsers = []userRecord{
	{ID: 3, Name: "carol"},
	{ID: 1, Name: "alice"},
	{ID: 5, Name: "erin"},
	{ID: 2, Name: "bob"},
	{ID: 4, Name: "dave"},
}

// RegisterPagedUsers adds the paged-list handler at (3,1) to reg, matching
// spec §8 scenario 3: skip/take/order_by_field/order_by_ascending over a
// source of 5 records, returning the page bound into []UserEntry.
func RegisterPagedUsers(reg *registry.Registry) {
	reg.RegisterUnauthenticated(3, 1, func() registry.Handler {
		return pagedlist.New[userRecord, UserEntry](driver, func(uint64) []userRecord {
			return append([]userRecord(nil), demoUsers...)
		}, userComparators)
	})
}
