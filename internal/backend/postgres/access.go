package postgres

import (
	"errors"
	"fmt"

	"todoapp/internal/platform"
)

// errPermissionDenied is returned for writes to another user's document.
var errPermissionDenied = errors.New("permission denied")

// ownership says how a collection records who owns a document.
type ownership struct {
	field string // document field holding the owner's id
	byID  bool   // the document id is the owner's id
}

// owners lists the collections restricted to their owner, the same rules
// the hosted backend enforces. Other collections are open to any signed-in
// user.
var owners = map[string]ownership{
	"todos": {field: "userId"},
	"users": {byID: true},
}

// ownerPredicate returns an SQL condition, starting with AND, that limits
// documents rows to those owned by the user bound to placeholder $n. It is
// empty for collections without an owner.
func ownerPredicate(collection string, n int) string {
	o, ok := owners[collection]
	switch {
	case !ok:
		return ""
	case o.byID:
		return fmt.Sprintf(" AND documents.id = $%d", n)
	default:
		return fmt.Sprintf(" AND documents.fields->>'%s' = $%d", o.field, n)
	}
}

// ownsDocument reports whether uid owns the document with id and fields.
func ownsDocument(collection, id string, fields platform.Fields, uid string) bool {
	o, ok := owners[collection]
	switch {
	case !ok:
		return true
	case o.byID:
		return id == uid
	default:
		owner, _ := fields[o.field].(string)
		return owner == uid
	}
}

// reassigns reports whether patch would hand the document to another user.
func reassigns(collection string, patch platform.Fields, uid string) bool {
	o, ok := owners[collection]
	if !ok || o.byID {
		return false
	}
	v, present := patch[o.field]
	if !present {
		return false
	}
	owner, _ := v.(string)
	return owner != uid
}

// scoped appends the owner predicate of collection to query, binding uid
// to the next placeholder after args.
func scoped(query, collection, uid string, args ...any) (string, []any) {
	pred := ownerPredicate(collection, len(args)+1)
	if pred == "" {
		return query, args
	}
	return query + pred, append(args, uid)
}
