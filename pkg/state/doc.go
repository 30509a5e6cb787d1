// Package state persists decision contexts per client.
//
// Store implementations only load and save one ContextRecord for one Ref.
// Persister wraps a Store and implements decisions.Persister, rebuilding
// live contexts from records and recomputing their effective view on load.
//
// Data flow:
//
//	*decisions.Context -> Record() -> Store.Save -> file | memory | sqlite
//	Store.Load -> decisions.FromRecord -> *decisions.Context
//
// Concurrency:
//
//	Meta.ETag is derived from the context id and version. Persister.Mutate
//	rejects a write when the caller's expected ETag no longer matches the
//	stored one.
//
// Deterministic keys:
//
//	Ref.Identifier() validates the client id so it can be used as a file
//	name or primary key as is. File stores write <dir>/<client_id>.context.json.
package state
