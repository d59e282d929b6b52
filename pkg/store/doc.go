// Package store provides the persistence collaborators a story saves its
// characters through.
//
// Responsibilities:
//   - Backend writes and removes the row for a single entity.
//   - Graph layers autosave semantics over a Backend: unsaved belongs_to
//     parents are saved first (their failures are ignored), the entity is
//     validated, new has_one/has_many children are validated before the
//     owner is written, and children are saved after it.
//   - MemoryStore is the in-process Backend used by tests and examples.
//
// Data flow:
//
//	story.Scope -> Graph.Save -> Backend.Write -> Entity.MarkPersisted
package store
