// Package selection models the editor selection: a text range inside inline
// content, a single selected node, or the whole document.
//
// Selections are tied to the document they were created in. After a change,
// Map moves them into the new document, falling back to the nearest valid
// selection when their target disappeared. Bookmarks carry the same
// information without a document and are what undo history records.
package selection
