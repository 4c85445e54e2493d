// Package fsstore implements the filesystem storage backend. Pages are files
// stored under a root directory as <name>.<extension> (".md" by default); the
// page name is the slash-separated path relative to the root without the
// extension, so "faq/long-answer" lives at <root>/faq/long-answer.md.
//
// Fs satisfies storage.Iterable. Its iterator walks the root lazily, one
// directory listing at a time, skipping hidden entries when configured to.
package fsstore
