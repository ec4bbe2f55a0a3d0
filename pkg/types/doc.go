// Package types defines the Provider and Cursor interfaces, the Note entity,
// the locator grammar and column vocabulary, and the standard errors for the
// notepad storage system.
//
// Callers address notes through locators: "notes" (the collection),
// "notes/<id>" (a single note) and "notes/live" (the collection projected to
// id and title). See Provider for the operations available on each kind.
package types
