// Package subtitle defines the core data model shared across the editor:
// cues, project metadata, and the persisted snapshot layout.
package subtitle
