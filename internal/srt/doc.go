// Package srt parses and serializes the SubRip subtitle format.
//
// Parsing is lenient: blocks whose timing line does not match the
// HH:MM:SS,mmm --> HH:MM:SS,mmm form are dropped rather than failing the
// whole document.
package srt
