// Package display turns a snapshot into a view-model that renderers can
// draw without further logic. Everything here is a pure function of its
// inputs.
package display
