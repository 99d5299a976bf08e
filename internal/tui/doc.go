// Package tui draws the live health dashboard in a terminal. It pulls the
// latest snapshot on its own refresh cadence and renders the display
// view-model.
package tui
