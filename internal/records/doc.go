// Package records stores pipeline outputs: customers, their diagram and its
// append-only version history, per-session notes, and action items.
//
// Version numbers for a diagram are assigned inside the insert statement
// (max+1) so they stay contiguous from 1. Action items hang off the customer,
// not the diagram: deleting a diagram never removes them, and moving an item
// to another customer leaves its session note alone.
package records
