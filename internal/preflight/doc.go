// Package preflight provides readiness checks for the directories and
// collaborators meetflow depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs failed checks as warnings;
//     jobs still run, but will fail fast with a configuration error.
//   - The CLI "health" command prints the same results as a table.
package preflight
