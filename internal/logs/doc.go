// Package logs reads the daemon log file directly for `meetflow logs` when
// the daemon API is not reachable.
//
// Reader keeps a byte offset into the file so repeated calls only return new
// lines, and it restarts from the top when the file shrinks (the current-log
// pointer moved to a new run). Memory stays bounded: Last keeps a ring of the
// requested size rather than the whole file.
package logs
