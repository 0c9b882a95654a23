// Package logstream drives `meetflow logs`: structured events from the daemon
// API when it is running, the raw log file otherwise.
package logstream
