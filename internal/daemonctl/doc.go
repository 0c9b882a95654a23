// Package daemonctl starts and stops a background meetflow daemon from the
// CLI: it launches a detached `meetflow daemon run`, waits for the API to
// answer, and stops the process through its pid file.
package daemonctl
