// Package daemonrun is the process entry point behind `meetflow daemon run`:
// it sets up per-run log files and the live log stream, writes the pid file,
// logs preflight results, and runs the daemon until a signal arrives.
package daemonrun
