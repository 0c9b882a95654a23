// Package tui renders `meetflow queue watch`, a bubbletea view that polls the
// queue status and shows the job in flight, pending work and recent outcomes.
package tui
