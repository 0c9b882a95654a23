// Command meetflow is the CLI for the meeting transcript pipeline. It runs the
// daemon, manages the job queue and edits customers, diagrams, action items and
// session notes. Queue and read-only views talk to a running daemon over its
// HTTP API and fall back to opening the databases directly when no daemon
// answers.
package main
