// Package queueaccess hands CLI commands a queue handle that goes through the
// daemon when one is listening and opens the databases directly otherwise.
package queueaccess
