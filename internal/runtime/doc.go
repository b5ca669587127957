// Package runtime executes a composed topology against the Docker
// daemon: services start in dependency order, each waiting for its
// health probe before dependents start, and tear down in reverse.
package runtime
