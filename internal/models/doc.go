// Package models provides reference SDEs with known behaviour, used by the
// CLI and by convergence tests. Every model exposes its parameters through
// dynamo.Configurable.
package models
