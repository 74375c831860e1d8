// Package driving defines the service interfaces offered by the engine
// core: cache routing, the sync queue, connectivity supervision and the
// engine command API consumed by the CLI and any embedding application.
package driving
