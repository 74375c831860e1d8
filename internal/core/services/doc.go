// Package services contains the engine core: the cache strategy router
// and its strategies, the sync queue manager, the connectivity and
// lifecycle controller, and the engine facade that ties them together.
// Services depend only on the ports, never on concrete adapters.
package services
