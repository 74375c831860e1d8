// Package driven defines the interfaces the engine core depends on:
// local storage, the remote platform API, the notification channel and
// the connectivity probe. Adapters implement these; the core only ever
// sees the interface.
package driven
