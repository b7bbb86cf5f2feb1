// Package constants holds string constants shared across layers.
package constants

// Environment names.
const (
	EnvLocal      = "local"
	EnvDevelop    = "develop"
	EnvProduction = "production"
)

// Pub/Sub providers for identity events.
const (
	PubSubProviderNone      = "none"
	PubSubProviderInProcess = "inprocess"
	PubSubProviderLocal     = "local"
	PubSubProviderGoogle    = "google"
)

// ClientCookieName selects the per-client session manager.
const ClientCookieName = "lex_client"
