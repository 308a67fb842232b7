// Package connectors holds adapters for third-party meeting sources.
// Each connector implements driven.EventsProvider.
package connectors
