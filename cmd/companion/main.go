// HoC Companion answers natural-language questions about the House of
// Creators marketing database.
//
// Usage:
//
//	# Start the HTTP API
//	companion serve
//
//	# Ask one question from the terminal
//	companion ask "Welke projecten zijn uit 2024?"
//
//	# List supported models and their prices
//	companion models
//
//	# Summarise the local usage ledger
//	companion usage --since 2025-01-01T00:00:00Z
package main

func main() {
	Execute()
}
