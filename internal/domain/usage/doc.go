// Package usage recovers token and cost telemetry from raw terminal output.
//
// AI coding CLIs print their own usage summaries when a conversation ends or
// after each exchange. Extract scans a decoded chunk of output for the
// summaries printed by known tools and returns one Record per recognized
// summary. Extraction is heuristic: it matches fixed keywords and the numbers
// printed around them, nothing more.
//
// Recognized formats:
//
//	Claude Code:  "Total cost: $1.23" with "Total input tokens: 12345" / "Total output tokens: 6789"
//	Aider:        "Tokens: 12.3k sent, 4.5k received. Cost: $0.04"
//
// Token counts accept thousands separators ("12,345"), decimals ("12.5"),
// and a k/K suffix ("12.3k" == 12300).
package usage
