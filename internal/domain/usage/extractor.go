package usage

import (
	"math"
	"strconv"
	"strings"
)

// Model labels attached to extracted records.
const (
	ModelClaude = "claude"
	ModelAider  = "aider"
)

// Record is a single usage observation attributed to a session.
type Record struct {
	SessionID    string  `json:"sessionId"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	Model        string  `json:"model"`
	CostUSD      float64 `json:"costUsd"`
}

// matcher inspects a chunk and reports at most one record.
type matcher func(text, lower, sessionID string) (Record, bool)

// matchers run in this order on every chunk; a chunk may produce one record
// per matcher.
var matchers = []matcher{
	matchClaude,
	matchAider,
}

// Extract returns the usage records found in text. It never fails: a chunk
// without a recognizable summary yields an empty slice.
func Extract(text, sessionID string) []Record {
	lower := asciiLower(text)

	records := make([]Record, 0, len(matchers))
	for _, match := range matchers {
		if rec, ok := match(text, lower, sessionID); ok {
			records = append(records, rec)
		}
	}
	return records
}

// matchClaude handles the Claude Code exit summary.
func matchClaude(text, lower, sessionID string) (Record, bool) {
	cost, ok := dollarAmount(text, lower, "total cost")
	if !ok {
		return Record{}, false
	}

	input, _ := tokenCount(text, lower, "input tokens", "input")
	output, _ := tokenCount(text, lower, "output tokens", "output")

	return Record{
		SessionID:    sessionID,
		InputTokens:  input,
		OutputTokens: output,
		Model:        ModelClaude,
		CostUSD:      cost,
	}, true
}

// matchAider handles aider's per-message report line.
func matchAider(text, lower, sessionID string) (Record, bool) {
	if !strings.Contains(lower, "tokens:") || !strings.Contains(lower, "sent") || !strings.Contains(lower, "cost:") {
		return Record{}, false
	}

	cost, ok := dollarAmount(text, lower, "cost")
	if !ok {
		return Record{}, false
	}

	sent, _ := countBefore(lower, "sent")
	received, _ := countBefore(lower, "received")

	return Record{
		SessionID:    sessionID,
		InputTokens:  sent,
		OutputTokens: received,
		Model:        ModelAider,
		CostUSD:      cost,
	}, true
}

// dollarAmount finds the first occurrence of keyword and parses the digits
// and dots that follow the next '$'.
func dollarAmount(text, lower, keyword string) (float64, bool) {
	pos := strings.Index(lower, keyword)
	if pos < 0 {
		return 0, false
	}
	after := text[pos+len(keyword):]

	dollar := strings.IndexByte(after, '$')
	if dollar < 0 {
		return 0, false
	}

	digits := after[dollar+1:]
	end := 0
	for end < len(digits) && (isDigit(digits[end]) || digits[end] == '.') {
		end++
	}

	v, err := strconv.ParseFloat(digits[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// tokenCount tries each keyword in turn and returns the number printed right
// before it, or failing that the first number after it.
func tokenCount(text, lower string, keywords ...string) (int64, bool) {
	for _, keyword := range keywords {
		pos := strings.Index(lower, keyword)
		if pos < 0 {
			continue
		}
		if n, ok := numberBefore(text[:pos]); ok {
			return n, true
		}
		if n, ok := numberAfter(text[pos+len(keyword):]); ok {
			return n, true
		}
	}
	return 0, false
}

// countBefore parses the whitespace-separated word immediately preceding
// keyword, as in "12.3k sent".
func countBefore(lower, keyword string) (int64, bool) {
	pos := strings.Index(lower, keyword)
	if pos < 0 {
		return 0, false
	}
	fields := strings.Fields(lower[:pos])
	if len(fields) == 0 {
		return 0, false
	}
	return ParseTokenNumber(fields[len(fields)-1])
}

func numberBefore(s string) (int64, bool) {
	s = trimSeparators(s)
	start := len(s)
	for start > 0 && isNumberByte(s[start-1]) {
		start--
	}
	return ParseTokenNumber(s[start:])
}

func numberAfter(s string) (int64, bool) {
	s = trimSeparators(s)
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && isNumberByte(s[end]) {
		end++
	}
	return ParseTokenNumber(s[start:end])
}

// ParseTokenNumber parses counts as CLIs print them: "12345", "12,345",
// "12K" and "12.3k". Fractional values are truncated toward zero.
func ParseTokenNumber(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	lower := asciiLower(s)
	if strings.HasSuffix(lower, "k") {
		v, err := strconv.ParseFloat(strings.ReplaceAll(lower[:len(lower)-1], ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return truncate(v * 1000), true
	}

	cleaned := strings.ReplaceAll(s, ",", "")
	if strings.Contains(cleaned, ".") {
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return truncate(v), true
	}

	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// truncate converts toward zero, saturating at the int64 range.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

func trimSeparators(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ":"))
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isNumberByte(b byte) bool {
	return isDigit(b) || b == ',' || b == '.' || b == 'k' || b == 'K'
}

// asciiLower folds A-Z only, so byte offsets in the result line up with the
// input. Every keyword matched here is ASCII.
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
