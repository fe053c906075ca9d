package usage

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExtractClaudeSummary(t *testing.T) {
	text := "Total cost: $1.23\nTotal input tokens: 12345\nTotal output tokens: 6789"

	records := Extract(text, "sess-1")
	require.Len(t, records, 1)

	assert.Equal(t, Record{
		SessionID:    "sess-1",
		InputTokens:  12345,
		OutputTokens: 6789,
		Model:        ModelClaude,
		CostUSD:      1.23,
	}, records[0])
}

func TestExtractAiderReport(t *testing.T) {
	text := "Tokens: 12.3k sent, 4.5k received. Cost: $0.04"

	records := Extract(text, "sess-2")
	require.Len(t, records, 1)

	assert.Equal(t, Record{
		SessionID:    "sess-2",
		InputTokens:  12300,
		OutputTokens: 4500,
		Model:        ModelAider,
		CostUSD:      0.04,
	}, records[0])
}

func TestExtractNoMatch(t *testing.T) {
	records := Extract("Hello world, this is normal output", "sess-3")
	assert.Empty(t, records)
}

func TestExtractClaudeWithoutDollarAmount(t *testing.T) {
	records := Extract("Total cost: unknown\nTotal input tokens: 10", "s")
	assert.Empty(t, records)
}

func TestExtractClaudeDefaultsMissingCounts(t *testing.T) {
	records := Extract("Total cost: $0.50", "s")
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].InputTokens)
	assert.Equal(t, int64(0), records[0].OutputTokens)
	assert.Equal(t, 0.5, records[0].CostUSD)
}

func TestExtractClaudeCountBeforeKeyword(t *testing.T) {
	records := Extract("Session cost: $0.12 (12K input, 6.5k output)\nTotal cost: $0.12", "s")
	require.Len(t, records, 1)
	assert.Equal(t, int64(12000), records[0].InputTokens)
	assert.Equal(t, int64(6500), records[0].OutputTokens)
}

func TestExtractIsCaseInsensitive(t *testing.T) {
	records := Extract("TOTAL COST: $2\nTOTAL INPUT TOKENS: 1,024\nTOTAL OUTPUT TOKENS: 2,048", "s")
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].CostUSD)
	assert.Equal(t, int64(1024), records[0].InputTokens)
	assert.Equal(t, int64(2048), records[0].OutputTokens)
}

func TestExtractAiderRequiresAllMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing tokens", "12.3k sent, 4.5k received. Cost: $0.04"},
		{"missing sent", "Tokens: 4.5k received. Cost: $0.04"},
		{"missing cost", "Tokens: 12.3k sent, 4.5k received."},
		{"cost without dollar", "Tokens: 12.3k sent, 4.5k received. Cost: free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Extract(tt.text, "s"))
		})
	}
}

func TestExtractAiderUnparsableCountsDefaultToZero(t *testing.T) {
	records := Extract("Tokens: many sent, some received. Cost: $0.10", "s")
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].InputTokens)
	assert.Equal(t, int64(0), records[0].OutputTokens)
	assert.Equal(t, 0.10, records[0].CostUSD)
}

func TestExtractBothMatchersInOrder(t *testing.T) {
	text := "Tokens: 1k sent, 2k received. Cost: $0.01\nTotal cost: $0.50\nTotal input tokens: 100\nTotal output tokens: 200"

	records := Extract(text, "s")
	require.Len(t, records, 2)
	assert.Equal(t, ModelClaude, records[0].Model)
	assert.Equal(t, ModelAider, records[1].Model)
}

func TestParseTokenNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.3k", 12300, true},
		{"12K", 12000, true},
		{"12,345", 12345, true},
		{"12345", 12345, true},
		{"1,234.5k", 1234500, true},
		{"12.9", 12, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"k", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTokenNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDollarAmountStopsAtNonNumeric(t *testing.T) {
	v, ok := dollarAmount("Total cost: $3.50 USD", "total cost: $3.50 usd", "total cost")
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = dollarAmount("Total cost: $", "total cost: $", "total cost")
	assert.False(t, ok)
}

func TestExtractIsDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prefix := rapid.StringN(0, 40, -1).Draw(rt, "prefix")
		cost := rapid.Float64Range(0, 1000).Draw(rt, "cost")
		in := rapid.Int64Range(0, 1_000_000).Draw(rt, "input")
		text := prefix + "\nTotal cost: $" + formatCost(cost) + "\nTotal input tokens: " + formatInt(in)

		first := Extract(text, "s")
		second := Extract(text, "s")
		assert.Equal(rt, first, second)
	})
}

func TestParseTokenNumberThousands(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Int64Range(0, 999_999).Draw(rt, "n")

		plain, ok := ParseTokenNumber(formatInt(n))
		require.True(rt, ok)
		assert.Equal(rt, n, plain)

		kilo, ok := ParseTokenNumber(formatInt(n) + "K")
		require.True(rt, ok)
		assert.Equal(rt, n*1000, kilo)
	})
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
