// Package anomaly provides the leak and anomaly checks the ledger consults
// before admitting transaction data.
package anomaly

import (
	"strings"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"
)

// Detector defines the checks the ledger runs over transaction data. A true
// result from PreventDataLeak means the caller must reject the data. A true
// result from DetectAnomaly is informational only.
type Detector interface {
	PreventDataLeak(data string, shardID int) bool
	DetectAnomaly(data string, shardID int) bool
}

// Substrings that must never appear in ledger payloads.
var sensitivePatterns = []string{
	"password", "secret", "api_key", "private_key",
	"token", "credential", "ssn", "credit_card",
}

// Injection shapes that raise the anomaly score.
var attackPatterns = []string{
	"select ", "drop ", "delete ", "insert ",
	"<script", "javascript:", "onerror=", "onclick=",
}

// Heuristic is the default Detector. It is stateless apart from counters
// and safe for concurrent use.
type Heuristic struct {
	log            *zap.SugaredLogger
	leaksPrevented atomic.Uint64
	anomalies      atomic.Uint64
}

// NewHeuristic constructs the default pattern based detector.
func NewHeuristic(log *zap.SugaredLogger) *Heuristic {
	return &Heuristic{log: log}
}

// PreventDataLeak reports whether the data carries a sensitive pattern.
func (h *Heuristic) PreventDataLeak(data string, shardID int) bool {
	lower := strings.ToLower(data)

	for _, pattern := range sensitivePatterns {
		if strings.Contains(lower, pattern) {
			h.leaksPrevented.Add(1)
			h.log.Errorw("data leak prevented", "pattern", pattern, "shard", shardID)
			return true
		}
	}

	return false
}

// DetectAnomaly scores the data for abnormal shape and reports whether the
// score crosses the alerting threshold.
func (h *Heuristic) DetectAnomaly(data string, shardID int) bool {
	var score float64

	if len(data) > 1_000_000 || len(data) < 5 {
		score += 0.3
	}

	var special int
	for _, r := range data {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	length := len(data)
	if length == 0 {
		length = 1
	}
	if float64(special)/float64(length) > 0.3 {
		score += 0.3
	}

	for _, pattern := range attackPatterns {
		if strings.Contains(data, pattern) {
			score += 0.4
			break
		}
	}

	if score > 0.5 {
		h.anomalies.Add(1)
		h.log.Warnw("anomaly detected", "score", score, "shard", shardID)
		return true
	}

	return false
}

// LeaksPrevented returns the number of rejected payloads.
func (h *Heuristic) LeaksPrevented() uint64 {
	return h.leaksPrevented.Load()
}

// Anomalies returns the number of flagged payloads.
func (h *Heuristic) Anomalies() uint64 {
	return h.anomalies.Load()
}
