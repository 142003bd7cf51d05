// Package router classifies questions into corpus targets by keyword tables.
package router

import (
	"strings"

	"grocerai/internal/domain"
)

// PolicyKeywords send a question to the policy corpus. They take precedence
// over every other rule.
var PolicyKeywords = []string{
	"policy", "policies", "refund", "exchange", "leave", "guideline", "rule", "discount", "conduct",
}

// SalesTerms name the total-amount field in aggregate questions.
var SalesTerms = []string{
	"sales", "revenue", "total amount", "total_amount", "turnover",
}

// WindowPhrase maps a phrase onto a date window.
type WindowPhrase struct {
	Phrase string
	Window domain.Window
}

// WindowPhrases are checked in order; the first match wins.
var WindowPhrases = []WindowPhrase{
	{"yesterday", domain.WindowYesterday},
	{"last 7 days", domain.WindowLast7Days},
	{"past 7 days", domain.WindowLast7Days},
	{"last seven days", domain.WindowLast7Days},
	{"past seven days", domain.WindowLast7Days},
	{"past week", domain.WindowLast7Days},
	{"last week", domain.WindowLast7Days},
	{"today", domain.WindowToday},
}

// Router is a pure function of the query text and its keyword tables.
type Router struct {
	policy  []string
	sales   []string
	windows []WindowPhrase
}

// New builds a router over the default tables plus extra policy keywords.
func New(extraPolicyKeywords ...string) *Router {
	policy := append([]string(nil), PolicyKeywords...)
	for _, kw := range extraPolicyKeywords {
		if kw = normalize(kw); kw != "" {
			policy = append(policy, kw)
		}
	}
	return &Router{policy: policy, sales: SalesTerms, windows: WindowPhrases}
}

// Route picks the target for a query: policies, then direct compute, then
// the transactions corpus by default.
func (r *Router) Route(query string) domain.RouteDecision {
	q := normalize(query)
	if containsAny(q, r.policy) {
		return domain.PoliciesRoute()
	}
	if w, ok := r.window(q); ok && containsAny(q, r.sales) {
		return domain.DirectCompute(w)
	}
	return domain.TransactionsRoute()
}

func (r *Router) window(q string) (domain.Window, bool) {
	for _, wp := range r.windows {
		if strings.Contains(q, wp.Phrase) {
			return wp.Window, true
		}
	}
	return 0, false
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// normalize lowercases, folds curly apostrophes and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	return strings.Join(strings.Fields(s), " ")
}
