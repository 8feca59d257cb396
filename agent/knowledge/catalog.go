package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	FAQNotFound  = "I could not find an answer to your question in the FAQ. Please try rephrasing or ask for human assistance."
	TechNotFound = "Sorry, I couldn't find a solution for your issue. Please provide more details or contact support."

	billingNotFoundFormat = "Could not find billing information for customer ID: %s. Please verify the ID."

	overlapRatio      = 0.7
	minSharedOverlaps = 2
)

type BillingRecord struct {
	Name            string `json:"name"`
	Balance         string `json:"balance"`
	LastPaymentDate string `json:"last_payment_date"`
	Plan            string `json:"plan"`
}

// Catalogs are the three static key-value sources behind the agents' tools.
type Catalogs struct {
	FAQ     map[string]string
	Tech    map[string]string
	Billing map[string]BillingRecord
}

// Source loads catalogs. A failed catalog comes back empty and is
// reported in the error; callers keep serving with what did load.
type Source interface {
	Load(ctx context.Context) (Catalogs, error)
}

// Base answers lookups over loaded catalogs. Misses return sentinel text,
// never an error.
type Base struct {
	faq     []entry
	tech    []entry
	billing map[string]BillingRecord
}

type entry struct {
	key    string
	lower  string
	tokens map[string]struct{}
	value  string
}

func NewBase(c Catalogs) *Base {
	billing := make(map[string]BillingRecord, len(c.Billing))
	for k, v := range c.Billing {
		billing[k] = v
	}
	return &Base{
		faq:     buildEntries(c.FAQ),
		tech:    buildEntries(c.Tech),
		billing: billing,
	}
}

func (b *Base) Sizes() (faq, tech, billing int) {
	return len(b.faq), len(b.tech), len(b.billing)
}

func (b *Base) LookupFAQ(query string) string {
	if v, ok := matchEntries(b.faq, query); ok {
		return v
	}
	return FAQNotFound
}

func (b *Base) LookupTech(issue string) string {
	lower := strings.ToLower(strings.TrimSpace(issue))
	if lower == "" {
		return TechNotFound
	}
	for _, e := range b.tech {
		if e.lower == lower {
			return e.value
		}
	}
	for _, e := range b.tech {
		if strings.Contains(e.lower, lower) {
			return e.value
		}
	}
	if v, ok := matchEntries(b.tech, issue); ok {
		return v
	}
	return TechNotFound
}

// LookupBilling is exact-key only; a malformed id simply misses.
func (b *Base) LookupBilling(customerID string) string {
	id := strings.TrimSpace(customerID)
	info, ok := b.billing[id]
	if !ok {
		return fmt.Sprintf(billingNotFoundFormat, id)
	}
	return fmt.Sprintf(
		"Customer ID: %s, Name: %s, Balance: %s, Last Payment: %s, Plan: %s.",
		id, info.Name, info.Balance, info.LastPaymentDate, info.Plan,
	)
}

// matchEntries tries key containment first, then token overlap.
func matchEntries(entries []entry, query string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return "", false
	}
	for _, e := range entries {
		if e.lower != "" && strings.Contains(lower, e.lower) {
			return e.value, true
		}
	}

	queryTokens := tokenize(lower)
	if len(queryTokens) == 0 {
		return "", false
	}

	best, bestShared := "", 0
	for _, e := range entries {
		shared := 0
		for tok := range e.tokens {
			if _, ok := queryTokens[tok]; ok {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		if shared > bestShared {
			best, bestShared = e.value, shared
		}
		smaller := min(len(queryTokens), len(e.tokens))
		if float64(shared) >= float64(smaller)*overlapRatio {
			return e.value, true
		}
	}
	if bestShared >= minSharedOverlaps {
		return best, true
	}
	return "", false
}

func buildEntries(m map[string]string) []entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]entry, 0, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(strings.TrimSpace(k))
		out = append(out, entry{
			key:    k,
			lower:  lower,
			tokens: tokenize(lower),
			value:  m[k],
		})
	}
	return out
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
