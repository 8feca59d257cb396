package routing

import (
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const DefaultContextWindow = 3

var (
	emailPattern      = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)*`)
	customerIDPattern = regexp.MustCompile(`(?i)\bcustomer[ _](\d+)\b`)

	billingKeywords = []string{"balance", "payment", "bill", "charge", "account", "plan", "$"}

	escalationPhrases = []string{
		"connect me to human",
		"connect with human",
		"talk to human",
		"speak with human",
	}
)

// ExtractEmail returns the first local@domain token in text.
func ExtractEmail(text string) (string, bool) {
	match := emailPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// ExtractCustomerID finds "customer 102" / "Customer_102" and normalizes it
// to "customer_102".
func ExtractCustomerID(text string) (string, bool) {
	m := customerIDPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return "customer_" + m[1], true
}

func HasBillingKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range billingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func IsEscalationRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range escalationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// RecentContext renders the last window turns as "Role: content" pairs
// joined by " | ".
func RecentContext(history []contractx.ChatTurn, window int) string {
	if window <= 0 {
		window = DefaultContextWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	parts := make([]string, 0, len(history))
	for _, turn := range history {
		role := "Agent"
		if turn.IsUser() {
			role = "User"
		}
		parts = append(parts, role+": "+turn.Content)
	}
	return strings.Join(parts, " | ")
}
