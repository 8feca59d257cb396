package routing

import (
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func TestExtractEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"connect me to human, my email is a@b.com":  "a@b.com",
		"reach me at jane.doe+help@mail.example.org.": "jane.doe+help@mail.example.org",
		"EMAIL: Foo_Bar@Example.COM please":           "Foo_Bar@Example.COM",
	}
	for in, want := range cases {
		got, ok := ExtractEmail(in)
		if !ok || got != want {
			t.Fatalf("ExtractEmail(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	for _, in := range []string{"", "no email here", "at sign @ alone", "user@"} {
		if got, ok := ExtractEmail(in); ok {
			t.Fatalf("ExtractEmail(%q) = %q, want miss", in, got)
		}
	}
}

func TestExtractCustomerID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"What's my balance for customer_101?": "customer_101",
		"check Customer 102 please":           "customer_102",
		"CUSTOMER_7":                          "customer_7",
	}
	for in, want := range cases {
		got, ok := ExtractCustomerID(in)
		if !ok || got != want {
			t.Fatalf("ExtractCustomerID(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	for _, in := range []string{"customer service is slow", "customers 12", "id 101"} {
		if got, ok := ExtractCustomerID(in); ok {
			t.Fatalf("ExtractCustomerID(%q) = %q, want miss", in, got)
		}
	}
}

func TestHasBillingKeywords(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"Why was I CHARGED twice", "upgrade my Plan", "it costs $20", "my bill"} {
		if !HasBillingKeywords(in) {
			t.Fatalf("HasBillingKeywords(%q) = false", in)
		}
	}
	if HasBillingKeywords("What are your support hours?") {
		t.Fatal("support hours must not be billing")
	}
}

func TestIsEscalationRequest(t *testing.T) {
	t.Parallel()

	if !IsEscalationRequest("Please CONNECT ME TO HUMAN now") {
		t.Fatal("expected escalation phrase to match")
	}
	if IsEscalationRequest("are you human?") {
		t.Fatal("unexpected escalation match")
	}
}

func TestRecentContext(t *testing.T) {
	t.Parallel()

	history := []contractx.ChatTurn{
		{Role: contractx.RoleUser, Content: "hi"},
		{Role: contractx.RoleAgent, Content: "hello"},
		{Role: contractx.RoleUser, Content: "internet down"},
		{Role: "ai", Content: "try restarting"},
	}

	got := RecentContext(history, 3)
	want := "Agent: hello | User: internet down | Agent: try restarting"
	if got != want {
		t.Fatalf("RecentContext() = %q, want %q", got, want)
	}

	got = RecentContext(history[:1], 3)
	if got != "User: hi" {
		t.Fatalf("RecentContext(short) = %q", got)
	}

	if got := RecentContext(nil, 3); got != "" {
		t.Fatalf("RecentContext(nil) = %q, want empty", got)
	}
}

func TestRecentContextRoleIgnoresCase(t *testing.T) {
	t.Parallel()

	history := []contractx.ChatTurn{
		{Role: "User", Content: "hi"},
		{Role: " USER ", Content: "still there?"},
		{Role: "Assistant", Content: "yes"},
	}

	want := "User: hi | User: still there? | Agent: yes"
	if got := RecentContext(history, 3); got != want {
		t.Fatalf("RecentContext() = %q, want %q", got, want)
	}
}
