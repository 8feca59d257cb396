package routing

import "testing"

func TestParseTriage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		kind    Kind
		payload string
	}{
		{"ROUTE_TECH: internet down", KindRouteTech, "internet down"},
		{"ROUTE_TECH", KindRouteTech, ""},
		{"  ROUTE_BILLING:refund request\nextra", KindRouteBilling, "refund request"},
		{"Sure, let me send you over.\nROUTE_BILLING", KindRouteBilling, ""},
		{"Our support hours are 9 to 5.", KindFAQAnswer, "Our support hours are 9 to 5."},
		{"ROUTE_TECHNICIAN is not a marker", KindFAQAnswer, "ROUTE_TECHNICIAN is not a marker"},
	}

	for _, tc := range cases {
		got := ParseTriage(tc.in)
		if got.Kind != tc.kind || got.Payload != tc.payload {
			t.Fatalf("ParseTriage(%q) = %+v, want kind=%s payload=%q", tc.in, got, tc.kind, tc.payload)
		}
	}
}

func TestParseSpecialist(t *testing.T) {
	t.Parallel()

	got := ParseSpecialist("NEED_EMAIL_FOR_ESCALATION: no fix found")
	if got.Kind != KindNeedEmail || got.Payload != "no fix found" {
		t.Fatalf("unexpected decision: %+v", got)
	}

	got = ParseSpecialist("Restart your router and wait 30 seconds.")
	if got.Kind != KindFAQAnswer {
		t.Fatalf("expected answer, got %+v", got)
	}
}
