package routing

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindFAQAnswer      Kind = "FAQ_ANSWER"
	KindRouteTech      Kind = "ROUTE_TECH"
	KindRouteBilling   Kind = "ROUTE_BILLING"
	KindNeedEmail      Kind = "NEED_EMAIL"
	KindDirectEscalate Kind = "DIRECT_ESCALATE"
)

const (
	MarkerRouteTech    = "ROUTE_TECH"
	MarkerRouteBilling = "ROUTE_BILLING"
	MarkerNeedEmail    = "NEED_EMAIL_FOR_ESCALATION:"
)

// Decision is the tagged result of interpreting free-form agent text.
// Downstream code branches on Kind only.
type Decision struct {
	Kind    Kind
	Payload string
}

func (d Decision) IsRoute() bool {
	return d.Kind == KindRouteTech || d.Kind == KindRouteBilling
}

var routeMarkerPattern = regexp.MustCompile(`\bROUTE_(TECH|BILLING)\b(?:[ \t]*:[ \t]*([^\r\n]*))?`)

// ParseTriage looks for the first routing marker anywhere in the triage
// output. Without one the text is a direct answer.
func ParseTriage(text string) Decision {
	m := routeMarkerPattern.FindStringSubmatch(text)
	if m == nil {
		return Decision{Kind: KindFAQAnswer, Payload: strings.TrimSpace(text)}
	}

	kind := KindRouteTech
	if m[1] == "BILLING" {
		kind = KindRouteBilling
	}
	return Decision{Kind: kind, Payload: strings.TrimSpace(m[2])}
}

// ParseSpecialist detects an escalation request that still lacks an email.
func ParseSpecialist(text string) Decision {
	if idx := strings.Index(text, MarkerNeedEmail); idx >= 0 {
		return Decision{
			Kind:    KindNeedEmail,
			Payload: strings.TrimSpace(text[idx+len(MarkerNeedEmail):]),
		}
	}
	return Decision{Kind: KindFAQAnswer, Payload: text}
}
