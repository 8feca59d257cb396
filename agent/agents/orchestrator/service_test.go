package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

type fakeResponder struct {
	mu      sync.Mutex
	outputs []string
	err     error
	block   bool
	calls   int
	reqs    []contractx.ResponderRequest
	onCall  func()
}

func (f *fakeResponder) Respond(ctx context.Context, req contractx.ResponderRequest) (contractx.ResponderResponse, error) {
	f.mu.Lock()
	f.calls++
	f.reqs = append(f.reqs, req)
	idx := f.calls - 1
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if f.block {
		<-ctx.Done()
		return contractx.ResponderResponse{}, ctx.Err()
	}
	if f.err != nil {
		return contractx.ResponderResponse{}, f.err
	}
	if len(f.outputs) == 0 {
		return contractx.ResponderResponse{}, fmt.Errorf("no fake output at call=%d", f.calls)
	}
	if idx >= len(f.outputs) {
		idx = len(f.outputs) - 1
	}
	return contractx.ResponderResponse{Output: f.outputs[idx]}, nil
}

func (f *fakeResponder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRegistry struct {
	triage  *fakeResponder
	tech    *fakeResponder
	billing *fakeResponder
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		triage:  &fakeResponder{},
		tech:    &fakeResponder{},
		billing: &fakeResponder{},
	}
}

func (r *fakeRegistry) Triage() contractx.Responder  { return r.triage }
func (r *fakeRegistry) Tech() contractx.Responder    { return r.tech }
func (r *fakeRegistry) Billing() contractx.Responder { return r.billing }

type escalationCall struct {
	summary string
	email   string
}

type fakeEscalator struct {
	mu    sync.Mutex
	calls []escalationCall
}

func (f *fakeEscalator) Escalate(ctx context.Context, summary string, email string) contractx.EscalationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, escalationCall{summary: summary, email: email})
	id := fmt.Sprintf("TICKET%02d", len(f.calls))
	return contractx.EscalationResult{
		Ticket:       contractx.EscalationTicket{TicketID: id, Summary: summary, Email: email},
		Confirmation: fmt.Sprintf("Your ticket number is %s. A confirmation has been sent to %s.", id, email),
	}
}

type failingSaveStore struct {
	*statex.MemoryStore
	err error
}

func (f failingSaveStore) Save(ctx context.Context, s *statex.Session) error {
	return f.err
}

type harness struct {
	orch      *Orchestrator
	store     *statex.MemoryStore
	models    *fakeRegistry
	escalator *fakeEscalator
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		store:     statex.NewMemoryStore(),
		models:    newFakeRegistry(),
		escalator: &fakeEscalator{},
	}
	orch, err := New(h.store, h.models, h.escalator, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) session(t *testing.T, id string) *statex.Session {
	t.Helper()
	s, err := h.store.GetOrCreate(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	return s
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	_, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "   "})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if h.models.triage.Calls() != 0 {
		t.Fatal("triage must not run for an empty message")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, newFakeRegistry(), &fakeEscalator{}, Config{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := New(statex.NewMemoryStore(), nil, &fakeEscalator{}, Config{}); err == nil {
		t.Fatal("expected error without registry")
	}
	if _, err := New(statex.NewMemoryStore(), newFakeRegistry(), nil, Config{}); err == nil {
		t.Fatal("expected error without escalator")
	}
}

func TestHandleMessageTechNeedsEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"ROUTE_TECH: internet down"}
	h.models.tech.outputs = []string{"NEED_EMAIL_FOR_ESCALATION: no fix found"}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "My internet is not working",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != nodex.PromptTechEmail {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if !out.RequiresAction || out.ActionType != "provide_email" || out.SessionID != "s1" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if got := h.models.tech.reqs[0].Input; got != "My internet is not working\n\nRouting context: internet down" {
		t.Fatalf("unexpected tech query: %q", got)
	}

	sess := h.session(t, "s1")
	if !sess.WaitingForEmail || sess.EscalationSummary != "no fix found" || sess.OriginalQuery != "My internet is not working" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestHandleMessageCustomerIDBypassesTriage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"ROUTE_TECH"}
	h.models.billing.outputs = []string{"Your balance is $50.00 on the Premium plan."}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "What's my balance for customer_101?",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.models.triage.Calls() != 0 {
		t.Fatal("triage must be bypassed when a customer id is present")
	}
	if !strings.Contains(h.models.billing.reqs[0].Input, "customer_101") {
		t.Fatalf("billing query missing customer id: %q", h.models.billing.reqs[0].Input)
	}
	if out.Response != "Your balance is $50.00 on the Premium plan." || out.RequiresAction {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestHandleMessageCustomerIDNormalized(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.billing.outputs = []string{"ok"}

	if _, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "balance for Customer 555 please",
	}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.HasSuffix(h.models.billing.reqs[0].Input, "Customer ID: customer_555") {
		t.Fatalf("unexpected billing query: %q", h.models.billing.reqs[0].Input)
	}
}

func TestHandleMessageCustomerIDShortcutDisabled(t *testing.T) {
	t.Parallel()

	policy := nodex.DefaultPolicy()
	policy.CustomerIDShortcut = false
	h := newHarness(t, Config{Policy: &policy})
	h.models.triage.outputs = []string{"ROUTE_TECH"}
	h.models.tech.outputs = []string{"Try restarting."}

	if _, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "customer_101 app keeps crashing",
	}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.models.triage.Calls() != 1 || h.models.billing.Calls() != 0 || h.models.tech.Calls() != 1 {
		t.Fatalf("unexpected calls triage=%d billing=%d tech=%d",
			h.models.triage.Calls(), h.models.billing.Calls(), h.models.tech.Calls())
	}
}

func TestHandleMessageDirectEscalationWithEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	out, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "connect me to human, my email is a@b.com",
		History: []contractx.ChatTurn{
			{Role: contractx.RoleUser, Content: "my app crashes"},
			{Role: contractx.RoleAgent, Content: "Try reinstalling."},
		},
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(out.Response, "TICKET01") || !strings.Contains(out.Response, "a@b.com") {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if out.RequiresAction {
		t.Fatal("completed escalation must not require action")
	}
	if len(h.escalator.calls) != 1 {
		t.Fatalf("expected one escalation, got %d", len(h.escalator.calls))
	}
	want := "Customer requested direct escalation. Context: User: my app crashes | Agent: Try reinstalling."
	if h.escalator.calls[0].summary != want {
		t.Fatalf("summary = %q, want %q", h.escalator.calls[0].summary, want)
	}
	if h.models.triage.Calls() != 0 {
		t.Fatal("triage must not run for a direct escalation")
	}
	if sess := h.session(t, "s1"); sess.WaitingForEmail {
		t.Fatalf("no state may be left pending: %+v", sess)
	}
}

func TestHandleMessageEmailCollectionRoundTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ctx := context.Background()

	out, err := h.orch.HandleMessage(ctx, TurnInput{SessionID: "s1", Message: "I want to talk to human"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != nodex.PromptDirectEscalation || !out.RequiresAction {
		t.Fatalf("unexpected first response: %+v", out)
	}
	if !h.session(t, "s1").WaitingForEmail {
		t.Fatal("session must wait for email")
	}

	out, err = h.orch.HandleMessage(ctx, TurnInput{SessionID: "s1", Message: "why do you need it?"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != nodex.PromptEmailReminder || out.ActionType != "provide_email" {
		t.Fatalf("unexpected reminder: %+v", out)
	}
	if h.models.triage.Calls() != 0 {
		t.Fatal("pending email collection must take precedence over triage")
	}
	pending := h.session(t, "s1")
	if !pending.WaitingForEmail || pending.OriginalQuery != "I want to talk to human" {
		t.Fatalf("reminder must not mutate pending state: %+v", pending)
	}

	out, err = h.orch.HandleMessage(ctx, TurnInput{SessionID: "s1", Message: "fine, it's jo@example.org"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(out.Response, "TICKET01") || out.RequiresAction {
		t.Fatalf("unexpected confirmation: %+v", out)
	}
	call := h.escalator.calls[0]
	if call.email != "jo@example.org" || call.summary != "Customer requested direct escalation. Context: User: I want to talk to human" {
		t.Fatalf("unexpected escalation call: %+v", call)
	}

	sess := h.session(t, "s1")
	if sess.WaitingForEmail || sess.EscalationSummary != "" || sess.OriginalQuery != "" {
		t.Fatalf("pending fields not reset: %+v", sess)
	}
}

func TestHandleMessagePendingWithoutSummaryUsesFallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ctx := context.Background()

	sess := h.session(t, "s1")
	sess.AwaitEmail("", "")
	if err := h.store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := h.orch.HandleMessage(ctx, TurnInput{SessionID: "s1", Message: "a@b.com"}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.escalator.calls[0].summary != "Issue requiring human attention." {
		t.Fatalf("unexpected summary: %q", h.escalator.calls[0].summary)
	}
}

func TestHandleMessageFAQAnswerReturnedUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	answer := "Our support hours are Monday to Friday, 9 AM to 5 PM EST."
	h.models.triage.outputs = []string{answer}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "What are your support hours?"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != answer || out.RequiresAction || out.ActionType != "" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if h.models.tech.Calls() != 0 || h.models.billing.Calls() != 0 {
		t.Fatal("no specialist may run for a direct answer")
	}
}

func TestHandleMessageKeywordBillingFallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"Could you clarify your question?"}
	h.models.billing.outputs = []string{"Please share your customer ID."}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "Why is my bill so high?"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != "Please share your customer ID." {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if h.models.billing.reqs[0].Input != "Why is my bill so high?" {
		t.Fatalf("unexpected billing query: %q", h.models.billing.reqs[0].Input)
	}

	policy := nodex.DefaultPolicy()
	policy.KeywordBillingFallback = false
	h = newHarness(t, Config{Policy: &policy})
	h.models.triage.outputs = []string{"Could you clarify your question?"}

	out, err = h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "Why is my bill so high?"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != "Could you clarify your question?" || h.models.billing.Calls() != 0 {
		t.Fatalf("fallback must be disabled: %+v", out)
	}
}

func TestHandleMessageRouteMarkerAnywhere(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"This looks like a billing question.\nROUTE_BILLING"}
	h.models.billing.outputs = []string{"NEED_EMAIL_FOR_ESCALATION: refund request"}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "I want my money back"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != nodex.PromptBillingEmail {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if h.models.billing.reqs[0].Input != "I want my money back" {
		t.Fatalf("route without description must pass the raw query: %q", h.models.billing.reqs[0].Input)
	}
	if h.session(t, "s1").EscalationSummary != "refund request" {
		t.Fatal("summary not stored")
	}
}

func TestHandleMessageCleansSpecialistOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"ROUTE_TECH"}
	h.models.tech.outputs = []string{"Thought: look up the kb\nRestart your router.\n\n\n\nThen wait 30 seconds.\nROUTE_TECH"}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "wifi broken"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Response != "Restart your router.\n\nThen wait 30 seconds." {
		t.Fatalf("unexpected cleaned response: %q", out.Response)
	}
}

func TestHandleMessageSpecialistFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.models.triage.outputs = []string{"ROUTE_TECH"}
	h.models.tech.err = errors.New("model unavailable")

	_, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "app crash"})
	if err == nil {
		t.Fatal("expected error")
	}
	if sess := h.session(t, "s1"); sess.WaitingForEmail {
		t.Fatalf("failed turn must not leave pending state: %+v", sess)
	}
}

func TestHandleMessageSpecialistTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{SpecialistTimeout: 20 * time.Millisecond})
	h.models.triage.block = true

	_, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "hello"})
	if !errors.Is(err, contractx.ErrSpecialistTimeout) {
		t.Fatalf("expected ErrSpecialistTimeout, got %v", err)
	}
}

func TestHandleMessageSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("save failed")
	models := newFakeRegistry()
	models.triage.outputs = []string{"answer"}
	orch, err := New(failingSaveStore{MemoryStore: statex.NewMemoryStore(), err: saveErr}, models, &fakeEscalator{}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = orch.HandleMessage(context.Background(), TurnInput{SessionID: "s1", Message: "hi"})
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestHandleMessageGeneratesSessionID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.orch.newID = func() string { return "generated-1" }
	h.models.triage.outputs = []string{"hello there"}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{Message: "hi"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.SessionID != "generated-1" {
		t.Fatalf("unexpected session id: %q", out.SessionID)
	}
	if h.store.Len() != 1 {
		t.Fatalf("expected generated session to be stored, got %d", h.store.Len())
	}
}

func TestHandleMessageSerializesSameSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	var active, maxActive int32
	h.models.triage.outputs = []string{"answer"}
	h.models.triage.onCall = func() {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.orch.HandleMessage(context.Background(), TurnInput{SessionID: "shared", Message: "hi"}); err != nil {
				t.Errorf("HandleMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("turns for one session overlapped: max=%d", maxActive)
	}
	if h.models.triage.Calls() != 10 {
		t.Fatalf("expected 10 triage calls, got %d", h.models.triage.Calls())
	}
}

func TestHandleMessageExplicitPolicyKeepsTogglesOff(t *testing.T) {
	t.Parallel()

	policy := nodex.Policy{}
	h := newHarness(t, Config{Policy: &policy})
	h.models.triage.outputs = []string{"Could you tell me more about the charge?"}

	out, err := h.orch.HandleMessage(context.Background(), TurnInput{
		SessionID: "s1",
		Message:   "customer_101 why is my bill so high?",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.models.triage.Calls() != 1 || h.models.billing.Calls() != 0 {
		t.Fatalf("unexpected calls triage=%d billing=%d", h.models.triage.Calls(), h.models.billing.Calls())
	}
	if out.Response != "Could you tell me more about the charge?" {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if h.orch.policy.ContextWindow != nodex.DefaultPolicy().ContextWindow {
		t.Fatalf("context window = %d, want default", h.orch.policy.ContextWindow)
	}
}
