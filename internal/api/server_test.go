package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository/memory"
)

type nopGranter struct{}

func (nopGranter) GrantMinutes(context.Context, int64, int) {}

type apiEnv struct {
	srv    *httptest.Server
	sess   engine.Session
	child  *models.Member
	client *http.Client
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	eng := engine.New(store.Repositories(), store.TxManager(), nopGranter{}, nil, logger)

	household, err := store.Repositories().Households.Create(ctx, &models.Household{Name: "Testers"})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	parent, err := eng.CreateMember(ctx, engine.Session{HouseholdID: household.ID}, "Dana", models.MemberRoleParent, nil)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	sess := engine.Session{HouseholdID: household.ID, MemberID: parent.ID}
	child, err := eng.CreateMember(ctx, sess, "Theo", models.MemberRoleChild, nil)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	srv := httptest.NewServer(NewServer(eng, nil, logger).Handler())
	t.Cleanup(srv.Close)
	return &apiEnv{srv: srv, sess: sess, child: child, client: srv.Client()}
}

// do sends a request with the caller identity headers and decodes the JSON
// response into out (when out is non-nil).
func (env *apiEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.srv.URL+path, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Household-ID", strconv.FormatInt(env.sess.HouseholdID, 10))
	req.Header.Set("X-Member-ID", strconv.FormatInt(env.sess.MemberID, 10))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestServer_AssignmentFlow(t *testing.T) {
	env := newAPIEnv(t)

	var task models.TaskAssignment
	code := env.do(t, http.MethodPost, "/api/assignments", map[string]any{
		"member_id":   env.child.ID,
		"template_id": 7,
		"base_xp":     1000,
	}, &task)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	if task.Status != models.TaskStatusAssigned {
		t.Fatalf("expected assigned, got %s", task.Status)
	}

	base := fmt.Sprintf("/api/assignments/%d", task.ID)
	if code := env.do(t, http.MethodPut, base+"/start", nil, nil); code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", code)
	}
	if code := env.do(t, http.MethodPut, base+"/submit", map[string]string{"proof_ref": "photo:1"}, nil); code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", code)
	}

	var credited map[string]int
	if code := env.do(t, http.MethodPut, base+"/approve", nil, &credited); code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", code)
	}
	if credited["xp_credited"] != 1000 || credited["minutes_credited"] != 1200 {
		t.Fatalf("unexpected credit: %v", credited)
	}

	var balance models.RewardBalance
	path := fmt.Sprintf("/api/members/%d/balance", env.child.ID)
	if code := env.do(t, http.MethodGet, path, nil, &balance); code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", code)
	}
	if balance.MinutesBalance != 1200 {
		t.Fatalf("expected 1200 minutes, got %d", balance.MinutesBalance)
	}

	var member models.Member
	path = fmt.Sprintf("/api/members/%d", env.child.ID)
	if code := env.do(t, http.MethodGet, path, nil, &member); code != http.StatusOK {
		t.Fatalf("member: expected 200, got %d", code)
	}
	if member.Name != "Theo" || member.Role != models.MemberRoleChild {
		t.Fatalf("unexpected member: %+v", member)
	}

	var trust models.TrustStatus
	path = fmt.Sprintf("/api/members/%d/trust", env.child.ID)
	if code := env.do(t, http.MethodGet, path, nil, &trust); code != http.StatusOK {
		t.Fatalf("trust: expected 200, got %d", code)
	}
	if trust.Tier != models.TierExcellent {
		t.Fatalf("expected excellent, got %s", trust.Tier)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	env := newAPIEnv(t)

	var task models.TaskAssignment
	env.do(t, http.MethodPost, "/api/assignments", map[string]any{
		"member_id":   env.child.ID,
		"template_id": 7,
		"base_xp":     100,
	}, &task)
	base := fmt.Sprintf("/api/assignments/%d", task.ID)

	// Approving an assignment that is not pending_review is a conflict.
	var body map[string]string
	if code := env.do(t, http.MethodPut, base+"/approve", nil, &body); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if body["error"] != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %q", body["error"])
	}

	// A member outside the caller's household is forbidden. The body must
	// carry the error kind, not an empty list.
	if code := env.do(t, http.MethodGet, "/api/members/9999/trust", nil, &body); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if body["error"] != "not_authorized" {
		t.Fatalf("expected not_authorized, got %q", body["error"])
	}

	// Unknown assignment.
	if code := env.do(t, http.MethodPut, "/api/assignments/9999/start", nil, &body); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}

	// Undoing with nothing to undo is a conflict.
	path := fmt.Sprintf("/api/members/%d/penalty", env.child.ID)
	if code := env.do(t, http.MethodDelete, path, nil, &body); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if body["error"] != "no_penalty_to_undo" {
		t.Fatalf("expected no_penalty_to_undo, got %q", body["error"])
	}

	// Overdrawn spend is a bad request.
	path = fmt.Sprintf("/api/members/%d/balance/spend", env.child.ID)
	if code := env.do(t, http.MethodPost, path, map[string]int{"minutes": 50}, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["error"] != "invalid_amount" {
		t.Fatalf("expected invalid_amount, got %q", body["error"])
	}
}

func TestServer_PenaltyRoundTrip(t *testing.T) {
	env := newAPIEnv(t)

	var got map[string]int
	path := fmt.Sprintf("/api/members/%d/penalty", env.child.ID)
	if code := env.do(t, http.MethodPost, path, map[string]any{}, &got); code != http.StatusOK {
		t.Fatalf("penalty: expected 200, got %d", code)
	}
	if got["score"] != 90 {
		t.Fatalf("expected score 90, got %d", got["score"])
	}

	if code := env.do(t, http.MethodDelete, path, nil, &got); code != http.StatusOK {
		t.Fatalf("undo: expected 200, got %d", code)
	}
	if got["restored"] != 10 {
		t.Fatalf("expected 10 restored, got %d", got["restored"])
	}
}

func TestServer_MissingSessionHeaders(t *testing.T) {
	env := newAPIEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/members/1/trust", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without identity headers, got %d", resp.StatusCode)
	}
}
