package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/audit"
	"github.com/iliyamo/secure-notes/internal/authz"
	"github.com/iliyamo/secure-notes/internal/envelope"
	"github.com/iliyamo/secure-notes/internal/model"
)

var (
	adminActor = authz.Actor{ID: 100, Role: model.RoleAdmin}
	superActor = authz.Actor{ID: 101, Role: model.RoleSuperAdmin}
)

type adminFixture struct {
	h        *AdminHandler
	users    *fakeUserStore
	sessions *fakeSessionStore
	notes    *fakeNoteStore
	audits   *fakeAuditStore
}

func newAdminFixture() *adminFixture {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	notes := newFakeNoteStore()
	audits := newFakeAuditStore()
	rec := audit.NewRecorder(audits, zerolog.Nop())
	return &adminFixture{
		h:        NewAdminHandler(zerolog.Nop(), users, notes, sessions, audits, rec),
		users:    users,
		sessions: sessions,
		notes:    notes,
		audits:   audits,
	}
}

// seedUser creates a verified user and returns its id.
func (f *adminFixture) seedUser(t *testing.T, email string) uint64 {
	t.Helper()
	id, err := f.users.Create(t.Context(), email, "x", model.RoleClient)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := f.users.UpdateStatus(t.Context(), id, model.StatusVerified); err != nil {
		t.Fatalf("verify seed user: %v", err)
	}
	return id
}

func callAdmin(t *testing.T, fn echo.HandlerFunc, actor authz.Actor, method, body, pathID, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	target := "/"
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("actor", actor)
	if pathID != "" {
		c.SetParamNames("id")
		c.SetParamValues(pathID)
	}
	if err := fn(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestAdminListUsers(t *testing.T) {
	f := newAdminFixture()
	for i := 0; i < 3; i++ {
		f.seedUser(t, fmt.Sprintf("u%d@example.com", i))
	}

	rec := callAdmin(t, f.h.ListUsers, adminActor, http.MethodGet, "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(env.Data)
	var page userPageResp
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 3 {
		t.Errorf("items = %d, want 3", len(page.Items))
	}

	// The successful listing is in the audit trail.
	if got := f.audits.byAction(string(authz.ActionAdminUserList)); len(got) != 1 {
		t.Errorf("audit entries for list = %d, want 1", len(got))
	} else if got[0].Outcome != model.AuditOutcomeAllowed || got[0].ActorID != adminActor.ID {
		t.Errorf("audit entry = %+v", got[0])
	}
}

func TestAdminGetUser(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "target@example.com")

	rec := callAdmin(t, f.h.GetUser, adminActor, http.MethodGet, "", fmt.Sprint(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := callAdmin(t, f.h.GetUser, adminActor, http.MethodGet, "", "9999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", rec.Code)
	}
}

func TestAdminDisableUserRevokesSessions(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "victim@example.com")
	f.sessions.Create(t.Context(), id, "hash-1", farFuture())
	f.sessions.Create(t.Context(), id, "hash-2", farFuture())

	rec := callAdmin(t, f.h.PatchUser, adminActor, http.MethodPatch,
		`{"status":"DISABLED"}`, fmt.Sprint(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	u, _ := f.users.GetByID(t.Context(), id)
	if u.Status != model.StatusDisabled {
		t.Errorf("status = %q", u.Status)
	}
	if n := f.sessions.activeCount(id); n != 0 {
		t.Errorf("active sessions after disable = %d, want 0", n)
	}
	if got := f.audits.byAction(string(authz.ActionAdminUserStatus)); len(got) != 1 {
		t.Errorf("audit entries = %d, want 1", len(got))
	}
}

func TestAdminPatchUserValidation(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "v@example.com")

	// PENDING_VERIFICATION cannot be set administratively.
	rec := callAdmin(t, f.h.PatchUser, adminActor, http.MethodPatch,
		`{"status":"PENDING_VERIFICATION"}`, fmt.Sprint(id), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRoleElevationRequiresSuperAdmin(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "promote@example.com")
	body := `{"role":"admin"}`

	// Plain admin is denied, and the attempt lands in the audit trail.
	rec := callAdmin(t, f.h.PatchRole, adminActor, http.MethodPatch, body, fmt.Sprint(id), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin elevation status = %d, want 403", rec.Code)
	}
	denied := f.audits.byAction(string(authz.ActionAdminUserElevate))
	if len(denied) != 1 || denied[0].Outcome != model.AuditOutcomeDenied {
		t.Fatalf("denied audit = %+v", denied)
	}
	if u, _ := f.users.GetByID(t.Context(), id); u.Role != model.RoleClient {
		t.Errorf("role changed despite denial: %q", u.Role)
	}

	// Super admin succeeds.
	rec = callAdmin(t, f.h.PatchRole, superActor, http.MethodPatch, body, fmt.Sprint(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("super_admin elevation status = %d, body %s", rec.Code, rec.Body.String())
	}
	if u, _ := f.users.GetByID(t.Context(), id); u.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
}

func TestRoleElevationUnknownRole(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "r@example.com")
	rec := callAdmin(t, f.h.PatchRole, superActor, http.MethodPatch,
		`{"role":"owner"}`, fmt.Sprint(id), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminListNotesFilter(t *testing.T) {
	f := newAdminFixture()
	a := f.seedUser(t, "a@example.com")
	b := f.seedUser(t, "b@example.com")
	f.notes.Create(t.Context(), a, "a1", "")
	f.notes.Create(t.Context(), a, "a2", "")
	f.notes.Create(t.Context(), b, "b1", "")

	rec := callAdmin(t, f.h.ListNotes, adminActor, http.MethodGet, "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if page := decodePage(t, rec); len(page.Items) != 3 {
		t.Errorf("unfiltered items = %d, want 3", len(page.Items))
	}

	rec = callAdmin(t, f.h.ListNotes, adminActor, http.MethodGet, "", "", fmt.Sprintf("user_id=%d", a))
	page := decodePage(t, rec)
	if len(page.Items) != 2 {
		t.Fatalf("filtered items = %d, want 2", len(page.Items))
	}
	for _, n := range page.Items {
		if n.CreatedBy != a {
			t.Errorf("note %d owned by %d leaked into filter", n.ID, n.CreatedBy)
		}
	}
}

func TestAdminGetNoteCrossesOwnership(t *testing.T) {
	f := newAdminFixture()
	owner := f.seedUser(t, "n@example.com")
	id, _ := f.notes.Create(t.Context(), owner, "theirs", "contents")

	rec := callAdmin(t, f.h.GetNote, adminActor, http.MethodGet, "", fmt.Sprint(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := decodeNote(t, rec); n.CreatedBy != owner {
		t.Errorf("created_by = %d", n.CreatedBy)
	}
}

func TestAdminAuditView(t *testing.T) {
	f := newAdminFixture()
	id := f.seedUser(t, "x@example.com")
	// Generate a few entries.
	callAdmin(t, f.h.GetUser, adminActor, http.MethodGet, "", fmt.Sprint(id), "")
	callAdmin(t, f.h.PatchRole, adminActor, http.MethodPatch, `{"role":"admin"}`, fmt.Sprint(id), "")

	rec := callAdmin(t, f.h.ListAudit, superActor, http.MethodGet, "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(env.Data)
	var page auditPage
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode audit page: %v", err)
	}
	// get(ALLOWED) + elevate(DENIED) + this read(ALLOWED).
	if len(page.Items) != 3 {
		t.Fatalf("audit items = %d, want 3: %+v", len(page.Items), page.Items)
	}
	var outcomes []string
	for _, e := range page.Items {
		outcomes = append(outcomes, e.Outcome)
	}
	want := []string{model.AuditOutcomeAllowed, model.AuditOutcomeDenied, model.AuditOutcomeAllowed}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %q, want %q", i, outcomes[i], want[i])
		}
	}
}

func TestAdminInvalidPathID(t *testing.T) {
	f := newAdminFixture()
	for _, id := range []string{"", "abc", "0"} {
		rec := callAdmin(t, f.h.GetUser, adminActor, http.MethodGet, "", id, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
	if env := decodeEnvelope(t, callAdmin(t, f.h.GetUser, adminActor, http.MethodGet, "", "abc", "")); env.Meta.Message != envelope.CodeValidation {
		t.Errorf("message = %q", env.Meta.Message)
	}
}
