package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pantrylink/pantrylink-go/internal/config"
	"github.com/pantrylink/pantrylink-go/internal/httpclient"
	"github.com/pantrylink/pantrylink-go/internal/identity"
	"github.com/pantrylink/pantrylink-go/internal/inbox"
	"github.com/pantrylink/pantrylink-go/internal/pantry"
	"github.com/pantrylink/pantrylink-go/internal/share"
	"github.com/pantrylink/pantrylink-go/internal/shareserver"
	"github.com/pantrylink/pantrylink-go/internal/store"

	_ "github.com/pantrylink/pantrylink-go/internal/store/json"
)

// participant bundles one signed-in user with a client against the stub
// service, backed by a real on-disk identity store.
type participant struct {
	user *identity.User
	svc  *share.Service
}

func newParticipant(t *testing.T, ts *httptest.Server, username, email, password string) *participant {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	resp, err := http.Post(ts.URL+"/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup for %s returned %d", username, resp.StatusCode)
	}
	var acct struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		t.Fatalf("failed to decode signup response: %v", err)
	}

	drv, err := store.New(&store.DriverConfig{Driver: "json", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := drv.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { drv.Close() })

	ids, ok := drv.(store.IdentityStore)
	if !ok {
		t.Fatal("json driver does not implement IdentityStore")
	}
	session := identity.NewSession(ids)

	user := &identity.User{
		ID:        acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		AuthToken: identity.BasicToken(username, password),
	}
	if err := session.SignIn(ctx, user); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	hc := httpclient.New(&config.OutboundHTTPConfig{
		TimeoutMS:        5000,
		ConnectTimeoutMS: 2000,
		MaxResponseBytes: 1 << 20,
	})

	return &participant{
		user: user,
		svc:  share.NewService(ts.URL, hc, session, nil),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// TestShareRoundTrip drives the full accept path: alice sends, bob's inbox
// picks the request up on its poll, bob accepts, and alice's pantry becomes
// selectable for bob with the granted permission.
func TestShareRoundTrip(t *testing.T) {
	srv := shareserver.NewServer(nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx := context.Background()
	alice := newParticipant(t, ts, "alice_p", "alice@example.com", "secret")
	bob := newParticipant(t, ts, "bob_smith", "bob@example.com", "secret")

	created, err := alice.svc.SendRequest(ctx, "bob_smith", share.PermissionEdit)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if created.Status != share.StatusPending {
		t.Fatalf("new request not pending: %+v", created)
	}

	// The sender sees it in their sent listing.
	sent, err := alice.svc.SentRequests(ctx)
	if err != nil {
		t.Fatalf("SentRequests failed: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != created.ID {
		t.Fatalf("unexpected sent listing %+v", sent)
	}

	// Bob's inbox polls it in.
	ib := inbox.New(bob.svc, 25*time.Millisecond)
	defer ib.Close()
	if err := ib.Open(ctx); err != nil {
		t.Fatalf("inbox Open failed: %v", err)
	}
	waitFor(t, func() bool { return len(ib.Snapshot().Requests) == 1 })

	snap := ib.Snapshot()
	req := snap.Requests[0]
	if req.FromUsername != "alice_p" || req.Permission != share.PermissionEdit {
		t.Fatalf("inbox carries wrong request %+v", req)
	}
	if req.TimeAgo == "" {
		t.Error("received request missing time_ago enrichment")
	}

	if err := ib.Respond(ctx, req.ID, share.ActionAccept); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if got := ib.Snapshot().Requests; len(got) != 0 {
		t.Fatalf("accepted request still in inbox: %+v", got)
	}

	// Polling must not bring it back now that the service marks it accepted.
	time.Sleep(80 * time.Millisecond)
	if got := ib.Snapshot().Requests; len(got) != 0 {
		t.Fatalf("accepted request re-appeared: %+v", got)
	}

	// Alice's pantry shows up in bob's selector with edit capabilities.
	sel := pantry.NewSelector(bob.svc)
	opts, err := sel.Options(ctx)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected own pantry plus one grant, got %+v", opts)
	}
	view := pantry.Select(opts[1])
	if view.ReadOnly || !view.Capabilities.EditIngredient {
		t.Fatalf("edit grant produced wrong view %+v", view)
	}

	// The sender's listing reflects the accepted status.
	sent, err = alice.svc.SentRequests(ctx)
	if err != nil {
		t.Fatalf("SentRequests failed: %v", err)
	}
	if sent[0].Status != share.StatusAccepted {
		t.Errorf("sender does not see accepted status, got %q", sent[0].Status)
	}
}

// TestShareDeclineRoundTrip drives the reject path: the request settles,
// grants nothing, and a second respond attempt fails loudly.
func TestShareDeclineRoundTrip(t *testing.T) {
	srv := shareserver.NewServer(nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx := context.Background()
	alice := newParticipant(t, ts, "alice_p", "alice@example.com", "secret")
	bob := newParticipant(t, ts, "bob_smith", "bob@example.com", "secret")

	created, err := alice.svc.SendRequest(ctx, "bob_smith", share.PermissionView)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	result, err := bob.svc.Respond(ctx, created.ID, share.ActionReject)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if result.Status != share.StatusRejected {
		t.Fatalf("unexpected respond status %q", result.Status)
	}

	// Settled requests are immutable.
	_, err = bob.svc.Respond(ctx, created.ID, share.ActionAccept)
	if !share.IsRemoteRejected(err) {
		t.Fatalf("respond on settled request must fail, got %v", err)
	}

	grants, err := bob.svc.SharedWith(ctx)
	if err != nil {
		t.Fatalf("SharedWith failed: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("rejected share granted access: %+v", grants)
	}

	// A fresh request to the same recipient is allowed once the previous one
	// settled.
	if _, err := alice.svc.SendRequest(ctx, "bob_smith", share.PermissionView); err != nil {
		t.Fatalf("resend after settle failed: %v", err)
	}
}
