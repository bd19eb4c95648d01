package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alfredjeanlab/formdesk/internal/i18n"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/rpc"
	"github.com/alfredjeanlab/formdesk/internal/store/bolt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// recordingPublisher remembers the topics published through it.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// testEnv bundles a server over a fresh bbolt file.
type testEnv struct {
	srv     *FormServer
	store   *bolt.BoltStore
	pub     *recordingPublisher
	handler http.Handler
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	s, err := bolt.New(filepath.Join(t.TempDir(), "formdesk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	catalog, err := i18n.New()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	pub := &recordingPublisher{}
	srv := NewFormServer(s, pub, catalog)
	return &testEnv{srv: srv, store: s, pub: pub, handler: srv.NewHTTPHandler("")}
}

// bugForm is a form with an unconditional section, a section shown by a
// show-if rule and a hidden section reached through an option mapping.
func bugForm() *model.Form {
	return &model.Form{
		TicketType: "bug",
		Title:      "Report a problem",
		Sections: []model.FormSection{
			{ID: "S0", Title: "General", Order: 0},
			{ID: "S1", Title: "Bug details", Order: 1, ShowIfFieldID: "kind", ShowIfValue: "bug"},
			{ID: "S2", Title: "Attachments", Order: 2, HideByDefault: true},
		},
		Fields: []model.FormField{
			{ID: "kind", Type: model.FieldDropdown, Label: "Kind", Required: true, Options: []string{"bug", "feature"},
				Order: 0, OptionSectionMapping: map[string]string{"feature": "S2"}},
			{ID: "summary", Type: model.FieldText, Label: "Summary", Required: true, Order: 0, SectionID: "S0"},
			{ID: "steps", Type: model.FieldTextarea, Label: "Steps", Required: true, Order: 0, SectionID: "S1"},
			{ID: "expected", Type: model.FieldText, Label: "Expected", Order: 1, SectionID: "S1"},
			{ID: "screenshot", Type: model.FieldFileUpload, Label: "Screenshot", Order: 0, SectionID: "S2"},
		},
	}
}

func (e *testEnv) seed(t *testing.T, f *model.Form) *model.Form {
	t.Helper()
	if err := e.store.SaveForm(context.Background(), f, 0); err != nil {
		t.Fatalf("seed form: %v", err)
	}
	return f
}

// doJSON performs an HTTP request with an optional JSON body and headers
// given as key/value pairs, and returns the recorder.
func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// requireStatus asserts the recorder has the expected HTTP status code.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d; body: %s", code, rec.Code, rec.Body.String())
	}
}

// decodeBody decodes the recorder's response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// requireCode asserts that err is a gRPC error with the given status code.
func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected gRPC error with code %v, got nil", code)
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != code {
		t.Fatalf("expected code=%v, got %v (%s)", code, st.Code(), st.Message())
	}
}

// dialGRPC serves the env over an in-memory listener and returns a client.
func dialGRPC(t *testing.T, e *testEnv, authToken string) *rpc.FormServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(e.srv, authToken)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewFormServiceClient(conn)
}

func mustStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	st, err := rpc.ToStruct(v)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	return st
}

func TestGRPC_GetForm(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())
	client := dialGRPC(t, e, "")
	ctx := context.Background()

	resp, err := client.GetForm(ctx, mustStruct(t, map[string]string{"ticket_type": "bug"}))
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	var f model.Form
	if err := rpc.FromStruct(resp, &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.TicketType != "bug" || len(f.Fields) != 5 || f.Version != 1 {
		t.Fatalf("got %+v", f)
	}

	_, err = client.GetForm(ctx, mustStruct(t, map[string]string{"ticket_type": "appeal"}))
	requireCode(t, err, codes.NotFound)
	if st, _ := status.FromError(err); st.Message() != `no form configured for ticket type "appeal"` {
		t.Errorf("message = %q", st.Message())
	}

	_, err = client.GetForm(ctx, mustStruct(t, map[string]string{}))
	requireCode(t, err, codes.InvalidArgument)
}

func TestGRPC_ResolveVisibility(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())
	client := dialGRPC(t, e, "")

	resp, err := client.ResolveVisibility(context.Background(), mustStruct(t, map[string]any{
		"ticket_type": "bug",
		"values":      map[string]string{"kind": "feature"},
	}))
	if err != nil {
		t.Fatalf("ResolveVisibility: %v", err)
	}
	var layout struct {
		VisibleSections []string `json:"visible_sections"`
	}
	if err := rpc.FromStruct(resp, &layout); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(layout.VisibleSections) != 2 || layout.VisibleSections[0] != "S0" || layout.VisibleSections[1] != "S2" {
		t.Fatalf("visible = %v, want [S0 S2]", layout.VisibleSections)
	}
}

func TestGRPC_Auth(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())
	client := dialGRPC(t, e, "secret")
	ctx := context.Background()

	if _, err := client.Health(ctx, &structpb.Struct{}); err != nil {
		t.Fatalf("Health should be exempt from auth: %v", err)
	}

	req := mustStruct(t, map[string]string{"ticket_type": "bug"})
	_, err := client.GetForm(ctx, req)
	requireCode(t, err, codes.Unauthenticated)

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer secret", rpc.ActorMetadataKey, "alice")
	if _, err := client.GetForm(authed, req); err != nil {
		t.Fatalf("GetForm with token: %v", err)
	}
}

func TestRecordAndPublish(t *testing.T) {
	e := newTestServer(t)
	ctx := context.Background()

	e.srv.recordAndPublish(ctx, "formdesk.form.saved", "bug", "alice", map[string]any{"ticket_type": "bug", "version": 1})

	evts, err := e.store.GetEvents(ctx, "bug")
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(evts) != 1 || evts[0].Actor != "alice" || evts[0].Topic != "formdesk.form.saved" {
		t.Fatalf("got events %+v", evts)
	}
	if topics := e.pub.Topics(); len(topics) != 1 {
		t.Fatalf("published %v", topics)
	}
	if got := e.srv.sseHub.eventsSince(0); len(got) != 1 || got[0].TicketType != "bug" {
		t.Fatalf("sse buffer %+v", got)
	}
}
