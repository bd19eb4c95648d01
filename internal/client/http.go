package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
)

// ActorHeader names the editor on every request.
const ActorHeader = "X-Formdesk-Actor"

// HTTPClient talks to the formdesk HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	actor      string
	language   string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request; actor is sent as ActorHeader.
func NewHTTPClient(baseURL, token, actor string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		actor:      actor,
		httpClient: &http.Client{},
	}
}

// SetLanguage sets the Accept-Language sent to the public endpoints.
func (c *HTTPClient) SetLanguage(lang string) { c.language = lang }

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func formPath(tt model.TicketType, rest ...string) string {
	p := "/v1/forms/" + url.PathEscape(string(tt))
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// --- Forms ---

func (c *HTTPClient) ListForms(ctx context.Context) ([]model.FormSummary, error) {
	var resp struct {
		Forms []model.FormSummary `json:"forms"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/forms", nil, &resp, 0); err != nil {
		return nil, err
	}
	return resp.Forms, nil
}

func (c *HTTPClient) GetForm(ctx context.Context, tt model.TicketType) (*model.Form, error) {
	var f model.Form
	if err := c.doJSON(ctx, http.MethodGet, formPath(tt), nil, &f, 0); err != nil {
		return nil, err
	}
	return &f, nil
}

// PutForm replaces the form. ifMatch > 0 requires the stored form to be at
// that version.
func (c *HTTPClient) PutForm(ctx context.Context, f *model.Form, ifMatch int) (*model.Form, error) {
	var out model.Form
	if err := c.doJSON(ctx, http.MethodPut, formPath(f.TicketType), f, &out, ifMatch); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteForm(ctx context.Context, tt model.TicketType) error {
	return c.doJSON(ctx, http.MethodDelete, formPath(tt), nil, nil, 0)
}

func (c *HTTPClient) GetEvents(ctx context.Context, tt model.TicketType) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, formPath(tt, "events"), nil, &resp, 0); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Fields ---

// AddField inserts fld at position within its section; nil appends.
func (c *HTTPClient) AddField(ctx context.Context, tt model.TicketType, fld model.FormField, position *int, ifMatch int) (*Mutation, error) {
	body := struct {
		model.FormField
		Position *int `json:"position,omitempty"`
	}{fld, position}
	return c.mutate(ctx, http.MethodPost, formPath(tt, "fields"), body, ifMatch)
}

func (c *HTTPClient) UpdateField(ctx context.Context, tt model.TicketType, id string, p form.FieldPatch, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPatch, formPath(tt, "fields", id), p, ifMatch)
}

func (c *HTTPClient) RemoveField(ctx context.Context, tt model.TicketType, id string, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, formPath(tt, "fields", id), nil, ifMatch)
}

func (c *HTTPClient) ReorderFields(ctx context.Context, tt model.TicketType, req *ReorderRequest, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, formPath(tt, "fields", "reorder"), req, ifMatch)
}

func (c *HTTPClient) MoveField(ctx context.Context, tt model.TicketType, id string, req *MoveFieldRequest, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, formPath(tt, "fields", id, "move"), req, ifMatch)
}

// --- Sections ---

// AddSection inserts s at position among the sections; nil appends.
func (c *HTTPClient) AddSection(ctx context.Context, tt model.TicketType, s model.FormSection, position *int, ifMatch int) (*Mutation, error) {
	body := struct {
		model.FormSection
		Position *int `json:"position,omitempty"`
	}{s, position}
	return c.mutate(ctx, http.MethodPost, formPath(tt, "sections"), body, ifMatch)
}

func (c *HTTPClient) UpdateSection(ctx context.Context, tt model.TicketType, id string, p form.SectionPatch, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPatch, formPath(tt, "sections", id), p, ifMatch)
}

func (c *HTTPClient) RemoveSection(ctx context.Context, tt model.TicketType, id string, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodDelete, formPath(tt, "sections", id), nil, ifMatch)
}

func (c *HTTPClient) ReorderSections(ctx context.Context, tt model.TicketType, req *ReorderRequest, ifMatch int) (*Mutation, error) {
	return c.mutate(ctx, http.MethodPost, formPath(tt, "sections", "reorder"), req, ifMatch)
}

func (c *HTTPClient) mutate(ctx context.Context, method, path string, body any, ifMatch int) (*Mutation, error) {
	var m Mutation
	if err := c.doJSON(ctx, method, path, body, &m, ifMatch); err != nil {
		return nil, err
	}
	return &m, nil
}

// --- Presence ---

func (c *HTTPClient) Presence(ctx context.Context, tt model.TicketType) ([]presence.Entry, error) {
	var resp struct {
		Editors []presence.Entry `json:"editors"`
	}
	if err := c.doJSON(ctx, http.MethodGet, formPath(tt, "presence"), nil, &resp, 0); err != nil {
		return nil, err
	}
	return resp.Editors, nil
}

// --- Ticket pages ---

func (c *HTTPClient) Resolve(ctx context.Context, tt model.TicketType, values map[string]string) (*form.Layout, error) {
	body := map[string]any{"values": values}
	var resp struct {
		Layout form.Layout `json:"layout"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/public/forms/"+url.PathEscape(string(tt))+"/resolve", body, &resp, 0); err != nil {
		return nil, err
	}
	return &resp.Layout, nil
}

func (c *HTTPClient) Submit(ctx context.Context, tt model.TicketType, answers map[string]string) (*model.Submission, error) {
	body := map[string]any{"answers": answers}
	var sub model.Submission
	if err := c.doJSON(ctx, http.MethodPost, "/v1/public/forms/"+url.PathEscape(string(tt))+"/submissions", body, &sub, 0); err != nil {
		return nil, err
	}
	return &sub, nil
}

// --- Submissions ---

func (c *HTTPClient) ListSubmissions(ctx context.Context, req *ListSubmissionsRequest) (*ListSubmissionsResponse, error) {
	q := url.Values{}
	if req.TicketType != "" {
		q.Set("ticket_type", string(req.TicketType))
	}
	if req.CreatedBy != "" {
		q.Set("created_by", req.CreatedBy)
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	path := "/v1/submissions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListSubmissionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, 0); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := c.doJSON(ctx, http.MethodGet, "/v1/submissions/"+url.PathEscape(id), nil, &sub, 0); err != nil {
		return nil, err
	}
	return &sub, nil
}

// --- Media ---

// Upload sends r as a multipart upload of the given type.
func (c *HTTPClient) Upload(ctx context.Context, uploadType model.UploadType, filename string, r io.Reader) (*model.Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("upload_type", string(uploadType)); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/media", &buf, 0)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var u model.Upload
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp, 0); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// Details lists per-field problems for validation failures.
	Details []model.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, ifMatch int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set(ActorHeader, c.actor)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	if ifMatch > 0 {
		req.Header.Set("If-Match", strconv.Quote(strconv.Itoa(ifMatch)))
	}
	return req, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any, ifMatch int) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, bodyReader, ifMatch)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content — success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string             `json:"error"`
			Message string             `json:"message"`
			Details []model.FieldError `json:"details"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg := errResp.Error
			if errResp.Message != "" {
				msg = errResp.Message
			}
			return &APIError{StatusCode: resp.StatusCode, Message: msg, Details: errResp.Details}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
