// Package transport hides whether message delivery is push-based or
// pull-based behind a REST client and an optional socket client.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/logging"
)

// UploadLimits constrain image attachments before upload is attempted.
type UploadLimits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// REST is the request/response half of the transport: message history,
// message submission, conversation listing and creation, image upload.
type REST struct {
	baseURL string
	token   string
	limits  UploadLimits
	client  *http.Client
	log     *logging.Logger
}

// NewREST creates a REST client for the given backend.
func NewREST(baseURL, token string, timeout time.Duration, limits UploadLimits, log *logging.Logger) *REST {
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		limits:  limits,
		client:  &http.Client{Timeout: timeout},
		log:     log.Sub("rest"),
	}
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// History fetches all messages of a conversation. An empty conversation
// yields an empty slice, never an error.
func (r *REST) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var msgs []domain.Message
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(conversationID))
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// SendRequest is the payload for submitting a message.
type SendRequest struct {
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
	ImageURL  string `json:"image,omitempty"`
	ClientTag string `json:"clientTag,omitempty"`
}

// Send submits a message and returns the authoritative confirmed copy.
// An empty send (no text, no image) fails with a ValidationError before
// any network call.
func (r *REST) Send(ctx context.Context, conversationID string, req SendRequest) (domain.Message, error) {
	if strings.TrimSpace(req.Content) == "" && req.ImageURL == "" {
		return domain.Message{}, &ValidationError{Message: "message has no text and no image"}
	}

	var msg domain.Message
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(conversationID))
	if err := r.doJSON(ctx, http.MethodPost, path, req, &msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// CreateConversationRequest identifies the parties of a new conversation.
type CreateConversationRequest struct {
	CustomerID    string `json:"customerId"`
	DoctorID      string `json:"doctorId"`
	ClinicID      string `json:"clinicId,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

// CreateConversation performs the idempotent get-or-create for a
// customer/doctor pair tied to an appointment.
func (r *REST) CreateConversation(ctx context.Context, req CreateConversationRequest) (domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.doJSON(ctx, http.MethodPost, "/conversations", req, &conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// UserConversations lists a customer's conversations.
func (r *REST) UserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return r.listConversations(ctx, fmt.Sprintf("/users/%s/conversations", url.PathEscape(userID)))
}

// DoctorConversations lists a doctor's conversations.
func (r *REST) DoctorConversations(ctx context.Context, doctorID string) ([]domain.Conversation, error) {
	return r.listConversations(ctx, fmt.Sprintf("/doctors/%s/conversations", url.PathEscape(doctorID)))
}

func (r *REST) listConversations(ctx context.Context, path string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &convs); err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// UploadImage checks the attachment against the configured limits, then
// POSTs it as multipart form data. Returns the stored image URL.
func (r *REST) UploadImage(ctx context.Context, filename, contentType string, size int64, data io.Reader) (string, error) {
	if r.limits.MaxBytes > 0 && size > r.limits.MaxBytes {
		return "", &UploadError{Message: fmt.Sprintf("image exceeds %d bytes", r.limits.MaxBytes)}
	}
	if len(r.limits.AllowedTypes) > 0 && !slices.Contains(r.limits.AllowedTypes, contentType) {
		return "", &UploadError{Message: fmt.Sprintf("unsupported image type %q", contentType)}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", &UploadError{Message: err.Error()}
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", &UploadError{Message: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return "", &UploadError{Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/uploads", &body)
	if err != nil {
		return "", &UploadError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	r.authorize(httpReq)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", &NetworkError{Op: "POST /uploads", Err: err}
	}
	defer resp.Body.Close()

	env, err := readEnvelope(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "image upload failed"
		}
		return "", &UploadError{Message: msg}
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return "", &UploadError{Message: "malformed upload response"}
	}
	return payload.URL, nil
}

// Ping checks backend reachability. Any HTTP response counts as reachable;
// only transport failures return an error.
func (r *REST) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	r.authorize(httpReq)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return &NetworkError{Op: "GET /health", Err: err}
	}
	resp.Body.Close()
	return nil
}

// doJSON performs one request against the backend and decodes the envelope's
// data field into out.
func (r *REST) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	r.authorize(httpReq)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	env, err := readEnvelope(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 || !env.Success {
		r.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("request rejected")
		return &ServerError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (r *REST) authorize(req *http.Request) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
}

func readEnvelope(resp *http.Response) (envelope, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, &NetworkError{Op: "read response", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Non-JSON error bodies still map to a server error.
		return envelope{}, &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return env, nil
}
