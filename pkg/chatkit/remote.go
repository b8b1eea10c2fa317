package chatkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CodeReactionExists is the error code the service answers with when the
// reaction uniqueness constraint was hit.
const CodeReactionExists = "reaction_exists"

const subscriptionBuffer = 64

// Client talks to the chat service over HTTP and its websocket change feed.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  zerolog.Logger
}

var _ Backend = (*Client)(nil)

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.http = client }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		dialer:  websocket.DefaultDialer,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if len(contentType) > 0 {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Error) == 0 {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return nil, &StatusError{Status: resp.StatusCode, Code: payload.Code, Message: payload.Error}
	}
	return raw, nil
}

func (c *Client) requestJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	if in == nil {
		return c.request(ctx, method, path, nil, "")
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, method, path, bytes.NewReader(raw), "application/json")
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	raw, err := c.requestJSON(ctx, http.MethodGet, fmt.Sprintf("/api/conversations/%s/messages", url.PathEscape(conversationID)), nil)
	if err != nil {
		return nil, err
	}
	return decodeMessageList(raw)
}

func (c *Client) GetMessage(ctx context.Context, messageID string) (Message, error) {
	raw, err := c.requestJSON(ctx, http.MethodGet, fmt.Sprintf("/api/messages/%s", url.PathEscape(messageID)), nil)
	if err != nil {
		return Message{}, err
	}
	return decodeMessage(raw)
}

func (c *Client) InsertMessage(ctx context.Context, conversationID string, draft Draft) error {
	_, err := c.requestJSON(ctx, http.MethodPost, fmt.Sprintf("/api/conversations/%s/messages", url.PathEscape(conversationID)), draft)
	return err
}

func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	_, err := c.requestJSON(ctx, http.MethodPost, fmt.Sprintf("/api/messages/%s/reactions", url.PathEscape(messageID)), map[string]string{
		"emoji": emoji,
	})
	if statusErr, ok := err.(*StatusError); ok && statusErr.Code == CodeReactionExists {
		return fmt.Errorf("%w: %s", ErrReactionExists, statusErr.Message)
	}
	return err
}

func (c *Client) RemoveReaction(ctx context.Context, reactionID string) error {
	_, err := c.requestJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/reactions/%s", url.PathEscape(reactionID)), nil)
	return err
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	_, err := c.requestJSON(ctx, http.MethodPut, fmt.Sprintf("/api/conversations/%s/read", url.PathEscape(conversationID)), nil)
	return err
}

func (c *Client) ListSummaries(ctx context.Context) ([]Summary, error) {
	raw, err := c.requestJSON(ctx, http.MethodGet, "/api/conversations", nil)
	if err != nil {
		return nil, err
	}
	return decodeSummaries(raw)
}

func (c *Client) FindOrCreateDirect(ctx context.Context, otherUserID string) (string, error) {
	raw, err := c.requestJSON(ctx, http.MethodPost, "/api/conversations/direct", map[string]string{
		"user_id": otherUserID,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		ID *string `json:"id"`
	}
	if err := unmarshal("conversation", raw, &out); err != nil {
		return "", err
	}
	return required("conversation", "id", out.ID)
}

// Me returns the public identity of the token holder.
func (c *Client) Me(ctx context.Context) (Sender, error) {
	raw, err := c.requestJSON(ctx, http.MethodGet, "/api/users/me", nil)
	if err != nil {
		return Sender{}, err
	}
	var w wireSender
	if err := unmarshal("account", raw, &w); err != nil {
		return Sender{}, err
	}
	id, err := required("account", "id", w.ID)
	if err != nil {
		return Sender{}, err
	}
	return Sender{ID: id, Name: w.Name, Nick: w.Nick, Avatar: w.Avatar}, nil
}

// UploadAttachment stores a blob and returns a reference usable in a Draft.
func (c *Client) UploadAttachment(ctx context.Context, filename, contentType string, content io.Reader) (Attachment, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(filename, `"`, "")))
	if len(contentType) > 0 {
		header.Set("Content-Type", contentType)
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return Attachment{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return Attachment{}, err
	}
	if err := form.Close(); err != nil {
		return Attachment{}, err
	}

	raw, err := c.request(ctx, http.MethodPost, "/api/attachments", &buf, form.FormDataContentType())
	if err != nil {
		return Attachment{}, err
	}
	var out struct {
		URL  *string `json:"url"`
		Type string  `json:"type"`
	}
	if err := unmarshal("attachment", raw, &out); err != nil {
		return Attachment{}, err
	}
	link, err := required("attachment", "url", out.URL)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{URL: link, Type: out.Type}, nil
}

func (c *Client) feedURL(conversationID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/api/conversations/%s/feed", conversationID)
	if len(c.token) > 0 {
		u.RawQuery = url.Values{"tk": []string{c.token}}.Encode()
	}
	return u.String(), nil
}

func (c *Client) Subscribe(ctx context.Context, conversationID string) (Subscription, error) {
	target, err := c.feedURL(conversationID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &StatusError{Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, err
	}

	sub := &remoteSubscription{
		conn:           conn,
		conversationID: conversationID,
		logger:         c.logger,
		events:         make(chan Event, subscriptionBuffer),
		closed:         make(chan struct{}),
	}
	go sub.read()
	return sub, nil
}

type remoteSubscription struct {
	conn           *websocket.Conn
	conversationID string
	logger         zerolog.Logger

	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once
	writeLock sync.Mutex

	errLock sync.Mutex
	err     error
}

func (s *remoteSubscription) read() {
	defer close(s.events)

	for {
		_, packet, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.errLock.Lock()
				s.err = err
				s.errLock.Unlock()
			}
			return
		}

		event, ok, err := decodeFrame(packet)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("conversation", s.conversationID).
				Msg("Dropped undecodable change feed frame.")
			continue
		} else if !ok {
			continue
		}

		select {
		case s.events <- event:
		case <-s.closed:
			return
		}
	}
}

func (s *remoteSubscription) Events() <-chan Event { return s.events }

func (s *remoteSubscription) Err() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}

func (s *remoteSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.writeLock.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeLock.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *remoteSubscription) NotifyTyping(ctx context.Context) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"status.typing"}`))
}
