package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"xydo.org/internal/record"
)

// Content is one week of training material. Keys the client does not model,
// and modelled keys in an unexpected shape, are kept in Extra and written
// back unchanged.
type Content struct {
	ID          string
	Week        int
	Title       string
	Description string
	// Role is the audience: a user role or "both".
	Role string

	Extra map[string]json.RawMessage

	present map[string]bool
}

func (c *Content) fields() []record.Field {
	return []record.Field{
		{Key: "id", Value: &c.ID},
		{Key: "week", Value: &c.Week},
		{Key: "title", Value: &c.Title},
		{Key: "description", Value: &c.Description},
		{Key: "role", Value: &c.Role},
	}
}

func (c Content) MarshalJSON() ([]byte, error) {
	return record.Marshal(c.Extra, c.present, c.fields())
}

func (c *Content) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var next Content
	extra, present, err := record.Unmarshal(data, next.fields())
	if err != nil {
		return err
	}
	next.Extra, next.present = extra, present
	*c = next
	return nil
}

// AudienceBoth marks content shown to every role.
const AudienceBoth = "both"

// VisibleTo reports whether the item is meant for role. Users without a
// role only see content for both audiences.
func (c Content) VisibleTo(role string) bool {
	return c.Role == AudienceBoth || (role != "" && c.Role == role)
}

func itemPath(collection, id string) string {
	return "/" + collection + "/" + url.PathEscape(id)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Users

func (c *Client) ListUsers(ctx context.Context) (*Envelope[[]Record], error) {
	return call[[]Record](ctx, c, http.MethodGet, "/users", nil)
}

func (c *Client) GetUser(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodGet, itemPath("users", id), nil)
}

func (c *Client) UpdateUser(ctx context.Context, id string, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPut, itemPath("users", id), body)
}

func (c *Client) DeleteUser(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodDelete, itemPath("users", id), nil)
}

// Teams

func (c *Client) ListTeams(ctx context.Context) (*Envelope[[]Record], error) {
	return call[[]Record](ctx, c, http.MethodGet, "/teams", nil)
}

func (c *Client) GetTeam(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodGet, itemPath("teams", id), nil)
}

func (c *Client) CreateTeam(ctx context.Context, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPost, "/teams", body)
}

func (c *Client) UpdateTeam(ctx context.Context, id string, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPut, itemPath("teams", id), body)
}

func (c *Client) DeleteTeam(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodDelete, itemPath("teams", id), nil)
}

// Content

// ListContent lists weekly content; week <= 0 lists every week.
func (c *Client) ListContent(ctx context.Context, week int) (*Envelope[[]Content], error) {
	q := url.Values{}
	if week > 0 {
		q.Set("week", strconv.Itoa(week))
	}
	return call[[]Content](ctx, c, http.MethodGet, withQuery("/content", q), nil)
}

func (c *Client) GetContent(ctx context.Context, id string) (*Envelope[Content], error) {
	return call[Content](ctx, c, http.MethodGet, itemPath("content", id), nil)
}

func (c *Client) CreateContent(ctx context.Context, body any) (*Envelope[Content], error) {
	return call[Content](ctx, c, http.MethodPost, "/content", body)
}

func (c *Client) UpdateContent(ctx context.Context, id string, body any) (*Envelope[Content], error) {
	return call[Content](ctx, c, http.MethodPut, itemPath("content", id), body)
}

func (c *Client) DeleteContent(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodDelete, itemPath("content", id), nil)
}

// Videos

func (c *Client) ListVideos(ctx context.Context, filters url.Values) (*Envelope[[]Record], error) {
	return call[[]Record](ctx, c, http.MethodGet, withQuery("/videos", filters), nil)
}

func (c *Client) GetVideo(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodGet, itemPath("videos", id), nil)
}

func (c *Client) CreateVideo(ctx context.Context, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPost, "/videos", body)
}

func (c *Client) UpdateVideo(ctx context.Context, id string, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPut, itemPath("videos", id), body)
}

func (c *Client) DeleteVideo(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodDelete, itemPath("videos", id), nil)
}

// Messages

func (c *Client) ListMessages(ctx context.Context, filters url.Values) (*Envelope[[]Record], error) {
	return call[[]Record](ctx, c, http.MethodGet, withQuery("/messages", filters), nil)
}

func (c *Client) GetMessage(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodGet, itemPath("messages", id), nil)
}

func (c *Client) CreateMessage(ctx context.Context, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPost, "/messages", body)
}

// ReplyToMessage posts {"content": content} as a reply.
func (c *Client) ReplyToMessage(ctx context.Context, id, content string) (*Envelope[Record], error) {
	body := map[string]string{"content": content}
	return call[Record](ctx, c, http.MethodPost, itemPath("messages", id)+"/reply", body)
}

func (c *Client) LikeMessage(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPost, itemPath("messages", id)+"/like", nil)
}

func (c *Client) UpdateMessage(ctx context.Context, id string, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPut, itemPath("messages", id), body)
}

func (c *Client) DeleteMessage(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodDelete, itemPath("messages", id), nil)
}

// PinMessage toggles the pin with PUT.
func (c *Client) PinMessage(ctx context.Context, id string) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPut, itemPath("messages", id)+"/pin", nil)
}

// Feedback

func (c *Client) SubmitFeedback(ctx context.Context, body any) (*Envelope[Record], error) {
	return call[Record](ctx, c, http.MethodPost, "/feedback", body)
}

func (c *Client) ListFeedback(ctx context.Context) (*Envelope[[]Record], error) {
	return call[[]Record](ctx, c, http.MethodGet, "/feedback", nil)
}

func hasData(raw json.RawMessage) bool {
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return false
	}
	return len(body.Data) > 0 && string(body.Data) != "null"
}
