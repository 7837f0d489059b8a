package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/pages"
)

func (a *app) view() formView { return formView{out: a.out, errOut: a.errOut} }

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("xydo "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	admin := fs.Bool("admin", false, "use the admin login form")
	if err := fs.Parse(args); err != nil {
		return errShown
	}

	build := pages.NewLogin
	if *admin {
		build = pages.NewAdminLogin
	}
	page := build(a.client, a.guard, a.nav, a.view())
	if !page.Open(ctx) {
		return nil
	}
	if err := page.Submit(ctx, *email, *password); err != nil {
		return errShown
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var form pages.RegisterForm
	fs.StringVar(&form.Name, "name", "", "full name")
	fs.StringVar(&form.Email, "email", "", "account email")
	fs.StringVar(&form.Password, "password", "", "password")
	fs.StringVar(&form.Confirm, "confirm", "", "password confirmation")
	role := fs.String("role", "", "coach, player or athlete (default player)")
	fs.StringVar(&form.Team, "team", "", "optional team")
	if err := fs.Parse(args); err != nil {
		return errShown
	}

	page := pages.NewRegister(a.client, a.guard, a.nav, a.view())
	prefill, ok := page.Open(ctx, url.Values{"role": {*role}})
	if !ok {
		return nil
	}
	form.Role = prefill
	if err := page.Submit(ctx, form); err != nil {
		return errShown
	}
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := pages.Logout(ctx, a.client, a.sess, a.nav); err != nil {
		fmt.Fprintf(a.errOut, "warning: server logout failed: %v\n", err)
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	token, ok := a.sess.GetToken(ctx)
	if !ok {
		return errors.New("not signed in")
	}
	if u, ok := a.sess.GetUser(ctx); ok {
		fmt.Fprintf(a.out, "name:    %s\n", u.DisplayName())
		if u.Email != "" {
			fmt.Fprintf(a.out, "email:   %s\n", u.Email)
		}
		if u.Role != "" {
			fmt.Fprintf(a.out, "role:    %s\n", u.Role)
		}
		if u.Team != "" {
			fmt.Fprintf(a.out, "team:    %s\n", u.Team)
		}
	}
	info, err := auth.Inspect(token)
	if err != nil {
		fmt.Fprintln(a.out, "token:   opaque")
		return nil
	}
	if info.UserID != "" {
		fmt.Fprintf(a.out, "user id: %s\n", info.UserID)
	}
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(a.out, "expires: %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
	}
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	page := pages.NewDashboard(a.client, a.sess, a.guard, a.nav)
	d, err := page.Load(ctx)
	if err != nil {
		if errors.Is(err, pages.ErrNotSignedIn) {
			return errors.New("not signed in")
		}
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", d.Welcome, d.RoleLabel)
	if d.Placeholder != "" {
		fmt.Fprintf(a.out, "\n%s\n%s\n", pages.PlaceholderTitle, d.Placeholder)
		return nil
	}
	for _, c := range d.Cards {
		fmt.Fprintf(a.out, "\nWeek %d: %s\n", c.Week, c.Title)
		if c.Description != "" {
			fmt.Fprintf(a.out, "  %s\n", c.Description)
		}
		fmt.Fprintf(a.out, "  %s\n", c.Link)
	}
	return nil
}

// raw sends an arbitrary request and prints the response body.
func (a *app) raw(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: xydo api METHOD PATH [JSON]")
	}
	opts := api.RequestOptions{Method: strings.ToUpper(args[0])}
	if len(args) > 2 {
		body, err := jsonArg(args[2])
		if err != nil {
			return err
		}
		opts.Body = body
	}
	path := args[1]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	raw, err := a.client.Request(ctx, path, opts)
	if err != nil {
		return err
	}
	return a.print(raw)
}

func (a *app) resource(ctx context.Context, collection string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: xydo %s <verb> ...", collection)
	}
	verb, rest := args[0], args[1:]
	need := func(n int, form string) error {
		if len(rest) < n {
			return fmt.Errorf("usage: xydo %s %s %s", collection, verb, form)
		}
		return nil
	}

	var (
		resp any
		err  error
	)
	c := a.client
	switch verb {
	case "list":
		resp, err = a.list(ctx, collection, rest)
	case "get":
		if err := need(1, "ID"); err != nil {
			return err
		}
		resp, err = a.get(ctx, collection, rest[0])
	case "create", "submit":
		if err := need(1, "JSON"); err != nil {
			return err
		}
		body, jerr := jsonArg(rest[0])
		if jerr != nil {
			return jerr
		}
		resp, err = a.create(ctx, collection, body)
	case "update":
		if err := need(2, "ID JSON"); err != nil {
			return err
		}
		body, jerr := jsonArg(rest[1])
		if jerr != nil {
			return jerr
		}
		resp, err = a.update(ctx, collection, rest[0], body)
	case "delete":
		if err := need(1, "ID"); err != nil {
			return err
		}
		resp, err = a.remove(ctx, collection, rest[0])
	case "reply":
		if collection != "messages" {
			return fmt.Errorf("%s has no %s", collection, verb)
		}
		if err := need(2, "ID TEXT"); err != nil {
			return err
		}
		resp, err = c.ReplyToMessage(ctx, rest[0], strings.Join(rest[1:], " "))
	case "like", "pin":
		if collection != "messages" {
			return fmt.Errorf("%s has no %s", collection, verb)
		}
		if err := need(1, "ID"); err != nil {
			return err
		}
		if verb == "like" {
			resp, err = c.LikeMessage(ctx, rest[0])
		} else {
			resp, err = c.PinMessage(ctx, rest[0])
		}
	default:
		return fmt.Errorf("unknown %s verb %q", collection, verb)
	}
	if err != nil {
		return err
	}
	return a.print(resp)
}

var errUnsupported = errors.New("not supported for this collection")

func (a *app) list(ctx context.Context, collection string, args []string) (any, error) {
	c := a.client
	switch collection {
	case "users":
		return c.ListUsers(ctx)
	case "teams":
		return c.ListTeams(ctx)
	case "content":
		fs := a.flags("content list")
		week := fs.Int("week", 0, "only this week")
		if err := fs.Parse(args); err != nil {
			return nil, errShown
		}
		return c.ListContent(ctx, *week)
	case "videos", "messages":
		filters, err := filterArgs(args)
		if err != nil {
			return nil, err
		}
		if collection == "videos" {
			return c.ListVideos(ctx, filters)
		}
		return c.ListMessages(ctx, filters)
	case "feedback":
		return c.ListFeedback(ctx)
	}
	return nil, errUnsupported
}

func (a *app) get(ctx context.Context, collection, id string) (any, error) {
	c := a.client
	switch collection {
	case "users":
		return c.GetUser(ctx, id)
	case "teams":
		return c.GetTeam(ctx, id)
	case "content":
		return c.GetContent(ctx, id)
	case "videos":
		return c.GetVideo(ctx, id)
	case "messages":
		return c.GetMessage(ctx, id)
	}
	return nil, errUnsupported
}

func (a *app) create(ctx context.Context, collection string, body json.RawMessage) (any, error) {
	c := a.client
	switch collection {
	case "teams":
		return c.CreateTeam(ctx, body)
	case "content":
		return c.CreateContent(ctx, body)
	case "videos":
		return c.CreateVideo(ctx, body)
	case "messages":
		return c.CreateMessage(ctx, body)
	case "feedback":
		return c.SubmitFeedback(ctx, body)
	}
	return nil, errUnsupported
}

func (a *app) update(ctx context.Context, collection, id string, body json.RawMessage) (any, error) {
	c := a.client
	switch collection {
	case "users":
		return c.UpdateUser(ctx, id, body)
	case "teams":
		return c.UpdateTeam(ctx, id, body)
	case "content":
		return c.UpdateContent(ctx, id, body)
	case "videos":
		return c.UpdateVideo(ctx, id, body)
	case "messages":
		return c.UpdateMessage(ctx, id, body)
	}
	return nil, errUnsupported
}

func (a *app) remove(ctx context.Context, collection, id string) (any, error) {
	c := a.client
	switch collection {
	case "users":
		return c.DeleteUser(ctx, id)
	case "teams":
		return c.DeleteTeam(ctx, id)
	case "content":
		return c.DeleteContent(ctx, id)
	case "videos":
		return c.DeleteVideo(ctx, id)
	case "messages":
		return c.DeleteMessage(ctx, id)
	}
	return nil, errUnsupported
}

func jsonArg(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON argument %q", s)
	}
	return json.RawMessage(s), nil
}

func filterArgs(args []string) (url.Values, error) {
	q := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q must be key=value", arg)
		}
		q.Add(k, v)
	}
	return q, nil
}

// rawBody is implemented by API responses that keep the body as received.
type rawBody interface {
	RawBody() json.RawMessage
}

func (a *app) print(v any) error {
	if r, ok := v.(rawBody); ok && len(r.RawBody()) > 0 {
		v = r.RawBody()
	}
	var data []byte
	var err error
	switch b := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		var buf bytes.Buffer
		if len(b) == 0 {
			fmt.Fprintln(a.out, http.StatusText(http.StatusNoContent))
			return nil
		}
		if err := json.Indent(&buf, b, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}
