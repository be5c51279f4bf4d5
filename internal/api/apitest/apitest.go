// Package apitest provides a scripted api.Client for tests.
//
// Calls are recorded and held; the test decides when (and how) each completes, which makes
// it easy to observe optimistic state before the server answers.
package apitest

import (
	"context"
	"net/url"

	"deckhand/internal/api"
)

type Call struct {
	Method     string
	Path       string
	Params     url.Values
	Body       any
	Background bool

	cb   api.Callback
	done bool
}

// Complete runs the call's callback. Completing a call twice is a no-op.
func (c *Call) Complete(ok bool, data any) {
	if c.done {
		return
	}
	c.done = true
	if c.cb != nil {
		c.cb(ok, data)
	}
}

func (c *Call) Done() bool { return c.done }

type Client struct {
	Calls []*Call
}

func (c *Client) Get(_ context.Context, path string, params url.Values, cb api.Callback) {
	c.Calls = append(c.Calls, &Call{Method: "GET", Path: path, Params: params, cb: cb})
}

func (c *Client) Post(_ context.Context, path string, body any, cb api.Callback, opts ...api.CallOption) {
	c.Calls = append(c.Calls, &Call{Method: "POST", Path: path, Body: body, Background: api.ResolveCallOptions(opts...).Background, cb: cb})
}

func (c *Client) Put(_ context.Context, path string, body any, cb api.Callback) {
	c.Calls = append(c.Calls, &Call{Method: "PUT", Path: path, Body: body, cb: cb})
}

// Last returns the most recent call, or nil.
func (c *Client) Last() *Call {
	if len(c.Calls) == 0 {
		return nil
	}
	return c.Calls[len(c.Calls)-1]
}

// Pending returns the calls that have not completed yet.
func (c *Client) Pending() []*Call {
	var out []*Call
	for _, call := range c.Calls {
		if !call.done {
			out = append(out, call)
		}
	}
	return out
}
