// Package service exposes the oracle node over a newline-delimited JSON
// command protocol on TCP.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

var (
	ErrCommandNotFound = errors.New("command not found")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrEmptyCommand    = errors.New("command must not be empty")
)

// Command is one inbound frame. Params stay raw until the route decodes
// them.
type Command struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Reply is the outbound frame for a command.
type Reply struct {
	ID     string      `json:"id,omitempty"`
	OK     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// HandlerFunc executes one command and returns its result.
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// Handler dispatches commands to registered routes, with an optional token
// bucket per command. Dispatch is serialized: the oracle's transitions rely
// on the platform running one external invocation at a time.
type Handler struct {
	routes   map[string]HandlerFunc
	limiters map[string]*rate.Limiter

	dispatchMu sync.Mutex
	limiterMu  sync.Mutex
}

// NewHandler builds a handler from a route table and per-command requests
// per second limits. A zero or negative limit means unlimited.
func NewHandler(routes map[string]HandlerFunc, limits map[string]int) *Handler {
	if routes == nil {
		routes = make(map[string]HandlerFunc)
	}
	h := &Handler{
		routes:   routes,
		limiters: make(map[string]*rate.Limiter),
	}
	for command, perSecond := range limits {
		if perSecond > 0 {
			h.limiters[command] = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
	return h
}

// Handle runs one command and always produces a reply frame.
func (h *Handler) Handle(cmd Command) Reply {
	result, err := h.dispatch(cmd)
	if err != nil {
		return Reply{ID: cmd.ID, OK: false, Error: err.Error()}
	}
	return Reply{ID: cmd.ID, OK: true, Result: result}
}

func (h *Handler) dispatch(cmd Command) (interface{}, error) {
	if cmd.Command == "" {
		return nil, ErrEmptyCommand
	}

	h.limiterMu.Lock()
	limiter, limited := h.limiters[cmd.Command]
	h.limiterMu.Unlock()
	if limited && !limiter.Allow() {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, cmd.Command)
	}

	route, ok := h.routes[cmd.Command]
	if !ok || route == nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cmd.Command)
	}

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	return route(cmd.Params)
}
