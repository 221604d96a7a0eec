package app

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/packet"
)

// Host drives question flow for a lobby. It is the only controller that can
// advance or close questions.
type Host struct {
	client *Client

	mu        sync.Mutex
	lobbyCode string
}

// NewHost returns a host controller for c.
func NewHost(c *Client) *Host {
	return &Host{client: c}
}

// Client returns the client the host drives.
func (h *Host) Client() *Client { return h.client }

// StartLobby connects and opens lobby code as its host.
func (h *Host) StartLobby(ctx context.Context, code string) error {
	if code == "" {
		return domain.ErrMissingCredentials
	}
	if err := h.client.Connect(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.lobbyCode = code
	h.mu.Unlock()
	return h.client.send(ctx, packet.StartLobby{Name: domain.HostName, LobbyCode: code})
}

// NextQuestion asks the server to publish the next question.
func (h *Host) NextQuestion(ctx context.Context) error {
	return h.client.send(ctx, packet.NextQuestion{})
}

// EndQuestion asks the server to close and grade the current question.
func (h *Host) EndQuestion(ctx context.Context) error {
	return h.client.send(ctx, packet.EndQuestion{})
}

// JoinURL returns the link players open to join this host's lobby.
func (h *Host) JoinURL(base string) string {
	h.mu.Lock()
	code := h.lobbyCode
	h.mu.Unlock()

	link := strings.TrimRight(base, "/") + "/join"
	if code == "" {
		return link
	}
	return link + "?code=" + url.QueryEscape(code)
}
