package app

import (
	"context"
	"sync"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/packet"
	"quiz-session-client/internal/point"
	"quiz-session-client/internal/question"
)

// Player joins a lobby, composes answers and submits at most one answer per
// question.
type Player struct {
	client *Client

	mu          sync.Mutex
	selector    *point.Selector
	selectorSeq uint64
}

// NewPlayer returns a player controller for c.
func NewPlayer(c *Client) *Player {
	return &Player{client: c, selector: point.NewSelector()}
}

// Client returns the client the player drives.
func (p *Player) Client() *Client { return p.client }

// Join connects and logs into lobby code under name. After a login failure
// the connection stays open and Join may be called again.
func (p *Player) Join(ctx context.Context, name, code string) error {
	if name == "" || code == "" {
		return domain.ErrMissingCredentials
	}
	if err := p.client.Connect(ctx); err != nil {
		return err
	}
	return p.client.send(ctx, packet.Login{Name: name, LobbyCode: code})
}

// SelectOption picks option i of the current multiple-choice question.
func (p *Player) SelectOption(i int) error {
	return p.client.session.SelectOption(i)
}

// SetNumber fills one answer slot of the current numerical question.
func (p *Player) SetNumber(slot int, raw string) error {
	return p.client.session.SetNumber(slot, raw)
}

// LoadImage records the rendered box of the current point-selector image.
func (p *Player) LoadImage(box point.Box) {
	p.currentSelector().Load(box)
}

// PointerAt handles a pointer event on the current point-selector image.
func (p *Player) PointerAt(clientX, clientY float64) (point.Outcome, error) {
	sel := p.currentSelector()
	return p.pick(sel, sel.Pointer(clientX, clientY))
}

// TouchAt handles a touch start on the current point-selector image.
func (p *Player) TouchAt(touches []point.Touch) (point.Outcome, error) {
	sel := p.currentSelector()
	return p.pick(sel, sel.Touch(touches))
}

// Submit sends the current draft. Invalid drafts, a wrong phase and repeat
// submissions are rejected before anything reaches the network.
func (p *Player) Submit(ctx context.Context) error {
	answers, err := p.client.session.ClaimAnswer()
	if err != nil {
		return err
	}
	if err := p.client.send(ctx, packet.Answer{Answers: answers}); err != nil {
		p.client.session.ReleaseAnswer()
		return err
	}
	return nil
}

func (p *Player) pick(sel *point.Selector, out point.Outcome) (point.Outcome, error) {
	if !out.Selected {
		return out, nil
	}
	selection, ok := sel.Selection()
	if !ok {
		return out, nil
	}
	return out, p.client.session.SelectPoint(selection)
}

// currentSelector returns the selector of the current question, starting a
// fresh one whenever a new question has arrived.
func (p *Player) currentSelector() *point.Selector {
	snap := p.client.session.Snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.QuestionSeq != p.selectorSeq {
		p.selector = point.NewSelector()
		p.selectorSeq = snap.QuestionSeq
	}
	return p.selector
}

// Kind returns the kind of the current question, if any.
func (p *Player) Kind() (question.Kind, bool) {
	q := p.client.session.Snapshot().Question
	if q == nil {
		return "", false
	}
	return q.Kind(), true
}
