package app

import (
	"fmt"
	"sync"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/packet"
	"quiz-session-client/internal/point"
	"quiz-session-client/internal/question"
)

// FinishedNotice is surfaced when the server reports the activity is over.
const FinishedNotice = "Activity has finished"

// Snapshot is a read-only view of a session for observers.
type Snapshot struct {
	Phase    domain.Phase
	IsHost   bool
	Question question.Question
	// QuestionSeq increases with every question packet received.
	QuestionSeq uint64
	ImageURL    string
	Draft       question.Draft
	Grade       *bool
	Submitted   bool
	Notice      string
	Err         string
}

// Session owns the phase and the current question, draft and grade of one
// client. Phase changes only through Apply and Disconnect.
type Session struct {
	mu          sync.RWMutex
	phase       domain.Phase
	isHost      bool
	question    question.Question
	questionSeq uint64
	draft       question.Draft
	grade       *bool
	submitted   bool
	notice      string
	err         string
	subscribers map[chan Snapshot]struct{}
}

// NewSession returns a disconnected session.
func NewSession() *Session {
	return &Session{
		phase:       domain.PhaseDisconnected,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Apply moves the session forward on one client-bound packet. Packets that
// are not valid in the current phase are ignored and reported as errors.
func (s *Session) Apply(p packet.Inbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseFinished {
		if f, ok := p.(packet.LoginFailure); ok {
			s.err = f.Message
			s.broadcastLocked()
			return nil
		}
		return fmt.Errorf("%w: ignoring %s", domain.ErrSessionFinished, p.InboundType())
	}

	switch p := p.(type) {
	case packet.LoginResponse:
		s.phase = p.Phase
		s.isHost = p.IsHost
		s.err = ""
		switch p.Phase {
		case domain.PhaseWaiting:
			s.clearQuestionLocked()
		case domain.PhaseQuestion:
			s.grade = nil
			s.submitted = false
		case domain.PhaseFinished:
			s.clearQuestionLocked()
			s.notice = FinishedNotice
		}

	case packet.LoginFailure:
		s.err = p.Message

	case packet.Question:
		s.phase = domain.PhaseQuestion
		s.question = p.Question
		s.questionSeq++
		s.draft = question.NewDraft(p.Question)
		s.grade = nil
		s.submitted = false

	case packet.AnswerConfirm:
		if s.phase != domain.PhaseQuestion {
			return fmt.Errorf("%w: answer_confirm in %s", domain.ErrUnexpectedPacket, s.phase)
		}
		s.submitted = true

	case packet.QuestionGrade:
		correct := p.IsCorrect
		s.grade = &correct
		s.phase = p.Phase
		switch p.Phase {
		case domain.PhaseWaiting:
			s.dropQuestionLocked()
		case domain.PhaseFinished:
			s.dropQuestionLocked()
			s.notice = FinishedNotice
		}

	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownType, p)
	}

	s.broadcastLocked()
	return nil
}

// Disconnect forces the disconnected phase and clears per-session state.
// reason, when set, becomes the visible error. It reports whether anything changed.
func (s *Session) Disconnect(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseDisconnected && (reason == "" || reason == s.err) {
		return false
	}
	s.phase = domain.PhaseDisconnected
	s.isHost = false
	s.notice = ""
	s.clearQuestionLocked()
	if reason != "" {
		s.err = reason
	}
	s.broadcastLocked()
	return true
}

// Fail records a visible error without touching the phase.
func (s *Session) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = message
	s.broadcastLocked()
}

// SelectOption records a multiple-choice selection in the draft.
func (s *Session) SelectOption(i int) error {
	return s.editDraft(func(q question.Question, d *question.Draft) error {
		return d.SelectOption(q, i)
	})
}

// SetNumber records the raw input of one numerical answer slot.
func (s *Session) SetNumber(slot int, raw string) error {
	return s.editDraft(func(q question.Question, d *question.Draft) error {
		return d.SetNumber(q, slot, raw)
	})
}

// SelectPoint records the selected point of a point-selector question.
func (s *Session) SelectPoint(sel point.Selection) error {
	return s.editDraft(func(q question.Question, d *question.Draft) error {
		return d.SelectPoint(q, sel)
	})
}

// ClaimAnswer validates the draft and locks it for sending. It returns the
// answers to send; on error nothing may be sent.
func (s *Session) ClaimAnswer() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return nil, domain.ErrWrongPhase
	}
	if s.question == nil {
		return nil, domain.ErrNoQuestion
	}
	if s.submitted {
		return nil, domain.ErrAlreadySubmitted
	}
	answers, err := question.EncodeAnswer(s.question, s.draft)
	if err != nil {
		return nil, err
	}
	s.submitted = true
	s.broadcastLocked()
	return answers, nil
}

// ReleaseAnswer unlocks a claimed answer whose send failed.
func (s *Session) ReleaseAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submitted {
		return
	}
	s.submitted = false
	s.broadcastLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) editDraft(edit func(question.Question, *question.Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return domain.ErrWrongPhase
	}
	if s.question == nil {
		return domain.ErrNoQuestion
	}
	if s.submitted {
		return domain.ErrAlreadySubmitted
	}
	if err := edit(s.question, &s.draft); err != nil {
		return err
	}
	s.broadcastLocked()
	return nil
}

func (s *Session) clearQuestionLocked() {
	s.dropQuestionLocked()
	s.grade = nil
}

// dropQuestionLocked forgets the question and its draft but keeps the last grade.
func (s *Session) dropQuestionLocked() {
	s.question = nil
	s.draft = question.Draft{}
	s.submitted = false
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Replace the oldest pending snapshot so a slow observer never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:       s.phase,
		IsHost:      s.isHost,
		Question:    s.question,
		QuestionSeq: s.questionSeq,
		Draft:       s.draft.Clone(),
		Submitted:   s.submitted,
		Notice:      s.notice,
		Err:         s.err,
	}
	if s.question != nil {
		snap.ImageURL = s.question.Image()
	}
	if s.grade != nil {
		g := *s.grade
		snap.Grade = &g
	}
	return snap
}
