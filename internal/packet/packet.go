// Package packet defines the lobby wire protocol: JSON objects discriminated
// by a top-level type field.
package packet

import (
	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/question"
)

// Type is the wire discriminant of a packet.
type Type string

// Server-bound types.
const (
	TypeLogin        Type = "login"
	TypeStartLobby   Type = "start_lobby"
	TypeNextQuestion Type = "next_question"
	TypeEndQuestion  Type = "end_question"
	TypeAnswer       Type = "answer"
)

// Client-bound types.
const (
	TypeLoginResponse Type = "login_response"
	TypeLoginFailure  Type = "login_failure"
	TypeQuestion      Type = "question"
	TypeAnswerConfirm Type = "answer_confirm"
	TypeQuestionGrade Type = "question_grade"
)

// Outbound is a packet the client sends to the server.
type Outbound interface {
	OutboundType() Type
	isOutbound()
}

// Inbound is a packet the server sends to the client.
type Inbound interface {
	InboundType() Type
	isInbound()
}

// Login joins a lobby as a player.
type Login struct {
	Name      string
	LobbyCode string
}

// StartLobby opens a lobby as its host.
type StartLobby struct {
	Name      string
	LobbyCode string
}

// NextQuestion asks the server to publish the next question.
type NextQuestion struct{}

// EndQuestion asks the server to close the current question and grade it.
type EndQuestion struct{}

// Answer submits the player's answer to the current question.
type Answer struct {
	Answers []string
}

func (Login) OutboundType() Type        { return TypeLogin }
func (StartLobby) OutboundType() Type   { return TypeStartLobby }
func (NextQuestion) OutboundType() Type { return TypeNextQuestion }
func (EndQuestion) OutboundType() Type  { return TypeEndQuestion }
func (Answer) OutboundType() Type       { return TypeAnswer }

func (Login) isOutbound()        {}
func (StartLobby) isOutbound()   {}
func (NextQuestion) isOutbound() {}
func (EndQuestion) isOutbound()  {}
func (Answer) isOutbound()       {}

// LoginResponse accepts a login and declares the lobby's phase.
type LoginResponse struct {
	Phase  domain.Phase
	IsHost bool
}

// LoginFailure rejects a login with a human-readable reason.
type LoginFailure struct {
	Message string
}

// Question publishes a new question.
type Question struct {
	Question question.Question
}

// AnswerConfirm acknowledges the player's answer.
type AnswerConfirm struct{}

// QuestionGrade reports the grade of the last answer and the lobby's phase.
type QuestionGrade struct {
	IsCorrect bool
	Phase     domain.Phase
}

func (LoginResponse) InboundType() Type { return TypeLoginResponse }
func (LoginFailure) InboundType() Type  { return TypeLoginFailure }
func (Question) InboundType() Type      { return TypeQuestion }
func (AnswerConfirm) InboundType() Type { return TypeAnswerConfirm }
func (QuestionGrade) InboundType() Type { return TypeQuestionGrade }

func (LoginResponse) isInbound() {}
func (LoginFailure) isInbound()  {}
func (Question) isInbound()      {}
func (AnswerConfirm) isInbound() {}
func (QuestionGrade) isInbound() {}
