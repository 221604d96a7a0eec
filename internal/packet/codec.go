package packet

import (
	"encoding/json"
	"fmt"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/question"
)

// DecodeError describes why an inbound message could not become a packet.
// It unwraps to domain.ErrMalformedPayload or domain.ErrUnknownType.
type DecodeError struct {
	Type   Type
	Reason error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode packet: %v", e.Reason)
	}
	return fmt.Sprintf("decode %s packet: %v", e.Type, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Reason }

func malformed(t Type, format string, args ...any) error {
	return &DecodeError{Type: t, Reason: fmt.Errorf("%w: %s", domain.ErrMalformedPayload, fmt.Sprintf(format, args...))}
}

func unknown(t Type) error {
	return &DecodeError{Type: t, Reason: fmt.Errorf("%w: %q", domain.ErrUnknownType, t)}
}

type envelope struct {
	Type Type `json:"type"`
}

type credentialsWire struct {
	Type      Type   `json:"type"`
	Name      string `json:"name"`
	LobbyCode string `json:"lobby_code"`
}

type answerWire struct {
	Type    Type     `json:"type"`
	Answers []string `json:"answers"`
}

type loginResponseWire struct {
	Type   Type          `json:"type"`
	State  *domain.Phase `json:"state"`
	IsHost *bool         `json:"is_host"`
}

type loginFailureWire struct {
	Type    Type    `json:"type"`
	Message *string `json:"message"`
}

type questionWire struct {
	Type         Type            `json:"type"`
	Question     json.RawMessage `json:"question"`
	QuestionType question.Kind   `json:"question_type"`
}

type questionGradeWire struct {
	Type      Type          `json:"type"`
	IsCorrect *bool         `json:"is_correct"`
	State     *domain.Phase `json:"state"`
}

// Encode serializes an outbound packet. Every outbound value has a valid
// encoding, so Encode cannot fail.
func Encode(p Outbound) []byte {
	var v any
	switch p := p.(type) {
	case Login:
		v = credentialsWire{Type: TypeLogin, Name: p.Name, LobbyCode: p.LobbyCode}
	case StartLobby:
		v = credentialsWire{Type: TypeStartLobby, Name: p.Name, LobbyCode: p.LobbyCode}
	case Answer:
		answers := p.Answers
		if answers == nil {
			answers = []string{}
		}
		v = answerWire{Type: TypeAnswer, Answers: answers}
	default:
		v = envelope{Type: p.OutboundType()}
	}
	return mustMarshal(v)
}

// Decode parses an inbound message into a client-bound packet.
func Decode(data []byte) (Inbound, error) {
	t, err := decodeType(data)
	if err != nil {
		return nil, err
	}

	switch t {
	case TypeLoginResponse:
		var w loginResponseWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if w.State == nil || !w.State.Wire() {
			return nil, malformed(t, "invalid state")
		}
		if w.IsHost == nil {
			return nil, malformed(t, "is_host missing")
		}
		return LoginResponse{Phase: *w.State, IsHost: *w.IsHost}, nil

	case TypeLoginFailure:
		var w loginFailureWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if w.Message == nil {
			return nil, malformed(t, "message missing")
		}
		return LoginFailure{Message: *w.Message}, nil

	case TypeQuestion:
		var w questionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if len(w.Question) == 0 {
			return nil, malformed(t, "question missing")
		}
		q, err := question.Parse(w.Question)
		if err != nil {
			return nil, &DecodeError{Type: t, Reason: err}
		}
		if !w.QuestionType.Valid() || w.QuestionType != q.Kind() {
			return nil, malformed(t, "question_type %q does not match %s", w.QuestionType, q.Kind())
		}
		return Question{Question: q}, nil

	case TypeAnswerConfirm:
		return AnswerConfirm{}, nil

	case TypeQuestionGrade:
		var w questionGradeWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if w.IsCorrect == nil {
			return nil, malformed(t, "is_correct missing")
		}
		if w.State == nil || !w.State.Wire() {
			return nil, malformed(t, "invalid state")
		}
		return QuestionGrade{IsCorrect: *w.IsCorrect, Phase: *w.State}, nil
	}
	return nil, unknown(t)
}

// EncodeInbound serializes a client-bound packet the way the server does.
func EncodeInbound(p Inbound) []byte {
	var v any
	switch p := p.(type) {
	case LoginResponse:
		v = loginResponseWire{Type: TypeLoginResponse, State: &p.Phase, IsHost: &p.IsHost}
	case LoginFailure:
		v = loginFailureWire{Type: TypeLoginFailure, Message: &p.Message}
	case Question:
		v = questionWire{
			Type:         TypeQuestion,
			Question:     mustMarshal(p.Question),
			QuestionType: p.Question.Kind(),
		}
	case QuestionGrade:
		v = questionGradeWire{Type: TypeQuestionGrade, IsCorrect: &p.IsCorrect, State: &p.Phase}
	default:
		v = envelope{Type: p.InboundType()}
	}
	return mustMarshal(v)
}

// DecodeOutbound parses a server-bound message the way the server does.
func DecodeOutbound(data []byte) (Outbound, error) {
	t, err := decodeType(data)
	if err != nil {
		return nil, err
	}

	switch t {
	case TypeLogin, TypeStartLobby:
		var w credentialsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if t == TypeLogin {
			return Login{Name: w.Name, LobbyCode: w.LobbyCode}, nil
		}
		return StartLobby{Name: w.Name, LobbyCode: w.LobbyCode}, nil
	case TypeNextQuestion:
		return NextQuestion{}, nil
	case TypeEndQuestion:
		return EndQuestion{}, nil
	case TypeAnswer:
		var w answerWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, malformed(t, "%v", err)
		}
		if w.Answers == nil {
			return nil, malformed(t, "answers missing")
		}
		return Answer{Answers: w.Answers}, nil
	}
	return nil, unknown(t)
}

func decodeType(data []byte) (Type, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return "", malformed("", "not a JSON object")
	}
	raw, ok := fields["type"]
	if !ok {
		return "", malformed("", "type missing")
	}
	var t Type
	if err := json.Unmarshal(raw, &t); err != nil || t == "" {
		return "", malformed("", "type is not a string")
	}
	return t, nil
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("packet: marshal %T: %v", v, err))
	}
	return data
}
