package domain

import "errors"

var (
	// ErrNotConnected is returned when a packet is sent without an open connection.
	ErrNotConnected = errors.New("websocket is not connected")
	// ErrConnectionFailed indicates the transport could not be opened.
	ErrConnectionFailed = errors.New("failed to connect to server")
	// ErrConnectionLost indicates an open transport closed without a disconnect request.
	ErrConnectionLost = errors.New("connection closed unexpectedly")
	// ErrDisconnected is returned by a connect attempt cancelled by Disconnect.
	ErrDisconnected = errors.New("disconnected")

	// ErrMalformedPayload indicates an inbound message could not be parsed.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownType indicates an inbound message carried an unrecognized type tag.
	ErrUnknownType = errors.New("unknown packet type")

	// ErrUnexpectedPacket is reported for a packet that is not valid in the current phase.
	ErrUnexpectedPacket = errors.New("packet not expected in current phase")
	// ErrSessionFinished is reported for packets arriving after the session finished.
	ErrSessionFinished = errors.New("session has finished")

	// ErrMissingCredentials is returned when a name or lobby code is empty.
	ErrMissingCredentials = errors.New("name and lobby code are required")
	// ErrNoQuestion indicates there is no active question to answer.
	ErrNoQuestion = errors.New("no active question")
	// ErrWrongPhase indicates an answer was attempted outside the question phase.
	ErrWrongPhase = errors.New("answers are only accepted during a question")
	// ErrAlreadySubmitted indicates an answer was already sent for this question.
	ErrAlreadySubmitted = errors.New("answer already submitted")
	// ErrInvalidAnswer indicates the draft is incomplete or not parseable.
	ErrInvalidAnswer = errors.New("answer is incomplete or invalid")
	// ErrOptionOutOfRange indicates a selected option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrSlotOutOfRange indicates a numerical answer slot does not exist.
	ErrSlotOutOfRange = errors.New("answer slot out of range")
	// ErrWrongQuestionType indicates an intent does not match the active question type.
	ErrWrongQuestionType = errors.New("intent does not match question type")
)
