package domain

// Phase is the stage of a lobby's question flow as seen by this client.
type Phase string

const (
	// PhaseDisconnected is local to the client and never sent by the server.
	PhaseDisconnected   Phase = "disconnected"
	PhaseWaiting        Phase = "waiting"
	PhaseQuestion       Phase = "question"
	PhaseQuestionReview Phase = "question_review"
	PhaseFinished       Phase = "finished"
)

// Wire reports whether the phase is one the server may declare.
func (p Phase) Wire() bool {
	switch p {
	case PhaseWaiting, PhaseQuestion, PhaseQuestionReview, PhaseFinished:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }

// Role identifies which controller drives a client.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// HostName is the display name the host controller logs in with.
const HostName = "host"
