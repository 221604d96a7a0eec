package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-session-client/internal/app"
	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/packet"
	"quiz-session-client/internal/point"
	"quiz-session-client/internal/testutil"
	"quiz-session-client/internal/transport/ws"
)

var quietLogger = log.New(io.Discard, "", 0)

func newClient(url string) *app.Client {
	conn := ws.New(ws.Options{URL: url, ConnectTimeout: 2 * time.Second, Logger: quietLogger})
	return app.NewClient(conn, quietLogger)
}

func await(t *testing.T, c *app.Client, what string, done func(app.Snapshot) bool) app.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := c.Await(ctx, done)
	if err != nil {
		t.Fatalf("waiting for %s: %v (last snapshot %+v)", what, err, snap)
	}
	return snap
}

func inPhase(phase domain.Phase) func(app.Snapshot) bool {
	return func(s app.Snapshot) bool { return s.Phase == phase }
}

func TestPlayerNumericalRound(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())
	defer client.Disconnect()
	player := app.NewPlayer(client)

	if err := player.Join(ctx, "Alice", "ABCD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := srv.Next(t); got != (packet.Login{Name: "Alice", LobbyCode: "ABCD"}) {
		t.Fatalf("unexpected login packet %#v", got)
	}

	srv.Push(packet.LoginResponse{Phase: domain.PhaseWaiting})
	await(t, client, "waiting", inPhase(domain.PhaseWaiting))

	srv.Push(numQuestion())
	await(t, client, "question", func(s app.Snapshot) bool { return s.Question != nil })

	if err := player.SetNumber(0, "1"); err != nil {
		t.Fatalf("set number: %v", err)
	}
	if err := player.Submit(ctx); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected incomplete draft to be rejected, got %v", err)
	}
	if err := player.SetNumber(1, "2"); err != nil {
		t.Fatalf("set number: %v", err)
	}
	if err := player.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answer, ok := srv.Next(t).(packet.Answer)
	if !ok || len(answer.Answers) != 2 || answer.Answers[0] != "1" || answer.Answers[1] != "2" {
		t.Fatalf("unexpected answer packet %#v", answer)
	}

	if err := player.Submit(ctx); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected repeat submit to be rejected, got %v", err)
	}

	srv.Push(packet.AnswerConfirm{})
	srv.Push(packet.QuestionGrade{IsCorrect: true, Phase: domain.PhaseQuestionReview})
	snap := await(t, client, "review", inPhase(domain.PhaseQuestionReview))
	if snap.Grade == nil || !*snap.Grade || !snap.Submitted {
		t.Fatalf("unexpected review snapshot %+v", snap)
	}

	if err := player.Submit(ctx); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected submit in review to be rejected, got %v", err)
	}
	srv.ExpectNone(t, 100*time.Millisecond)
}

func TestUnknownPacketDoesNotPoisonStream(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())
	defer client.Disconnect()

	if err := app.NewPlayer(client).Join(ctx, "Bob", "ABCD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	srv.Next(t)

	srv.PushRaw([]byte(`{"type":"bogus"}`))
	srv.PushRaw([]byte(`{not json`))
	srv.Push(packet.LoginResponse{Phase: domain.PhaseWaiting})

	await(t, client, "waiting", inPhase(domain.PhaseWaiting))
	if n := client.DecodeFailures(); n != 2 {
		t.Fatalf("expected 2 decode failures, got %d", n)
	}
}

func TestLoginFailureKeepsConnectionForRetry(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)

	var mu sync.Mutex
	attempts := 0
	srv.Reply(func(p packet.Outbound) []packet.Inbound {
		login, ok := p.(packet.Login)
		if !ok {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if login.LobbyCode != "GOOD" {
			return []packet.Inbound{packet.LoginFailure{Message: "Invalid lobby code"}}
		}
		return []packet.Inbound{packet.LoginResponse{Phase: domain.PhaseWaiting}}
	})

	client := newClient(srv.URL())
	defer client.Disconnect()
	player := app.NewPlayer(client)

	if err := player.Join(ctx, "Carol", "BAD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	snap := await(t, client, "login failure", func(s app.Snapshot) bool { return s.Err != "" })
	if snap.Err != "Invalid lobby code" || snap.Phase != domain.PhaseDisconnected {
		t.Fatalf("unexpected failure snapshot %+v", snap)
	}

	if err := player.Join(ctx, "Carol", "GOOD"); err != nil {
		t.Fatalf("retry join: %v", err)
	}
	snap = await(t, client, "waiting", inPhase(domain.PhaseWaiting))
	if snap.Err != "" {
		t.Fatalf("expected error cleared, got %q", snap.Err)
	}
	if n := srv.Connections(); n != 1 {
		t.Fatalf("expected the retry to reuse the socket, got %d connections", n)
	}
}

func TestPlayerPointSelection(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())
	defer client.Disconnect()
	player := app.NewPlayer(client)

	if err := player.Join(ctx, "Dave", "ABCD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	srv.Next(t)
	srv.Push(pointQuestion())
	await(t, client, "point question", func(s app.Snapshot) bool { return s.Question != nil })

	out, err := player.PointerAt(60, 45)
	if err != nil || out.Selected {
		t.Fatalf("expected pointer before image load to be ignored, got %+v %v", out, err)
	}
	if err := player.Submit(ctx); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer without a point, got %v", err)
	}

	player.LoadImage(point.Box{Left: 10, Top: 20, Width: 200, Height: 100})
	out, err = player.TouchAt([]point.Touch{{ClientX: 60, ClientY: 45}})
	if err != nil || !out.Selected || !out.SuppressDefault {
		t.Fatalf("unexpected touch outcome %+v %v", out, err)
	}
	if err := player.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answer, ok := srv.Next(t).(packet.Answer)
	if !ok || len(answer.Answers) != 2 || answer.Answers[0] != "0.25" || answer.Answers[1] != "0.25" {
		t.Fatalf("unexpected answer %#v", answer)
	}

	// A new question starts with a fresh, unloaded selector.
	srv.Push(pointQuestion())
	await(t, client, "second question", func(s app.Snapshot) bool { return s.QuestionSeq == 2 })
	if out, _ := player.PointerAt(60, 45); out.Selected {
		t.Fatalf("expected selector reset for the new question")
	}
}

func TestConnectionLossForcesDisconnected(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())
	defer client.Disconnect()

	if err := app.NewPlayer(client).Join(ctx, "Erin", "ABCD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	srv.Next(t)
	srv.Push(packet.LoginResponse{Phase: domain.PhaseWaiting})
	await(t, client, "waiting", inPhase(domain.PhaseWaiting))

	srv.DropAll()
	snap := await(t, client, "disconnected", inPhase(domain.PhaseDisconnected))
	if snap.Err != app.ConnectionErrorMessage {
		t.Fatalf("expected connection error message, got %q", snap.Err)
	}
}

func TestConnectFailureSurfacesMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := newClient("ws://" + addr + "/ws")
	err = app.NewPlayer(client).Join(context.Background(), "Frank", "ABCD")
	if !errors.Is(err, domain.ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
	snap := client.Snapshot()
	if snap.Phase != domain.PhaseDisconnected || snap.Err != app.ConnectFailedMessage {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestClientDisconnectTwice(t *testing.T) {
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())

	client.Disconnect()
	if client.Snapshot().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected before connecting")
	}

	if err := app.NewPlayer(client).Join(context.Background(), "Gina", "ABCD"); err != nil {
		t.Fatalf("join: %v", err)
	}
	srv.Next(t)
	srv.Push(packet.LoginResponse{Phase: domain.PhaseWaiting})
	await(t, client, "waiting", inPhase(domain.PhaseWaiting))

	client.Disconnect()
	if client.Snapshot().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected after first call")
	}
	client.Disconnect()
	snap := client.Snapshot()
	if snap.Phase != domain.PhaseDisconnected || snap.Err != "" {
		t.Fatalf("unexpected snapshot after second call %+v", snap)
	}
}

func TestJoinRequiresCredentials(t *testing.T) {
	client := app.NewClient(&failingTransport{}, quietLogger)
	if err := app.NewPlayer(client).Join(context.Background(), "", "ABCD"); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := app.NewHost(client).StartLobby(context.Background(), ""); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestHostControlsQuestionFlow(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewLobbyServer(t)
	client := newClient(srv.URL())
	defer client.Disconnect()
	host := app.NewHost(client)

	if host.JoinURL("https://quiz.example.com/") != "https://quiz.example.com/join" {
		t.Fatalf("unexpected join url before lobby start: %s", host.JoinURL("https://quiz.example.com/"))
	}
	if err := host.StartLobby(ctx, "AB CD"); err != nil {
		t.Fatalf("start lobby: %v", err)
	}
	if got := srv.Next(t); got != (packet.StartLobby{Name: "host", LobbyCode: "AB CD"}) {
		t.Fatalf("unexpected start packet %#v", got)
	}
	if got := host.JoinURL("https://quiz.example.com"); got != "https://quiz.example.com/join?code=AB+CD" {
		t.Fatalf("unexpected join url %s", got)
	}

	srv.Push(packet.LoginResponse{Phase: domain.PhaseWaiting, IsHost: true})
	snap := await(t, client, "waiting", inPhase(domain.PhaseWaiting))
	if !snap.IsHost {
		t.Fatalf("expected host flag")
	}

	if err := host.NextQuestion(ctx); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if _, ok := srv.Next(t).(packet.NextQuestion); !ok {
		t.Fatalf("expected next_question")
	}
	srv.Push(mcQuestion())
	snap = await(t, client, "question", func(s app.Snapshot) bool { return s.Question != nil })
	if snap.Phase != domain.PhaseQuestion {
		t.Fatalf("expected question phase, got %s", snap.Phase)
	}

	if err := host.EndQuestion(ctx); err != nil {
		t.Fatalf("end question: %v", err)
	}
	if _, ok := srv.Next(t).(packet.EndQuestion); !ok {
		t.Fatalf("expected end_question")
	}
}

func TestHostSendWithoutConnection(t *testing.T) {
	client := newClient("ws://127.0.0.1:1/ws")
	err := app.NewHost(client).NextQuestion(context.Background())
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestFailedSendReleasesAnswer(t *testing.T) {
	transport := &failingTransport{}
	client := app.NewClient(transport, quietLogger)
	player := app.NewPlayer(client)
	if err := player.Join(context.Background(), "Hana", "ABCD"); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("expected login send to fail, got %v", err)
	}

	transport.push(packet.EncodeInbound(packet.LoginResponse{Phase: domain.PhaseWaiting}))
	transport.push(packet.EncodeInbound(mcQuestion()))
	await(t, client, "question", func(s app.Snapshot) bool { return s.Question != nil })

	if err := player.SelectOption(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := player.Submit(context.Background()); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("expected send failure, got %v", err)
	}
	if client.Snapshot().Submitted {
		t.Fatalf("expected failed send to release the draft")
	}
	client.Disconnect()
}

func TestClientLogsCarryClientID(t *testing.T) {
	var logs bytes.Buffer
	transport := &failingTransport{}
	client := app.NewClient(transport, log.New(&logs, "", 0))
	player := app.NewPlayer(client)

	if err := player.Join(context.Background(), "ann", "ABCD"); err == nil {
		t.Fatalf("expected the login send to fail")
	}
	transport.push([]byte("not json"))
	client.Disconnect()

	prefix := "client " + client.ID()[:8] + " "
	if !strings.Contains(logs.String(), prefix+"error parsing message") {
		t.Fatalf("expected log lines prefixed with %q, got:\n%s", prefix, logs.String())
	}
}

// failingTransport connects but refuses every send.
type failingTransport struct {
	mu   sync.Mutex
	msgs chan []byte
}

func (f *failingTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgs == nil {
		f.msgs = make(chan []byte, 8)
	}
	return nil
}

func (f *failingTransport) Send(context.Context, []byte) error { return domain.ErrNotConnected }

func (f *failingTransport) Messages() <-chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs
}

func (f *failingTransport) Err() error { return nil }

func (f *failingTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgs != nil {
		close(f.msgs)
		f.msgs = nil
	}
	return nil
}

func (f *failingTransport) push(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs <- data
}
