package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"quiz-session-client/internal/app"
	"quiz-session-client/internal/config"
	"quiz-session-client/internal/question"
	"quiz-session-client/internal/transport/ws"
)

// console serializes writes from the command loop and the snapshot renderer.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

func newClient(configPath string, logOut io.Writer) (*app.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	opts, err := ws.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := log.New(logOut, "quiz-client ", log.LstdFlags)
	opts.Logger = logger
	client := app.NewClient(ws.New(opts), logger)
	logger.Printf("client %s using %s", client.ID(), opts.URL)
	return client, nil
}

// watch prints every meaningful change of the session until stop is called.
func watch(client *app.Client, out *console) (stop func()) {
	ch, cancel := client.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := ""
		for snap := range ch {
			key := snapshotKey(snap)
			if key == last {
				continue
			}
			last = key
			render(out, snap)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func snapshotKey(s app.Snapshot) string {
	grade := "-"
	if s.Grade != nil {
		grade = fmt.Sprint(*s.Grade)
	}
	return fmt.Sprintf("%s|%d|%t|%s|%s|%s", s.Phase, s.QuestionSeq, s.Submitted, grade, s.Err, s.Notice)
}

func render(out *console, s app.Snapshot) {
	out.Printf("phase: %s\n", s.Phase)
	if s.Err != "" {
		out.Printf("error: %s\n", s.Err)
	}
	if s.Notice != "" {
		out.Printf("notice: %s\n", s.Notice)
	}
	if s.Question != nil && !s.Submitted && s.Grade == nil {
		out.Printf("question: %s\n", s.Question.Prompt())
		if s.ImageURL != "" {
			out.Printf("image: %s\n", s.ImageURL)
		}
		switch q := s.Question.(type) {
		case question.MultipleChoice:
			for i, opt := range q.Options {
				out.Printf("  %d) %s\n", i, opt)
			}
		case question.Numerical:
			out.Printf("  enter %d %s value(s)\n", len(q.Answers), q.Type)
		case question.PointSelector:
			out.Printf("  pick a point (x: %s, y: %s)\n", q.XLabel, q.YLabel)
		}
	}
	if s.Submitted && s.Grade == nil {
		out.Printf("answer submitted\n")
	}
	if s.Grade != nil {
		if *s.Grade {
			out.Printf("result: correct\n")
		} else {
			out.Printf("result: incorrect\n")
		}
	}
}

// repl runs handle for every input line until EOF, "quit" or ctx ends.
func repl(ctx context.Context, in io.Reader, out *console, handle func(ctx context.Context, args []string) error) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err := handle(ctx, args); err != nil {
			out.Printf("error: %v\n", err)
		}
	}
	return scanner.Err()
}
