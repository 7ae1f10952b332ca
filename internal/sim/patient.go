package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// PatientModel answers interview questions from a bound case record. The LLM
// client satisfies this; tests use a scripted stand-in.
type PatientModel interface {
	Reply(ctx context.Context, question string, firstTurn bool) (string, error)
}

// ModelPatient adapts a PatientModel into a core.ResponseCollector.
type ModelPatient struct {
	Model PatientModel
}

// Collect implements core.ResponseCollector.
func (p *ModelPatient) Collect(ctx context.Context, question string, firstTurn bool) (string, error) {
	return p.Model.Reply(ctx, question, firstTurn)
}

// ScriptedPatient replays a fixed list of answers, then keeps repeating the
// last one. Useful for smoke tests without any model behind it.
type ScriptedPatient struct {
	Answers []string
	next    int
}

// Collect implements core.ResponseCollector.
func (p *ScriptedPatient) Collect(ctx context.Context, question string, firstTurn bool) (string, error) {
	if len(p.Answers) == 0 {
		return "I am not sure.", nil
	}
	answer := p.Answers[p.next]
	if p.next < len(p.Answers)-1 {
		p.next++
	}
	return answer, nil
}

// InteractivePatient prompts a human on the terminal for each answer.
// Entering :q, :quit or :exit aborts the session.
type InteractivePatient struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// ErrQuit is returned when the interactive user asks to leave the session.
var ErrQuit = fmt.Errorf("interactive session aborted by user")

// Collect implements core.ResponseCollector.
func (p *InteractivePatient) Collect(ctx context.Context, question string, firstTurn bool) (string, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	role := "Doctor"
	if firstTurn {
		role = "Doctor (opening)"
	}
	fmt.Fprintf(p.Out, "\n[%s] %s\n> ", role, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrQuit
	}
	answer := strings.TrimSpace(p.scanner.Text())
	switch answer {
	case ":q", ":quit", ":exit":
		return "", ErrQuit
	case "":
		answer = "The patient gave no description."
	}
	return answer, nil
}
