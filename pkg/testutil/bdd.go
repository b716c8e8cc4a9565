package testutil

import (
	"strings"
	"testing"
)

// Scenario runs auction scenarios as nested Given/When/Then subtests so a
// failure reads as a sentence in `go test -v` output. Steps run in order and
// share whatever state the enclosing test closes over.
type Scenario struct {
	t     *testing.T
	steps []string
}

func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{t: t}
}

func (s *Scenario) Given(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("Given", desc, fn)
}

func (s *Scenario) When(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("When", desc, fn)
}

func (s *Scenario) Then(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("Then", desc, fn)
}

// Trace returns the steps executed so far, joined for failure messages.
func (s *Scenario) Trace() string {
	return strings.Join(s.steps, " / ")
}

func (s *Scenario) step(kind, desc string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	name := kind + " " + desc
	s.steps = append(s.steps, name)
	if !s.t.Run(name, fn) {
		s.t.Fatalf("scenario stopped at: %s", s.Trace())
	}
	return s
}
