package solverhttp

import (
	"context"
	"fmt"
	"sync"

	"twostep-routing-service/internal/solver"
)

// MockSolver serves canned responses keyed by request label, consuming
// them in order when a label is solved more than once. It records every
// request it sees for later assertions.
type MockSolver struct {
	mu        sync.Mutex
	responses map[string][]*solver.Response
	Requests  []*solver.Request
}

func NewMockSolver() *MockSolver {
	return &MockSolver{responses: make(map[string][]*solver.Response)}
}

// Queue a response for the given request label.
func (m *MockSolver) Expect(label string, resp *solver.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[label] = append(m.responses[label], resp)
}

func (m *MockSolver) OptimizeTours(ctx context.Context, req *solver.Request) (*solver.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	queue := m.responses[req.Label]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no canned response for request %q", req.Label)
	}
	m.responses[req.Label] = queue[1:]

	return queue[0], nil
}
