package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/application/port/output"
)

// MockTrackerGateway simulates an issue tracker without any network
// dependency. Useful for development and tests; the orchestration core
// treats tracker calls as best-effort either way.
type MockTrackerGateway struct {
	mu     sync.Mutex
	logger output.Logger

	closedIssues  []IssueRef
	removedLabels []LabelRef
}

// IssueRef identifies one issue a call touched
type IssueRef struct {
	Repo     string
	IssueNum int
	Comment  string
}

// LabelRef identifies one label a call removed
type LabelRef struct {
	Repo     string
	IssueNum int
	Label    string
}

func NewMockTrackerGateway(logger output.Logger) *MockTrackerGateway {
	return &MockTrackerGateway{logger: logger}
}

func (g *MockTrackerGateway) CloseIssueWithComment(_ context.Context, repo string, issueNum int, comment string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closedIssues = append(g.closedIssues, IssueRef{Repo: repo, IssueNum: issueNum, Comment: comment})
	g.logger.Info("[mock tracker] close %s#%d: %s", repo, issueNum, comment)
	return nil
}

func (g *MockTrackerGateway) RemoveLabel(_ context.Context, repo string, issueNum int, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removedLabels = append(g.removedLabels, LabelRef{Repo: repo, IssueNum: issueNum, Label: label})
	g.logger.Info("[mock tracker] remove label %q from %s#%d", label, repo, issueNum)
	return nil
}

// ClosedIssues returns the issues closed so far
func (g *MockTrackerGateway) ClosedIssues() []IssueRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]IssueRef{}, g.closedIssues...)
}

// RemovedLabels returns the labels removed so far
func (g *MockTrackerGateway) RemovedLabels() []LabelRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]LabelRef{}, g.removedLabels...)
}

// NoopTrackerGateway drops every call. Used when notifications are
// disabled in configuration.
type NoopTrackerGateway struct{}

func NewNoopTrackerGateway() *NoopTrackerGateway { return &NoopTrackerGateway{} }

func (*NoopTrackerGateway) CloseIssueWithComment(context.Context, string, int, string) error {
	return nil
}

func (*NoopTrackerGateway) RemoveLabel(context.Context, string, int, string) error {
	return nil
}

// NewTrackerGateway selects a gateway implementation by name
func NewTrackerGateway(kind string, logger output.Logger) (output.TrackerGateway, error) {
	switch kind {
	case "", "none":
		return NewNoopTrackerGateway(), nil
	case "mock":
		return NewMockTrackerGateway(logger), nil
	default:
		return nil, fmt.Errorf("unknown tracker gateway: %s", kind)
	}
}
