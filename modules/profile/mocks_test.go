package profile

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockConnector is a mock implementation of Connector.
type MockConnector struct {
	mock.Mock
	target string
}

func NewMockConnector(target string) *MockConnector {
	return &MockConnector{target: target}
}

func (m *MockConnector) Target() string {
	return m.target
}

func (m *MockConnector) Exchange(ctx context.Context, data map[string]string) (*SocialProfile, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SocialProfile), args.Error(1)
}

// captureEmitter collects emitted events on a channel so tests can wait for
// the asynchronous emission deterministically.
type captureEmitter struct {
	events chan UserEvent
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{events: make(chan UserEvent, 16)}
}

func (e *captureEmitter) Emit(_ context.Context, event string, user *User) error {
	e.events <- UserEvent{Event: event, User: user, CreatedAt: time.Now()}
	return nil
}

// wait returns the next emitted event or fails the caller via ok=false.
func (e *captureEmitter) wait(timeout time.Duration) (UserEvent, bool) {
	select {
	case ev := <-e.events:
		return ev, true
	case <-time.After(timeout):
		return UserEvent{}, false
	}
}
