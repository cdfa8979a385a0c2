package mqtt

import "airfilter_hub/internal/models"

// FakeRelayPublisher records published states for test assertions.
type FakeRelayPublisher struct {
	// States contains every token published, in order.
	States []models.RelayState

	// PublishError, if set, will be returned by PublishState.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

func NewFakeRelayPublisher() *FakeRelayPublisher {
	return &FakeRelayPublisher{}
}

var _ RelayPublisher = (*FakeRelayPublisher)(nil)

// PublishState records the token.
func (f *FakeRelayPublisher) PublishState(state models.RelayState) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, state)
	return nil
}

// Close marks the publisher as closed.
func (f *FakeRelayPublisher) Close() error {
	f.Closed = true
	return nil
}
