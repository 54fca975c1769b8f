package memdomain

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"memdomain/pkg/platform/sentinel"
)

type FetchSuite struct {
	suite.Suite
	registry *Registry
	engine   *Engine
	ctx      context.Context
}

func (s *FetchSuite) SetupTest() {
	s.registry = NewRegistry()
	s.engine = NewEngine()
	s.ctx = context.Background()
}

func TestFetchSuite(t *testing.T) {
	suite.Run(t, new(FetchSuite))
}

func (s *FetchSuite) newSourceDomain() *Domain {
	d, err := s.registry.Create(DeviceTypeRDMA, nil, "remote")
	s.Require().NoError(err)
	return d
}

// TestUnsupported verifies a domain without a fetch capability fails
// synchronously and the notifier never fires.
func (s *FetchSuite) TestUnsupported() {
	src := s.newSourceDomain()

	var notified atomic.Int32
	err := s.engine.Fetch(s.ctx, src, nil,
		[]Descriptor{{Addr: 0, Len: 16}}, [][]byte{make([]byte, 16)},
		func(_ [][]byte, _ error) { notified.Add(1) })

	s.Require().ErrorIs(err, sentinel.ErrNotSupported)
	s.Equal(int32(0), notified.Load())
}

// TestFailedStart verifies a provider start failure is terminal: the status
// returns verbatim and no completion is ever delivered.
func (s *FetchSuite) TestFailedStart() {
	src := s.newSourceDomain()
	startErr := errors.New("no send queue space")

	src.SetFetch(func(_ context.Context, _ *Domain, _ any,
		_ []Descriptor, _ [][]byte, _ FetchCompletion) error {
		return startErr
	})

	var notified atomic.Int32
	err := s.engine.Fetch(s.ctx, src, nil,
		[]Descriptor{{Addr: 0, Len: 16}}, [][]byte{make([]byte, 16)},
		func(_ [][]byte, _ error) { notified.Add(1) })

	s.Require().ErrorIs(err, startErr)
	s.Equal(int32(0), notified.Load())
}

// TestSynchronousCompletion verifies a provider that completes inline still
// delivers exactly one notification carrying the terminal status.
func (s *FetchSuite) TestSynchronousCompletion() {
	src := s.newSourceDomain()

	src.SetFetch(func(_ context.Context, _ *Domain, _ any,
		_ []Descriptor, dst [][]byte, done FetchCompletion) error {
		done(dst, nil)
		return nil
	})

	var notified atomic.Int32
	var completionErr error
	err := s.engine.Fetch(s.ctx, src, nil,
		[]Descriptor{{Addr: 0, Len: 16}}, [][]byte{make([]byte, 16)},
		func(_ [][]byte, err error) {
			notified.Add(1)
			completionErr = err
		})

	s.Require().NoError(err)
	s.Equal(int32(1), notified.Load())
	s.NoError(completionErr)
}

// TestAsynchronousCompletion verifies the notifier may fire from another
// goroutine after the start call returns, and that a completion error reaches
// the caller through the notifier only.
func (s *FetchSuite) TestAsynchronousCompletion() {
	src := s.newSourceDomain()
	copyErr := errors.New("remote access error")

	src.SetFetch(func(_ context.Context, _ *Domain, _ any,
		_ []Descriptor, dst [][]byte, done FetchCompletion) error {
		go func() {
			time.Sleep(time.Millisecond)
			done(dst, copyErr)
		}()
		return nil
	})

	completed := make(chan error, 1)
	err := s.engine.Fetch(s.ctx, src, nil,
		[]Descriptor{{Addr: 0, Len: 16}}, [][]byte{make([]byte, 16)},
		func(_ [][]byte, err error) { completed <- err })

	s.Require().NoError(err)
	select {
	case err := <-completed:
		s.Require().ErrorIs(err, copyErr)
	case <-time.After(time.Second):
		s.Fail("completion notifier never fired")
	}
}

// TestDuplicateCompletionDropped verifies the engine forwards only the first
// notification when a misbehaving provider fires the notifier twice.
func (s *FetchSuite) TestDuplicateCompletionDropped() {
	src := s.newSourceDomain()

	src.SetFetch(func(_ context.Context, _ *Domain, _ any,
		_ []Descriptor, dst [][]byte, done FetchCompletion) error {
		done(dst, nil)
		done(dst, errors.New("late duplicate"))
		return nil
	})

	var notified atomic.Int32
	var lastErr error
	err := s.engine.Fetch(s.ctx, src, nil,
		[]Descriptor{{Addr: 0, Len: 16}}, [][]byte{make([]byte, 16)},
		func(_ [][]byte, err error) {
			notified.Add(1)
			lastErr = err
		})

	s.Require().NoError(err)
	s.Equal(int32(1), notified.Load())
	s.NoError(lastErr)
}

func TestTotalLen(t *testing.T) {
	descs := []Descriptor{{Addr: 0, Len: 10}, {Addr: 100, Len: 22}, {Addr: 500, Len: 0}}
	if got := TotalLen(descs); got != 32 {
		t.Fatalf("expected total length 32, got %d", got)
	}
	if got := TotalLen(nil); got != 0 {
		t.Fatalf("expected total length 0 for nil list, got %d", got)
	}
}
