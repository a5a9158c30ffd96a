package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"

	"vaaniagent/internal/client"
)

// updateServer replays a scripted sequence of /check_updates responses and
// answers "No updates" once the script is exhausted.
type updateServer struct {
	*httptest.Server

	mu    sync.Mutex
	steps []func(w http.ResponseWriter)
	count int
	auth  []string
}

func newUpdateServer(steps ...func(w http.ResponseWriter)) *updateServer {
	s := &updateServer{steps: steps}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		i := s.count
		s.count++
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()

		// Fresh connections keep the transport from silently retrying a
		// dropped request.
		w.Header().Set("Connection", "close")
		if i < len(s.steps) {
			s.steps[i](w)
			return
		}
		respondCommand(NoUpdates)(w)
	}))
	return s
}

func (s *updateServer) hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func respondCommand(data string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		fmt.Fprintf(w, `{"data":%q}`, data)
	}
}

func respondStatus(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
	}
}

func dropConnection(w http.ResponseWriter) {
	conn, _, err := w.(http.Hijacker).Hijack()
	if err == nil {
		conn.Close()
	}
}

type recordingDispatcher struct {
	mu       sync.Mutex
	commands []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, command string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, command)
}

func (d *recordingDispatcher) received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// advanceUntil moves the mock clock forward in small steps until cond holds.
func advanceUntil(t *testing.T, mock *clock.Mock, step time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		mock.Add(step)
		time.Sleep(2 * time.Millisecond)
	}
}

// waitUntil polls cond in wall time without moving the mock clock.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func runPoller(p *Poller) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not stop after cancel")
	}
}

func TestPoller_DispatchesCommandsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newUpdateServer(
		respondCommand(NoUpdates),
		respondCommand("start_app"),
		respondStatus(http.StatusInternalServerError),
		respondCommand("read_log"),
	)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	defer c.Close()

	disp := &recordingDispatcher{}
	mock := clock.NewMock()
	interval := 10 * time.Second

	cancel, done := runPoller(NewPoller(c, disp, "abc123", interval, mock))
	advanceUntil(t, mock, interval/10, func() bool {
		return srv.hits() >= 5 && len(disp.received()) == 2
	})
	cancel()
	waitStopped(t, done)

	got := disp.received()
	if len(got) != 2 || got[0] != "start_app" || got[1] != "read_log" {
		t.Fatalf("expected [start_app read_log], got %v", got)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	for i, auth := range srv.auth {
		if auth != "Bearer abc123" {
			t.Errorf("request %d: expected bearer header, got %q", i, auth)
		}
	}
}

func TestPoller_SurvivesTransportFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newUpdateServer(
		respondCommand("start_app"),
		dropConnection,
		respondCommand("read_log"),
	)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	defer c.Close()

	disp := &recordingDispatcher{}
	mock := clock.NewMock()
	interval := 10 * time.Second

	cancel, done := runPoller(NewPoller(c, disp, "abc123", interval, mock))
	advanceUntil(t, mock, interval/10, func() bool {
		return len(disp.received()) == 2
	})
	cancel()
	waitStopped(t, done)

	got := disp.received()
	if got[0] != "start_app" || got[1] != "read_log" {
		t.Fatalf("expected [start_app read_log], got %v", got)
	}
}

// scriptedChecker returns scripted results and records the mock time of each call.
type scriptedChecker struct {
	clock *clock.Mock

	mu      sync.Mutex
	results []error
	calls   []time.Time
}

func (c *scriptedChecker) CheckUpdates(context.Context, string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.calls)
	c.calls = append(c.calls, c.clock.Now())
	if i < len(c.results) && c.results[i] != nil {
		return "", c.results[i]
	}
	return NoUpdates, nil
}

func (c *scriptedChecker) callTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.calls...)
}

func TestPoller_FixedIntervalRegardlessOfOutcome(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := clock.NewMock()
	start := mock.Now()
	checker := &scriptedChecker{
		clock: mock,
		results: []error{
			nil,
			fmt.Errorf("%w: connection refused", client.ErrTransport),
			&client.StatusError{StatusCode: 503, Body: "busy"},
			fmt.Errorf("%w: missing data field", client.ErrMalformedResponse),
			nil,
		},
	}
	disp := &recordingDispatcher{}
	interval := 10 * time.Second

	cancel, done := runPoller(NewPoller(checker, disp, "abc123", interval, mock))
	// The first poll runs before any timer, so it must land before the clock moves.
	waitUntil(t, func() bool { return len(checker.callTimes()) >= 1 })
	advanceUntil(t, mock, interval/10, func() bool {
		return len(checker.callTimes()) >= 6
	})
	cancel()
	waitStopped(t, done)

	calls := checker.callTimes()
	if !calls[0].Equal(start) {
		t.Errorf("expected first poll immediately, got %v after start", calls[0].Sub(start))
	}
	for i := 1; i < len(calls); i++ {
		gap := calls[i].Sub(calls[i-1])
		if gap < interval || gap >= 2*interval {
			t.Errorf("gap %d = %v, want within [%v, %v)", i, gap, interval, 2*interval)
		}
	}
	if len(disp.received()) != 0 {
		t.Errorf("expected no dispatches, got %v", disp.received())
	}
}

type staticChecker struct {
	command string
	err     error
}

func (c staticChecker) CheckUpdates(context.Context, string) (string, error) {
	return c.command, c.err
}

func TestPoll_NeverDispatchesSentinel(t *testing.T) {
	disp := &recordingDispatcher{}
	NewPoller(staticChecker{command: NoUpdates}, disp, "t", 0, nil).Poll(context.Background())
	NewPoller(staticChecker{command: ""}, disp, "t", 0, nil).Poll(context.Background())

	if got := disp.received(); len(got) != 0 {
		t.Errorf("expected no dispatches, got %v", got)
	}
}

func TestPoll_ErrorsAreSwallowed(t *testing.T) {
	disp := &recordingDispatcher{}
	for _, err := range []error{
		client.ErrTransport,
		client.ErrMalformedResponse,
		&client.StatusError{StatusCode: 500},
		errors.New("unexpected"),
	} {
		NewPoller(staticChecker{command: "start_app", err: err}, disp, "t", 0, nil).Poll(context.Background())
	}

	if got := disp.received(); len(got) != 0 {
		t.Errorf("expected no dispatches on errors, got %v", got)
	}
}

func TestPoll_UnknownCommandIsForwarded(t *testing.T) {
	disp := &recordingDispatcher{}
	NewPoller(staticChecker{command: "shutdown_everything"}, disp, "t", 0, nil).Poll(context.Background())

	if got := disp.received(); len(got) != 1 || got[0] != "shutdown_everything" {
		t.Errorf("expected label to reach the dispatcher, got %v", got)
	}
}

func TestPoller_Defaults(t *testing.T) {
	p := NewPoller(staticChecker{}, &recordingDispatcher{}, "t", 0, nil)
	if p.interval != DefaultPollInterval {
		t.Errorf("expected default interval %v, got %v", DefaultPollInterval, p.interval)
	}
	if p.clock == nil {
		t.Error("expected wall clock")
	}
}

func TestPoller_RunCancelledBeforeStart(t *testing.T) {
	mock := clock.NewMock()
	checker := &scriptedChecker{clock: mock}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPoller(checker, &recordingDispatcher{}, "t", time.Second, mock).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(checker.callTimes()); n != 0 {
		t.Errorf("expected no polls, got %d", n)
	}
}
