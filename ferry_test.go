package ferry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"slices"
	"testing"
	"time"

	"github.com/ferry-web/ferry/adapter"
	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/flushlog"
	"github.com/ferry-web/ferry/http"
	"github.com/ferry-web/ferry/http/method"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
	"github.com/ferry-web/ferry/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Cookies.Validation = false

	return cfg
}

// greetWorker builds a worker whose handler greets the "who" query
// parameter.
func greetWorker(t *testing.T, cfg *config.Config) *Worker {
	t.Helper()

	worker, err := NewWorker(cfg, func(request *http.Request, response *http.Response) error {
		response.Code(status.OK).String("hello " + request.Query.Value("who"))
		return nil
	})
	require.NoError(t, err)

	return worker
}

func inbound(target string) *message.Request {
	return message.NewRequest(
		method.GET, target, proto.HTTP11,
		kv.New().Add("Host", "ferry.example"),
		nil,
		message.Origin{
			Remote: netip.MustParseAddrPort("203.0.113.9:51000"),
			Time:   time.Now(),
		},
		nil,
	)
}

func bodyOf(t *testing.T, resp *message.Response) string {
	t.Helper()

	raw, err := io.ReadAll(resp.Body())
	require.NoError(t, err)

	return string(raw)
}

type fakeSession struct {
	active     bool
	destroyed  int
	closed     int
	destroyErr error
	closeErr   error
}

func (s *fakeSession) Active() bool {
	return s.active
}

func (s *fakeSession) Destroy() error {
	s.destroyed++
	s.active = false
	return s.destroyErr
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

type logEntry struct {
	level slog.Level
	msg   string
	attrs map[string]string
}

// logSink records every handled record. Derivations share the entries
// slice through the pointer, mirroring how flushlog derivations share
// their buffer.
type logSink struct {
	entries *[]logEntry
	with    []slog.Attr
}

func newLogSink() *logSink {
	return &logSink{entries: new([]logEntry)}
}

func (s *logSink) Enabled(context.Context, slog.Level) bool {
	return true
}

func (s *logSink) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string)
	for _, attr := range s.with {
		attrs[attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})

	*s.entries = append(*s.entries, logEntry{record.Level, record.Message, attrs})
	return nil
}

func (s *logSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logSink{entries: s.entries, with: append(slices.Clip(s.with), attrs...)}
}

func (s *logSink) WithGroup(string) slog.Handler {
	return s
}

func TestWorkerScenario(t *testing.T) {
	worker := greetWorker(t, testConfig())

	resp, err := worker.Serve(inbound("/greet?who=alice"))
	require.NoError(t, err)
	require.Equal(t, status.OK, resp.Code())
	require.Equal(t, "hello alice", bodyOf(t, resp))

	// nothing of the first cycle may be visible afterwards
	require.False(t, worker.Request().Attached())
	require.True(t, worker.Request().Query.Empty())
	require.True(t, worker.Request().Headers.Empty())

	resp, err = worker.Serve(inbound("/greet?who=bob"))
	require.NoError(t, err)
	require.Equal(t, "hello bob", bodyOf(t, resp))
}

func TestWorkerComponentScopes(t *testing.T) {
	worker := greetWorker(t, testConfig())

	scoped, persistent := 0, 0
	worker.App().
		Register("urlManager", func() any { scoped++; return scoped }).
		Register("cache", func() any { persistent++; return persistent })

	for range 2 {
		_, err := worker.Serve(inbound("/greet?who=eve"))
		require.NoError(t, err)
	}

	require.Equal(t, 3, worker.App().Component("urlManager"), "rebuilt at each attach")
	require.Equal(t, 1, worker.App().Component("cache"), "survives every cycle")
}

func TestWorkerStateMachine(t *testing.T) {
	worker := greetWorker(t, testConfig())

	_, err := worker.Handle()
	require.ErrorIs(t, err, ErrNotAttached)

	require.NoError(t, worker.Attach(inbound("/greet?who=alice")))
	require.ErrorIs(t, worker.Attach(inbound("/greet?who=bob")), ErrAlreadyAttached)

	resp, err := worker.Handle()
	require.NoError(t, err)
	require.Equal(t, "hello alice", bodyOf(t, resp))

	require.NoError(t, worker.Detach())
	require.NoError(t, worker.Detach(), "detaching an idle worker is a no-op")

	require.NoError(t, worker.Attach(inbound("/greet?who=bob")))
	require.NoError(t, worker.Detach())
}

func TestWorkerSurvivesHandlerFailure(t *testing.T) {
	boom := errors.New("boom")

	worker, err := NewWorker(testConfig(), func(request *http.Request, response *http.Response) error {
		switch request.Path {
		case "/fail":
			return boom
		case "/bad-stream":
			response.Stream(nil, 0, 9)
			return nil
		default:
			response.String("fine")
			return nil
		}
	})
	require.NoError(t, err)

	resp, err := worker.Serve(inbound("/fail?attempt=1"))
	require.ErrorIs(t, err, boom)
	require.Nil(t, resp)

	// the failed cycle still detached
	require.False(t, worker.Request().Attached())
	require.True(t, worker.Request().Query.Empty())

	resp, err = worker.Serve(inbound("/bad-stream"))
	var structural *adapter.StructuralError
	require.ErrorAs(t, err, &structural)
	require.Nil(t, resp)

	resp, err = worker.Serve(inbound("/work"))
	require.NoError(t, err)
	require.Equal(t, "fine", bodyOf(t, resp))
}

func TestWorkerAttachFailure(t *testing.T) {
	// validation stays on and no key is configured, so a request carrying
	// cookies cannot be attached
	worker, err := NewWorker(config.Default(), func(*http.Request, *http.Response) error {
		return nil
	})
	require.NoError(t, err)

	withCookie := message.NewRequest(
		method.GET, "/", proto.HTTP11,
		kv.New().Add("Cookie", "sid=abc"),
		nil, message.Origin{}, nil,
	)

	var confErr *adapter.ConfigurationError
	require.ErrorAs(t, worker.Attach(withCookie), &confErr)

	// the worker stays idle and holds nothing of the failed attach
	require.False(t, worker.Request().Attached())
	require.True(t, worker.Request().Headers.Empty())
	_, err = worker.Handle()
	require.ErrorIs(t, err, ErrNotAttached)

	require.NoError(t, worker.Attach(inbound("/fresh")))
	require.NoError(t, worker.Detach())
}

func TestWorkerSession(t *testing.T) {
	t.Run("active session is destroyed and closed", func(t *testing.T) {
		worker := greetWorker(t, testConfig())
		sess := &fakeSession{active: true}
		worker.App().Register("session", func() any { return sess })

		_, err := worker.Serve(inbound("/greet?who=alice"))
		require.NoError(t, err)
		require.Equal(t, 1, sess.destroyed)
		require.Equal(t, 1, sess.closed)
	})

	t.Run("inactive session is left alone", func(t *testing.T) {
		worker := greetWorker(t, testConfig())
		sess := &fakeSession{active: false}
		worker.App().Register("session", func() any { return sess })

		_, err := worker.Serve(inbound("/greet?who=alice"))
		require.NoError(t, err)
		require.Zero(t, sess.destroyed)
		require.Zero(t, sess.closed)
	})

	t.Run("session failure surfaces from detach", func(t *testing.T) {
		worker := greetWorker(t, testConfig())
		sess := &fakeSession{active: true, destroyErr: errors.New("session store gone")}
		worker.App().Register("session", func() any { return sess })

		resp, err := worker.Serve(inbound("/greet?who=alice"))
		require.ErrorContains(t, err, "session store gone")
		require.NotNil(t, resp, "the response itself was fine")
		require.Equal(t, 1, sess.closed, "close still ran")
	})
}

func TestWorkerUploadRegistryFlag(t *testing.T) {
	withUpload := func(field string) *message.Request {
		return message.NewRequest(
			method.POST, "/submit", proto.HTTP11,
			kv.New().Add("Host", "ferry.example"),
			nil, message.Origin{},
			[]message.UploadedFile{
				message.NewUploadedFile(field, "f.txt", "text/plain", 9, message.UploadOK, nil),
			},
		)
	}

	t.Run("registry is cleared at detach", func(t *testing.T) {
		worker := greetWorker(t, testConfig())

		_, err := worker.Serve(withUpload("doc"))
		require.NoError(t, err)
		require.Zero(t, worker.Request().Uploads.Len())
	})

	t.Run("disabled reset leaks uploads across requests", func(t *testing.T) {
		cfg := testConfig()
		cfg.Body.Uploads.Reset = false

		worker := greetWorker(t, cfg)

		_, err := worker.Serve(withUpload("doc"))
		require.NoError(t, err)
		require.Equal(t, 1, worker.Request().Uploads.Len())

		_, err = worker.Serve(withUpload("avatar"))
		require.NoError(t, err)
		require.Equal(t, 2, worker.Request().Uploads.Len(), "the first upload bled through")
	})
}

func TestWorkerRequestID(t *testing.T) {
	worker := greetWorker(t, testConfig())
	require.Empty(t, worker.RequestID())

	_, err := worker.Serve(inbound("/greet?who=alice"))
	require.NoError(t, err)
	first := worker.RequestID()
	require.Len(t, first, 16)

	_, err = worker.Serve(inbound("/greet?who=bob"))
	require.NoError(t, err)
	require.NotEqual(t, first, worker.RequestID())
}

func TestWorkerFlushesLogs(t *testing.T) {
	t.Run("buffered records leave at detach", func(t *testing.T) {
		sink := newLogSink()
		worker := greetWorker(t, testConfig()).Log(slog.New(flushlog.New(sink, 0)))

		_, err := worker.Serve(inbound("/greet?who=alice"))
		require.NoError(t, err)

		entries := *sink.entries
		require.NotEmpty(t, entries)

		idx := slices.IndexFunc(entries, func(e logEntry) bool { return e.msg == "handled" })
		require.GreaterOrEqual(t, idx, 0)
		require.Equal(t, slog.LevelInfo, entries[idx].level)
		require.Equal(t, worker.RequestID(), entries[idx].attrs["request_id"])
	})

	t.Run("flushing disabled keeps buffering", func(t *testing.T) {
		cfg := testConfig()
		cfg.Worker.FlushLogs = false

		sink := newLogSink()
		worker := greetWorker(t, cfg).Log(slog.New(flushlog.New(sink, 0)))

		_, err := worker.Serve(inbound("/greet?who=alice"))
		require.NoError(t, err)
		require.Empty(t, *sink.entries)
	})
}

func TestWorkerMetrics(t *testing.T) {
	metricValue := func(t *testing.T, reg *prometheus.Registry, name string) float64 {
		t.Helper()

		families, err := reg.Gather()
		require.NoError(t, err)

		for _, family := range families {
			if family.GetName() != name {
				continue
			}

			metric := family.GetMetric()[0]
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}

			return metric.GetGauge().GetValue()
		}

		t.Fatalf("metric %s was never registered", name)
		return 0
	}

	durationCount := func(t *testing.T, reg *prometheus.Registry) uint64 {
		t.Helper()

		families, err := reg.Gather()
		require.NoError(t, err)

		for _, family := range families {
			if family.GetName() == "ferry_worker_request_duration_seconds" {
				return family.GetMetric()[0].GetHistogram().GetSampleCount()
			}
		}

		t.Fatal("duration histogram was never registered")
		return 0
	}

	cfg := testConfig()
	cfg.Worker.MemoryLimit = 1000

	used := uint64(100)
	reg := prometheus.NewRegistry()
	worker := greetWorker(t, cfg).
		Observe(reg).
		Watch(NewWatchdog(cfg, func() (uint64, error) { return used, nil }))

	for range 2 {
		_, err := worker.Serve(inbound("/greet?who=alice"))
		require.NoError(t, err)
	}

	require.EqualValues(t, 2, metricValue(t, reg, "ferry_worker_requests_total"))
	require.EqualValues(t, 2, durationCount(t, reg))
	require.EqualValues(t, 100, metricValue(t, reg, "ferry_worker_memory_usage_bytes"))
	require.EqualValues(t, 0, metricValue(t, reg, "ferry_worker_recycle_signals_total"))
	require.False(t, worker.ShouldRecycle())

	// memory pressure crosses the threshold
	used = 950
	_, err := worker.Serve(inbound("/greet?who=alice"))
	require.NoError(t, err)

	require.True(t, worker.ShouldRecycle())
	require.EqualValues(t, 1, metricValue(t, reg, "ferry_worker_recycle_signals_total"))
	require.EqualValues(t, 950, metricValue(t, reg, "ferry_worker_memory_usage_bytes"))

	// the verdict is advisory, serving goes on
	_, err = worker.Serve(inbound("/greet?who=bob"))
	require.NoError(t, err)
	require.EqualValues(t, 4, metricValue(t, reg, "ferry_worker_requests_total"))
	require.EqualValues(t, 2, metricValue(t, reg, "ferry_worker_recycle_signals_total"))
}
