// Package ferry bridges a long-lived native application and a host
// runtime exchanging immutable HTTP messages. A worker owns the native
// request/response pair, translates messages in and out through the
// adapters and guarantees that nothing of one request is still visible
// when the next one attaches.
package ferry

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dchest/uniuri"
	"github.com/ferry-web/ferry/adapter"
	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/http"
	"github.com/ferry-web/ferry/message"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrAlreadyAttached = errors.New("a request is already attached")
	ErrNotAttached     = errors.New("no request is attached")
)

// Handler serves one request by reading the native request and filling
// the native response. Its error is the host's to interpret; the worker
// only guarantees that detaching still happens.
type Handler func(request *http.Request, response *http.Response) error

// Worker drives the per-request lifecycle over a long-lived native
// application: attach an inbound message, let the handler run, detach and
// wipe every trace of the request. Exactly one request is active at a
// time; concurrency is achieved by running independent workers, never by
// sharing one.
type Worker struct {
	cfg      *config.Config
	app      *App
	handler  Handler
	inbound  *adapter.Inbound
	outbound *adapter.Outbound
	request  *http.Request
	response *http.Response
	watchdog *Watchdog
	metrics  *metrics
	log      *slog.Logger
	reqlog   *slog.Logger
	id       string
	began    time.Time
	attached bool
	recycle  bool
}

// NewWorker builds an idle worker around the config and handler. Tune it
// with Log, Observe and Watch before the first attach.
func NewWorker(cfg *config.Config, handler Handler) (*Worker, error) {
	inbound, err := adapter.NewInbound(cfg)
	if err != nil {
		return nil, err
	}

	outbound, err := adapter.NewOutbound(cfg, nil)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &Worker{
		cfg:      cfg,
		app:      NewApp(cfg),
		handler:  handler,
		inbound:  inbound,
		outbound: outbound,
		request:  http.NewRequest(cfg),
		response: http.NewResponse(),
		watchdog: NewWatchdog(cfg, nil),
		log:      logger,
		reqlog:   logger,
	}, nil
}

// Log replaces the default discard logger. When the handler behind the
// logger exposes a Flush method and log flushing is configured, the
// worker drains it at every detach.
func (w *Worker) Log(logger *slog.Logger) *Worker {
	w.log, w.reqlog = logger, logger
	return w
}

// Observe registers the worker metrics on the registerer. Nil means the
// prometheus default registry.
func (w *Worker) Observe(reg prometheus.Registerer) *Worker {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	w.metrics = newMetrics(reg)
	return w
}

// Watch replaces the default process-memory watchdog.
func (w *Worker) Watch(watchdog *Watchdog) *Worker {
	w.watchdog = watchdog
	return w
}

// App exposes the component registry, usually to register components on.
func (w *Worker) App() *App {
	return w.app
}

// Request returns the native request the handler works against.
func (w *Worker) Request() *http.Request {
	return w.request
}

// Response returns the native response the handler works against.
func (w *Worker) Response() *http.Response {
	return w.response
}

// RequestID returns the id stamped at the last attach. Worker logs carry
// it as request_id.
func (w *Worker) RequestID() string {
	return w.id
}

// ShouldRecycle reports the watchdog verdict from the last detach. The
// worker never acts on the verdict itself: a recycling host finishes the
// cycle, replaces the worker and exits at its own pace.
func (w *Worker) ShouldRecycle() bool {
	return w.recycle
}

// Attach begins a cycle: stamps a fresh request id, translates the
// message into the native request and rebuilds the request-scoped
// components. A failed translation leaves the worker idle and clean.
func (w *Worker) Attach(msg *message.Request) error {
	if w.attached {
		return ErrAlreadyAttached
	}

	w.began = time.Now()
	w.id = uniuri.New()
	w.reqlog = w.log.With("request_id", w.id)
	w.response.Clear()

	if err := w.inbound.Attach(w.request, msg); err != nil {
		w.request.Reset()
		w.reqlog.Error("attach failed", "error", err)
		return err
	}

	w.app.rebuildScoped()
	w.attached = true
	w.reqlog.Debug("attached",
		"method", w.request.Method.String(),
		"target", w.request.Target,
	)

	return nil
}

// Handle runs the handler over the native pair and converts the outcome
// into an outbound message. A handler or conversion failure propagates to
// the caller; the worker stays attached either way, as the cycle still
// has to be detached.
func (w *Worker) Handle() (*message.Response, error) {
	if !w.attached {
		return nil, ErrNotAttached
	}

	if err := w.handler(w.request, w.response); err != nil {
		w.reqlog.Error("handler failed", "error", err)
		return nil, err
	}

	msg, err := w.outbound.Convert(w.response)
	if err != nil {
		w.reqlog.Error("response conversion failed", "error", err)
		return nil, err
	}

	w.reqlog.Info("handled", "code", int(msg.Code()))

	return msg, nil
}

// Detach ends the cycle no matter how handling went: an active session is
// destroyed and closed, per-request tables are cleared, the watchdog is
// consulted, metrics are observed and buffered logs are flushed. Every
// step runs even when an earlier one fails; the first failure is the one
// returned. Detaching an idle worker is a no-op.
func (w *Worker) Detach() error {
	if !w.attached {
		return nil
	}

	var firstErr error

	if sess, ok := w.app.session(); ok && sess.Active() {
		if err := sess.Destroy(); err != nil {
			firstErr = err
			w.reqlog.Error("session destroy failed", "error", err)
		}

		if err := sess.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}

			w.reqlog.Error("session close failed", "error", err)
		}
	}

	w.request.Reset()
	w.response.Clear()

	w.recycle = w.watchdog.ShouldRecycle()
	if w.recycle {
		w.reqlog.Warn("memory threshold reached, requesting recycle")
	}

	w.observe()
	w.reqlog.Debug("detached", "took", time.Since(w.began))

	// flushing goes last, so the detach records above leave with the rest
	if w.cfg.Worker.FlushLogs {
		if err := w.flushLogs(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w.attached = false
	w.reqlog = w.log

	return firstErr
}

// Serve runs one full attach-handle-detach cycle. Detach runs even when
// the handler or either adapter fails. A detach failure is reported only
// when the cycle itself succeeded; the converted response stays usable.
func (w *Worker) Serve(msg *message.Request) (resp *message.Response, err error) {
	if err = w.Attach(msg); err != nil {
		return nil, err
	}

	defer func() {
		if derr := w.Detach(); derr != nil && err == nil {
			err = derr
		}
	}()

	return w.Handle()
}

func (w *Worker) observe() {
	if w.metrics == nil {
		return
	}

	w.metrics.requests.Inc()
	w.metrics.duration.Observe(time.Since(w.began).Seconds())

	if used, err := w.watchdog.Usage(); err == nil {
		w.metrics.memory.Set(float64(used))
	}

	if w.recycle {
		w.metrics.recycles.Inc()
	}
}

// flushLogs drains the log handler when it buffers, in the manner of
// flushlog.Handler. A handler without a Flush method is unbuffered.
func (w *Worker) flushLogs() error {
	if flusher, ok := w.log.Handler().(interface{ Flush() error }); ok {
		return flusher.Flush()
	}

	return nil
}
