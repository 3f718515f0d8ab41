// Package control is the OSC control plane of the service: a UDP
// listener that accepts processing and introspection requests, runs
// each job on its own goroutine, and publishes results back to the
// controlling application.
//
// The listener never blocks on a job and never crashes on one: job
// errors are logged and published on the error topic, malformed
// messages are logged and dropped.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"

	"github.com/ravelab/ravemap/pkg/pipeline"
	"github.com/ravelab/ravemap/pkg/rave"
	"github.com/ravelab/ravemap/pkg/reduce"
)

// OSC topics. Process and ModelInfo are inbound; the rest are replies.
const (
	TopicProcess    = "/rave/process"
	TopicModelInfo  = "/rave/model/info"
	TopicDone       = "/rave/processing/done"
	TopicError      = "/rave/processing/error"
	TopicDimensions = "/rave/model/dimensions"
)

// Transport defaults.
const (
	DefaultBindAddr = "127.0.0.1"
	DefaultInPort   = 9001
	DefaultOutPort  = 9002
)

// DefaultMethod applies when a process request omits the method argument.
const DefaultMethod = reduce.PCA

// ErrServerClosed is returned by Serve after a call to Close.
var ErrServerClosed = errors.New("control: server closed")

// ErrServerRunning is returned when Serve is called on a server that is
// already serving.
var ErrServerRunning = errors.New("control: server already running")

// Config holds the OSC transport addresses. Zero fields take defaults.
type Config struct {
	// BindAddr is the listen interface. Default 127.0.0.1.
	BindAddr string

	// InPort receives control messages. Default 9001.
	InPort int

	// ReplyHost receives notifications. Default: BindAddr.
	ReplyHost string

	// OutPort receives notifications. Default 9002.
	OutPort int
}

func (c Config) withDefaults() Config {
	if c.BindAddr == "" {
		c.BindAddr = DefaultBindAddr
	}
	if c.InPort == 0 {
		c.InPort = DefaultInPort
	}
	if c.ReplyHost == "" {
		c.ReplyHost = c.BindAddr
	}
	if c.OutPort == 0 {
		c.OutPort = DefaultOutPort
	}
	return c
}

func (c Config) listenAddr() string {
	return net.JoinHostPort(c.BindAddr, strconv.Itoa(c.InPort))
}

// Runner executes processing jobs. *pipeline.Runner implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server dispatches OSC control messages to workers.
//
// Configure by setting fields before the first call to Serve or
// ListenAndServe; nil fields are populated with defaults at that point.
type Server struct {
	// Config holds the transport addresses.
	Config Config

	// Runner executes processing jobs. If nil, a fresh pipeline.Runner
	// logging to Log is used.
	Runner Runner

	// Probe reports a model's latent width. If nil, rave.ProbeDimensions.
	Probe func(path string) (int, error)

	// Notifier publishes results. If nil, an OSC client targeting
	// Config's reply address is used.
	Notifier Notifier

	// Log receives request and job diagnostics. If nil, slog.Default().
	Log *slog.Logger

	// KeepGoing applies per-file failure isolation to every dispatched
	// job.
	KeepGoing bool

	mu         sync.Mutex
	conn       net.PacketConn
	inShutdown atomic.Bool
	jobs       sync.WaitGroup
}

// ListenAndServe binds the configured UDP address and serves until ctx
// is cancelled or Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.Config.withDefaults().listenAddr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, conn)
}

// Serve reads OSC packets from conn until ctx is cancelled or Close is
// called, then returns ErrServerClosed. Dispatched jobs are not
// cancelled; use Wait to drain them.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		conn.Close()
		return ErrServerClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		conn.Close()
		return ErrServerRunning
	}
	s.conn = conn
	cfg := s.Config.withDefaults()
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.Runner == nil {
		s.Runner = &pipeline.Runner{Log: s.Log}
	}
	if s.Probe == nil {
		s.Probe = rave.ProbeDimensions
	}
	if s.Notifier == nil {
		s.Notifier = NewOSCNotifier(cfg.ReplyHost, cfg.OutPort)
	}
	s.mu.Unlock()

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler(TopicProcess, s.handleProcess); err != nil {
		return err
	}
	if err := d.AddMsgHandler(TopicModelInfo, s.handleModelInfo); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.Log.Info("listening", "addr", conn.LocalAddr().String(),
		"reply", net.JoinHostPort(cfg.ReplyHost, strconv.Itoa(cfg.OutPort)))

	err := (&osc.Server{Dispatcher: d}).Serve(conn)
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	if s.inShutdown.Load() {
		return ErrServerClosed
	}
	return err
}

// Close stops the listener. In-flight jobs keep running; Wait blocks
// until they finish. Safe to call multiple times.
func (s *Server) Close() error {
	s.inShutdown.Store(true)
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Wait blocks until every dispatched job has finished.
func (s *Server) Wait() {
	s.jobs.Wait()
}

// handleProcess validates a /rave/process request and dispatches the
// job. It returns before any audio is touched.
func (s *Server) handleProcess(msg *osc.Message) {
	req, err := parseProcessArgs(msg.Arguments)
	if err != nil {
		s.Log.Warn("dropping malformed process request", "topic", TopicProcess, "error", err)
		return
	}
	req.KeepGoing = s.KeepGoing

	jobID := uuid.NewString()
	log := s.Log.With("job", jobID)
	log.Info("job accepted", "dir", req.AudioDir, "model", req.ModelPath,
		"method", req.Method, "skip_reduction", req.SkipReduction)

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		// Jobs deliberately outlive the listener's context; shutdown
		// drains them through Wait instead of cancelling.
		res, err := s.Runner.Run(context.Background(), req)
		if err != nil {
			log.Error("job failed", "error", err)
			if nerr := s.Notifier.Failed(err.Error()); nerr != nil {
				log.Error("failure notification not delivered", "error", nerr)
			}
			return
		}
		log.Info("job finished", "artifact", res.OutputPath,
			"files", len(res.Files), "failed", len(res.Failed))
		if nerr := s.Notifier.Done(res.OutputPath); nerr != nil {
			log.Error("done notification not delivered", "error", nerr)
		}
	}()
}

// handleModelInfo probes a model's latent width on a worker goroutine
// and always replies, using -1 when the probe fails.
func (s *Server) handleModelInfo(msg *osc.Message) {
	path, err := parseModelInfoArgs(msg.Arguments)
	if err != nil {
		s.Log.Warn("dropping malformed model info request", "topic", TopicModelInfo, "error", err)
		return
	}
	s.Log.Info("model info requested", "model", path)

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		width, err := s.Probe(path)
		if err != nil {
			s.Log.Error("model probe failed", "model", path, "error", err)
			width = -1
		} else {
			s.Log.Info("model probed", "model", path, "width", width)
		}
		if nerr := s.Notifier.Dimensions(width); nerr != nil {
			s.Log.Error("dimensions notification not delivered", "error", nerr)
		}
	}()
}
