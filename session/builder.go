package session

import (
	"io"
	"log"
	"os"

	"github.com/rs/xid"

	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
)

// Builder can build sessions.
type Builder struct {
	cfg          config.Config
	logger       *log.Logger
	eventLogger  *log.Logger
	recorder     datarecording.DataRecorder
	monitor      *monitoring.Monitor
	tracers      []any
	resetOnStart bool
}

// MakeBuilder returns a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:          config.Default(),
		resetOnStart: true,
	}
}

// WithConfig sets the bridge window, timing, and addressing of the session.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger of the session and its bridge.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithEventLogger prints every engine event to logger.
func (b Builder) WithEventLogger(logger *log.Logger) Builder {
	b.eventLogger = logger
	return b
}

// WithRecorder stores every bridge transaction into recorder.
func (b Builder) WithRecorder(recorder datarecording.DataRecorder) Builder {
	b.recorder = recorder
	return b
}

// WithMonitor registers the session with a monitoring server.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithTracer attaches a tracer to the bridge. See tracing.CollectTrace.
func (b Builder) WithTracer(tracer any) Builder {
	b.tracers = append(b.tracers, tracer)
	return b
}

// WithoutResetOnStart keeps Run from resetting the RTL simulator first. The
// synchronizer then stays idle until a script resets the simulator.
func (b Builder) WithoutResetOnStart() Builder {
	b.resetOnStart = false
	return b
}

// Build creates a session whose bridge talks over conn.
func (b Builder) Build(name string, conn io.ReadWriteCloser) *Session {
	if err := b.cfg.Validate(); err != nil {
		log.Panic(err)
	}

	s := &Session{
		id:           xid.New().String(),
		name:         name,
		engine:       timing.NewSerialEngine(),
		pin:          NewIRQPin(),
		logger:       b.logger,
		timeout:      b.cfg.Timeout,
		monitor:      b.monitor,
		resetOnStart: b.resetOnStart,
	}

	if s.logger == nil {
		s.logger = log.New(os.Stderr, name+": ", log.LstdFlags)
	}

	bridgeBuilder := rtl.MakeBuilder().
		WithEngine(s.engine).
		WithBase(b.cfg.Base).
		WithSpan(b.cfg.Span).
		WithSyncInterval(b.cfg.SyncInterval.Seconds()).
		WithTimeout(b.cfg.Timeout).
		WithInterruptLine(s.pin).
		WithLogger(s.logger).
		WithShutdownHandler(s.onShutdown)
	if b.cfg.RelativeAddressing {
		bridgeBuilder = bridgeBuilder.WithRelativeAddressing()
	}

	s.bridge = bridgeBuilder.Build(name+".Bridge", conn)
	s.engine.AcceptHook(&interruptServicer{bridge: s.bridge})

	if b.eventLogger != nil {
		s.engine.AcceptHook(timing.NewEventLogger(b.eventLogger))
	}

	if b.recorder != nil {
		s.dbTracer = tracing.NewDBTracer(b.recorder)
		tracing.CollectTrace(s.bridge, s.dbTracer)
	}

	for _, t := range b.tracers {
		tracing.CollectTrace(s.bridge, t)
	}

	if b.monitor != nil {
		b.monitor.RegisterEngine(s.engine)
		b.monitor.RegisterComponent(s.bridge)
		b.monitor.RegisterComponent(s.bridge.Synchronizer())
	}

	return s
}
