// Package simulator stands in for a database: executing a query returns the
// canned table associated with its title after a fixed latency.
package simulator

import (
	_ "embed"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/logging"
	"github.com/kyleking/query-runner/internal/types"
)

// DefaultLatency is the simulated round-trip time
const DefaultLatency = 800 * time.Millisecond

//go:embed canned.yaml
var cannedYAML []byte

// State of the simulator
type State string

const (
	StateIdle      State = "idle"
	StateExecuting State = "executing"
)

// Outcome is the result of one execution
type Outcome struct {
	Title      string
	Table      types.ResultTable
	Canned     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Elapsed    time.Duration
}

// CannedSet maps query titles to their precomputed results
type CannedSet struct {
	Fallback string                       `yaml:"fallback"`
	Results  map[string]types.ResultTable `yaml:"results"`
}

// Simulator produces canned results asynchronously. Executions are independent
// and cannot be cancelled once started.
type Simulator struct {
	results  map[string]types.ResultTable
	fallback types.ResultTable
	latency  time.Duration
	logger   *logging.Logger
	now      func() time.Time
	inFlight atomic.Int64
	wg       sync.WaitGroup
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLatency sets the simulated round-trip time
func WithLatency(d time.Duration) Option {
	return func(s *Simulator) {
		if d >= 0 {
			s.latency = d
		}
	}
}

// WithLogger attaches a logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// ParseCanned decodes a canned result document and validates every table
func ParseCanned(data []byte) (CannedSet, error) {
	var set CannedSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return CannedSet{}, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse canned results")
	}

	for title, table := range set.Results {
		if err := table.Validate(); err != nil {
			return CannedSet{}, errors.Wrapf(err, errors.ErrTypeConfig, "canned result %q is malformed", title)
		}
	}

	if set.Fallback != "" {
		if _, ok := set.Results[set.Fallback]; !ok {
			return CannedSet{}, errors.Newf(errors.ErrTypeConfig, "fallback result %q is not defined", set.Fallback)
		}
	}

	return set, nil
}

// DefaultCanned returns the embedded canned results
func DefaultCanned() (CannedSet, error) {
	return ParseCanned(cannedYAML)
}

// New builds a simulator over a canned set. Titles without a canned result
// get the fallback table, or an empty table when no fallback is named.
func New(set CannedSet, opts ...Option) *Simulator {
	s := &Simulator{
		results:  make(map[string]types.ResultTable, len(set.Results)),
		fallback: types.EmptyTable(),
		latency:  DefaultLatency,
		logger:   logging.NewNopLogger(),
		now:      time.Now,
	}

	for title, table := range set.Results {
		s.results[title] = table.Clone()
	}

	if table, ok := s.results[set.Fallback]; ok {
		s.fallback = table
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Default builds a simulator over the embedded canned results
func Default(opts ...Option) (*Simulator, error) {
	set, err := DefaultCanned()
	if err != nil {
		return nil, err
	}

	return New(set, opts...), nil
}

// Lookup returns the table for title and whether it was canned rather than the fallback
func (s *Simulator) Lookup(title string) (types.ResultTable, bool) {
	if table, ok := s.results[title]; ok {
		return table.Clone(), true
	}

	return s.fallback.Clone(), false
}

// Latency returns the configured round-trip time
func (s *Simulator) Latency() time.Duration {
	return s.latency
}

// Titles returns how many canned results are registered
func (s *Simulator) Titles() int {
	return len(s.results)
}

// State reports Executing while any execution is pending
func (s *Simulator) State() State {
	if s.inFlight.Load() > 0 {
		return StateExecuting
	}

	return StateIdle
}

// Pending returns the number of executions that have not completed
func (s *Simulator) Pending() int {
	return int(s.inFlight.Load())
}

// Execute starts a simulated run of the query titled title. The returned
// channel receives exactly one Outcome after the latency elapses.
func (s *Simulator) Execute(title string) <-chan Outcome {
	done := make(chan Outcome, 1)
	started := s.now()

	s.inFlight.Add(1)
	s.wg.Add(1)

	s.logger.WithField("title", title).Debug("execution started")

	time.AfterFunc(s.latency, func() {
		defer s.wg.Done()

		table, canned := s.Lookup(title)
		finished := s.now()

		outcome := Outcome{
			Title:      title,
			Table:      table,
			Canned:     canned,
			StartedAt:  started,
			FinishedAt: finished,
			Elapsed:    nonNegative(finished.Sub(started)),
		}

		s.inFlight.Add(-1)

		s.logger.WithFields(map[string]any{
			"title":      title,
			"rows":       table.RowCount(),
			"canned":     canned,
			"elapsed_ms": outcome.Elapsed.Milliseconds(),
		}).Debug("execution finished")

		done <- outcome
	})

	return done
}

// Drain blocks until every started execution has delivered its outcome
func (s *Simulator) Drain() {
	s.wg.Wait()
}

// String describes the simulator for diagnostics
func (s *Simulator) String() string {
	return fmt.Sprintf("simulator(latency=%s, canned=%d)", s.latency, len(s.results))
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}

	return d
}
