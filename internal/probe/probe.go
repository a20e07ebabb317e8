// Package probe verifies a running bridge over its HTTP API: the snapshot,
// the per-metric records and the sensor view must agree with each other.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
	"github.com/okian/ourabridge/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Check is one verification step.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report collects every check of one run.
type Report struct {
	BaseURL string
	CycleID string
	Stale   bool
	Records int
	Checks  []Check
}

// Passed reports whether every check succeeded.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, ok bool, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.http.SetTimeout(d)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// Prober talks to one bridge.
type Prober struct {
	baseURL string
	http    *resty.Client
	logger  logger.Logger
}

// New creates a Prober for the bridge at baseURL.
func New(baseURL string, opts ...Option) *Prober {
	p := &Prober{
		baseURL: baseURL,
		http:    resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("probe")
	return p
}

type snapshotBody struct {
	CycleID  string                     `json:"cycle_id"`
	Stale    bool                       `json:"stale"`
	Records  map[string]json.RawMessage `json:"records"`
	Outcomes map[string]model.Outcome   `json:"outcomes"`
}

type recordBody struct {
	Metric  string `json:"metric"`
	CycleID string `json:"cycle_id"`
}

type sensorsBody struct {
	Sensors []sensor.State `json:"sensors"`
}

// Run performs every check. An error is returned only when the bridge
// cannot be checked at all.
func (p *Prober) Run(ctx context.Context) (Report, error) {
	report := Report{BaseURL: p.baseURL}

	resp, err := p.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	report.add("healthz", resp.StatusCode() == http.StatusOK, "status %d", resp.StatusCode())

	var snap snapshotBody
	resp, err = p.http.R().SetContext(ctx).Get("/snapshot")
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if resp.StatusCode() == http.StatusServiceUnavailable {
		return report, ErrNoSnapshot
	}
	if resp.StatusCode() != http.StatusOK {
		report.add("snapshot", false, "status %d", resp.StatusCode())
		return report, nil
	}
	if err := json.Unmarshal(resp.Body(), &snap); err != nil {
		report.add("snapshot", false, "decode: %v", err)
		return report, nil
	}
	report.CycleID = snap.CycleID
	report.Stale = snap.Stale
	report.Records = len(snap.Records)

	unknown := 0
	for name := range snap.Records {
		if _, ok := model.ParseKind(name); !ok {
			unknown++
		}
	}
	report.add("snapshot", unknown == 0, "%d records, %d unknown keys", len(snap.Records), unknown)

	for _, kind := range model.Kinds() {
		p.checkRecord(ctx, &report, snap, kind)
	}
	p.checkSensors(ctx, &report, snap)

	p.logger.Info(ctx, "probe complete",
		logger.String("cycle_id", report.CycleID),
		logger.Bool("passed", report.Passed()),
		logger.Int("checks", len(report.Checks)),
	)
	return report, nil
}

func (p *Prober) checkRecord(ctx context.Context, report *Report, snap snapshotBody, kind model.Kind) {
	name := "record " + kind.String()
	resp, err := p.http.R().SetContext(ctx).Get("/records/" + kind.String())
	if err != nil {
		report.add(name, false, "%v", err)
		return
	}

	_, present := snap.Records[kind.String()]
	switch {
	case present && resp.StatusCode() == http.StatusOK:
		var rec recordBody
		if err := json.Unmarshal(resp.Body(), &rec); err != nil {
			report.add(name, false, "decode: %v", err)
			return
		}
		// A cycle may complete between the two reads.
		report.add(name, rec.Metric == kind.String(), "present, cycle %s", rec.CycleID)
	case !present && resp.StatusCode() == http.StatusNotFound:
		report.add(name, true, "absent (%s)", snap.Outcomes[kind.String()].Status)
	default:
		report.add(name, false, "in snapshot=%t but status %d", present, resp.StatusCode())
	}
}

func (p *Prober) checkSensors(ctx context.Context, report *Report, snap snapshotBody) {
	var body sensorsBody
	resp, err := p.http.R().SetContext(ctx).Get("/sensors")
	if err != nil {
		report.add("sensors", false, "%v", err)
		return
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		report.add("sensors", false, "decode: %v", err)
		return
	}

	mismatched := 0
	for _, st := range body.Sensors {
		_, present := snap.Records[st.Metric]
		if st.Available != present {
			mismatched++
		}
	}
	report.add("sensors", mismatched == 0 && len(body.Sensors) == len(sensor.All()),
		"%d sensors, %d availability mismatches", len(body.Sensors), mismatched)
}
