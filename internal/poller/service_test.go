package poller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/internal/pipeline"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/metrics"
)

type fakeLock struct {
	acquired   bool
	releaseErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return f.releaseErr
}

type testJob struct {
	name    string
	results []func() (pipeline.Summary, error)
	runs    int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) RunCycle(context.Context) (pipeline.Summary, error) {
	i := j.runs
	j.runs++
	if i < len(j.results) {
		return j.results[i]()
	}
	return pipeline.Summary{}, nil
}

type alertRecorder struct {
	causes []error
}

func (a *alertRecorder) AlertOperator(_ context.Context, _ string, cause error) {
	a.causes = append(a.causes, cause)
}

func newTestService(t *testing.T, job Job, lock Lock, reg prometheus.Registerer, alerts Alerter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Job:      job,
		Lock:     lock,
		Metrics:  metrics.NewPollMetrics(reg),
		Alerter:  alerts,
		Interval: 30 * time.Second,
		Cooldown: 2 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRecoversPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	alerts := &alertRecorder{}
	job := &testJob{name: "site", results: []func() (pipeline.Summary, error){
		func() (pipeline.Summary, error) { panic("nil map") },
	}}
	svc := newTestService(t, job, lock, reg, alerts)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "nil map")
	assert.False(t, lock.acquired)
	assert.Len(t, alerts.causes, 1)

	count, err := testutil.GatherAndCount(reg, "poll_cycle_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunOnceSkipsWhenLockedElsewhere(t *testing.T) {
	lock := &fakeLock{acquired: true}
	job := &testJob{name: "app"}
	svc := newTestService(t, job, lock, nil, nil)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunOnceCombinesReleaseError(t *testing.T) {
	lock := &fakeLock{releaseErr: errors.New("unlock failed")}
	job := &testJob{name: "site", results: []func() (pipeline.Summary, error){
		func() (pipeline.Summary, error) { return nil, errors.New("list failed") },
	}}
	svc := newTestService(t, job, lock, nil, nil)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list failed")
	assert.Contains(t, err.Error(), "unlock failed")
}

func TestRunUsesCooldownAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &testJob{name: "site", results: []func() (pipeline.Summary, error){
		func() (pipeline.Summary, error) { return pipeline.Summary{pipeline.OutcomeWritten: 2}, nil },
		func() (pipeline.Summary, error) { return nil, errors.New("sheets down") },
		func() (pipeline.Summary, error) { return pipeline.Summary{}, nil },
	}}
	svc := newTestService(t, job, &fakeLock{}, nil, nil)

	var waits []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, job.runs)
	assert.Equal(t, []time.Duration{30 * time.Second, 2 * time.Minute, 30 * time.Second}, waits)
}

func TestNewServiceDefaults(t *testing.T) {
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Job: &testJob{name: "site"}, Lock: &fakeLock{}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, svc.interval)
	assert.Equal(t, defaultCooldown, svc.cooldown)
	assert.Equal(t, "site", svc.Name())

	_, err = NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	assert.Error(t, err)
}

func TestFileLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.lock")
	first, err := NewFileLock(path)
	require.NoError(t, err)
	second, err := NewFileLock(path)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(context.Background()))
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(context.Background()))
}

type blockingRunner struct {
	err error
}

func (b blockingRunner) Run(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestGroupStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGroup(blockingRunner{}, blockingRunner{err: boom}, nil)
	assert.Equal(t, 2, g.Len())
	assert.ErrorIs(t, g.Run(context.Background()), boom)
}

func TestGroupTreatsCancelAsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, NewGroup(blockingRunner{}).Run(ctx))
}
