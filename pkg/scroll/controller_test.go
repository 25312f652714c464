package scroll_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
	"github.com/zfogg/sidechain/reader/pkg/visibility/visibilitytest"
)

// stub returns results in order and counts calls
type stub struct {
	calls   atomic.Int32
	results []error
	more    []bool
}

func (s *stub) load(ctx context.Context) (bool, error) {
	n := int(s.calls.Add(1)) - 1
	var err error
	if n < len(s.results) {
		err = s.results[n]
	}
	if err != nil {
		return false, err
	}
	if n < len(s.more) {
		return s.more[n], nil
	}
	return true, nil
}

func box(y int) *visibility.Box {
	return visibility.NewBox(visibility.Rect{Y: y, W: 80, H: 3})
}

func setup(t *testing.T, load scroll.LoadFunc, opts scroll.Options) (*scroll.Controller, *visibilitytest.Platform, *visibility.Detector) {
	t.Helper()
	p := visibilitytest.New()
	d := visibility.NewDetector(p)
	c := scroll.New(context.Background(), d, load, opts)
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	return c, p, d
}

func TestNewControllerState(t *testing.T) {
	c, _, _ := setup(t, (&stub{}).load, scroll.DefaultOptions())

	st := c.State()
	assert.False(t, st.Loading)
	assert.True(t, st.HasMore)
	assert.Zero(t, st.Pages)
	assert.NoError(t, st.Err)
}

func TestAttachUsesOptions(t *testing.T) {
	c, p, _ := setup(t, (&stub{}).load, scroll.DefaultOptions())
	c.Attach(box(0))

	margin, threshold := p.LastOptions()
	assert.Equal(t, "100px 100px 100px 100px", margin.String())
	assert.Equal(t, 0.8, threshold)
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	c, p, _ := setup(t, (&stub{}).load, scroll.Options{})
	c.Attach(box(0))

	margin, threshold := p.LastOptions()
	assert.Equal(t, "100px 100px 100px 100px", margin.String())
	assert.Equal(t, scroll.DefaultThreshold, threshold)
}

func TestAtMostOneLoadInFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (bool, error) {
		calls.Add(1)
		<-release
		return true, nil
	}

	reg := prometheus.NewRegistry()
	opts := scroll.DefaultOptions()
	opts.Metrics = metrics.New(reg)
	c, p, _ := setup(t, load, opts)

	sentinel := box(10)
	c.Attach(sentinel)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Emit(sentinel, true)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, c.Loading())
	assert.False(t, c.Retry(), "retry is guarded too")

	close(release)
	c.Wait()

	assert.False(t, c.Loading())
	assert.Equal(t, 1, c.State().Pages)
	assert.Equal(t, 10.0, skipped(t, reg, "in_flight"))
}

// skipped reads sidechain_reader_skipped_triggers_total for reason
func skipped(t *testing.T, reg *prometheus.Registry, reason string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "sidechain_reader_skipped_triggers_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestExhaustionScenario(t *testing.T) {
	s := &stub{more: []bool{true, true, true, false}}
	reg := prometheus.NewRegistry()
	opts := scroll.DefaultOptions()
	opts.Metrics = metrics.New(reg)
	c, p, _ := setup(t, s.load, opts)

	sentinel := box(40)
	c.Attach(sentinel)

	for i := 0; i < 4; i++ {
		require.Equal(t, 1, p.Emit(sentinel, true))
		c.Wait()
	}

	assert.Equal(t, int32(4), s.calls.Load())
	assert.False(t, c.HasMore())
	assert.False(t, c.Loading())
	assert.Equal(t, 4, c.State().Pages)

	p.Emit(sentinel, true)
	p.Emit(sentinel, false)
	p.Emit(sentinel, true)
	assert.False(t, c.Retry())
	c.Wait()

	assert.Equal(t, int32(4), s.calls.Load(), "no load after exhaustion")
	assert.Equal(t, 3.0, skipped(t, reg, "exhausted"))
}

func TestFailedLoadCanRetry(t *testing.T) {
	boom := errors.New("backend down")
	s := &stub{results: []error{nil, boom}}

	var mu sync.Mutex
	var reported []error
	opts := scroll.DefaultOptions()
	opts.OnError = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}
	c, p, _ := setup(t, s.load, opts)

	sentinel := box(5)
	c.Attach(sentinel)

	p.Emit(sentinel, true)
	c.Wait()
	p.Emit(sentinel, true)
	c.Wait()

	st := c.State()
	assert.False(t, st.Loading)
	assert.True(t, st.HasMore, "failure keeps HasMore")
	assert.Equal(t, 1, st.Pages)
	require.Error(t, st.Err)
	assert.ErrorIs(t, st.Err, boom)
	assert.True(t, clierrors.IsType(st.Err, clierrors.ErrorTypeFetchFailure))

	mu.Lock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
	mu.Unlock()

	p.Emit(sentinel, true)
	c.Wait()

	assert.Equal(t, int32(3), s.calls.Load())
	assert.NoError(t, c.State().Err)
	assert.Equal(t, 2, c.State().Pages)
}

func TestExplicitRetry(t *testing.T) {
	s := &stub{results: []error{errors.New("timeout")}}
	c, _, _ := setup(t, s.load, scroll.DefaultOptions())

	require.True(t, c.Retry())
	c.Wait()
	require.Error(t, c.State().Err)

	require.True(t, c.Retry())
	c.Wait()
	assert.NoError(t, c.State().Err)
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestPanickingLoadClearsLoading(t *testing.T) {
	c, _, _ := setup(t, func(ctx context.Context) (bool, error) {
		panic("nil page")
	}, scroll.DefaultOptions())

	c.Retry()
	c.Wait()

	assert.False(t, c.Loading())
	assert.Error(t, c.State().Err)
}

func TestNilLoadFailsLocally(t *testing.T) {
	var reported error
	opts := scroll.DefaultOptions()
	opts.OnError = func(err error) { reported = err }
	c, _, _ := setup(t, nil, opts)

	require.NotPanics(t, func() { c.Retry() })
	c.Wait()

	st := c.State()
	assert.False(t, st.Loading)
	assert.True(t, st.HasMore)
	assert.True(t, clierrors.IsType(st.Err, clierrors.ErrorTypeFetchFailure))
	assert.Equal(t, st.Err, reported)

	s := &stub{}
	c.SetLoadFunc(s.load)
	assert.True(t, c.Retry())
	c.Wait()
	assert.EqualValues(t, 1, s.calls.Load())
	assert.NoError(t, c.State().Err)
}

func TestReattachKeepsOneWatcher(t *testing.T) {
	c, p, d := setup(t, (&stub{}).load, scroll.DefaultOptions())

	a, b := box(0), box(3)

	c.Attach(a)
	c.Attach(b)
	c.Attach(b)
	assert.Equal(t, 1, p.Active())
	assert.Equal(t, 2, p.Subscribes(), "attaching the same element again does not resubscribe")

	c.Attach(nil)
	assert.Equal(t, 0, p.Active())

	c.Attach(a)
	assert.Equal(t, 1, p.Active())
	assert.Equal(t, 1, p.Subscribes()-p.Unsubscribes())
	assert.True(t, p.Watching(a))
	assert.False(t, p.Watching(b))
	assert.Equal(t, 1, d.Active())
}

func TestConcurrentReattachKeepsOneWatcher(t *testing.T) {
	c, p, _ := setup(t, (&stub{}).load, scroll.DefaultOptions())

	boxes := make([]*visibility.Box, 16)
	for i := range boxes {
		boxes[i] = box(i * 3)
	}

	var wg sync.WaitGroup
	for _, b := range boxes {
		wg.Add(1)
		go func(b *visibility.Box) {
			defer wg.Done()
			c.Attach(b)
		}(b)
	}
	wg.Wait()

	assert.Equal(t, 1, p.Active())
}

func TestSentinelReplacedMidFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (bool, error) {
		if calls.Add(1) == 1 {
			<-release
		}
		return true, nil
	}
	c, p, _ := setup(t, load, scroll.DefaultOptions())

	first, second := box(0), box(3)
	c.Attach(first)
	p.Emit(first, true)
	require.True(t, c.Loading())

	c.Attach(second)
	assert.Equal(t, 0, p.Emit(first, true), "old sentinel is released")

	close(release)
	c.Wait()

	assert.False(t, c.Loading())
	assert.Equal(t, 1, c.State().Pages)

	p.Emit(second, true)
	c.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestLatestLoadFuncIsUsed(t *testing.T) {
	var first, second atomic.Int32
	c, p, _ := setup(t, func(ctx context.Context) (bool, error) {
		first.Add(1)
		return true, nil
	}, scroll.DefaultOptions())

	sentinel := box(0)
	c.Attach(sentinel)

	c.SetLoadFunc(func(ctx context.Context) (bool, error) {
		second.Add(1)
		return true, nil
	})
	c.SetLoadFunc(nil)

	p.Emit(sentinel, true)
	c.Wait()

	assert.Zero(t, first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestOnChangeSnapshots(t *testing.T) {
	var mu sync.Mutex
	var seen []scroll.State
	opts := scroll.DefaultOptions()
	opts.OnChange = func(s scroll.State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}
	c, _, _ := setup(t, (&stub{more: []bool{false}}).load, opts)

	c.Retry()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.False(t, seen[1].HasMore)
}

func TestLoadReceivesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "feed")

	got := make(chan any, 1)
	c := scroll.New(ctx, visibility.NewDetector(visibilitytest.New()), func(ctx context.Context) (bool, error) {
		got <- ctx.Value(key{})
		return false, nil
	}, scroll.DefaultOptions())

	c.Retry()
	c.Wait()
	assert.Equal(t, "feed", <-got)
}

func TestCloseReleasesWatcher(t *testing.T) {
	release := make(chan struct{})
	c, p, d := setup(t, func(ctx context.Context) (bool, error) {
		<-release
		return true, nil
	}, scroll.DefaultOptions())

	sentinel := box(0)
	c.Attach(sentinel)
	p.Emit(sentinel, true)

	c.Close()
	c.Close()
	assert.Equal(t, 0, p.Active())
	assert.Equal(t, 0, d.Active())
	assert.Equal(t, 0, p.Emit(sentinel, true))

	// The in-flight load still settles
	close(release)
	c.Wait()
	assert.Equal(t, 1, c.State().Pages)

	assert.False(t, c.Retry())
	c.Attach(box(9))
	assert.Equal(t, 0, p.Active())
}

func TestEagerDetectorLoadsOnAttach(t *testing.T) {
	s := &stub{more: []bool{true, false}}
	c := scroll.New(context.Background(), visibility.NewDetector(nil), s.load, scroll.DefaultOptions())
	defer c.Close()

	c.Attach(box(1000))
	c.Wait()
	assert.Equal(t, int32(1), s.calls.Load())

	c.Attach(box(2000))
	c.Wait()
	assert.Equal(t, int32(2), s.calls.Load())
	assert.False(t, c.HasMore())
}
