package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panta-workers/internal/common/logger"
)

type fakeSource struct {
	override *ConfigurationOverride
	err      error
	delay    time.Duration
	block    chan struct{}
	calls    atomic.Int32
}

func (f *fakeSource) FetchPricingConfiguration(ctx context.Context, tenantID TenantID) (*ConfigurationOverride, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.override, f.err
}

// scriptedSource answers each fetch with fn, numbered from 1.
type scriptedSource struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int32) (*ConfigurationOverride, error)
}

func (s *scriptedSource) FetchPricingConfiguration(ctx context.Context, tenantID TenantID) (*ConfigurationOverride, error) {
	return s.fn(ctx, s.calls.Add(1))
}

func failingOnce(override *ConfigurationOverride) *scriptedSource {
	return &scriptedSource{fn: func(ctx context.Context, call int32) (*ConfigurationOverride, error) {
		if call == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return override, nil
	}}
}

func fixedClock() time.Time {
	return time.Date(testYear, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func TestConfigLoader_FallbacksToDefaults(t *testing.T) {
	tests := []struct {
		name   string
		source ConfigSource
	}{
		{"nil source", nil},
		{"not found", &fakeSource{err: ErrConfigurationNotFound}},
		{"source error", &fakeSource{err: errors.New("connection refused")}},
		{"empty answer", &fakeSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewConfigLoader("t1", tt.source, time.Second, logger.NewTestLogger(t))

			cfg, origin := l.Load(context.Background())

			assert.Equal(t, DefaultConfiguration(), cfg)
			assert.Equal(t, OriginDefault, origin)
			assert.Equal(t, OriginDefault, l.Source())
		})
	}
}

func TestConfigLoader_MergesTenantOverride(t *testing.T) {
	src := &fakeSource{override: &ConfigurationOverride{
		PartsBonuses: &PartsBonuses{EngineTransmissionCatalyst: 3000, BatteryWheelsOther: 0},
	}}
	l := NewConfigLoader("t1", src, time.Second, logger.NewTestLogger(t))

	cfg, origin := l.Load(context.Background())

	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(3000), cfg.PartsBonuses.EngineTransmissionCatalyst)
	assert.Equal(t, int64(0), cfg.PartsBonuses.BatteryWheelsOther)
	assert.Equal(t, DefaultConfiguration().AgeBonuses, cfg.AgeBonuses)
}

func TestConfigLoader_LoadsOnce(t *testing.T) {
	src := &fakeSource{override: &ConfigurationOverride{}, block: make(chan struct{})}
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Load(context.Background())
		}()
	}

	// let the goroutines pile up on the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	l.Load(context.Background())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestConfigLoader_Refresh(t *testing.T) {
	src := &fakeSource{err: ErrConfigurationNotFound}
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	_, origin := l.Load(context.Background())
	require.Equal(t, OriginDefault, origin)

	src.err = nil
	src.override = &ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Electric: 1000}}

	_, origin = l.Load(context.Background())
	assert.Equal(t, OriginDefault, origin, "cached result is kept until refresh")

	cfg, origin := l.Refresh(context.Background())
	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(1000), cfg.FuelAdjustments.Electric)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestConfigLoader_TimeoutFallsBackToDefaults(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	src := &fakeSource{
		override: &ConfigurationOverride{AgeBonuses: &AgeBonuses{Age0To5: 1}},
		block:    block,
	}
	l := NewConfigLoader("t1", src, 20*time.Millisecond, logger.NewNoOpLogger())

	start := time.Now()
	cfg, origin := l.Load(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, OriginDefault, origin)
	assert.Equal(t, DefaultConfiguration(), cfg)
}

func TestConfigLoader_RetriesAfterFailedFetch(t *testing.T) {
	src := failingOnce(&ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Gasoline: 3000}})
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	cfg, origin := l.Load(context.Background())
	assert.Equal(t, OriginDefault, origin)
	assert.Equal(t, DefaultConfiguration(), cfg)

	cfg, origin = l.Load(context.Background())
	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(3000), cfg.FuelAdjustments.Gasoline)

	l.Load(context.Background())
	assert.Equal(t, int32(2), src.calls.Load(), "a settled result is kept")
}

func TestConfigLoader_NotFoundIsKept(t *testing.T) {
	src := &fakeSource{err: ErrConfigurationNotFound}
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	l.Load(context.Background())
	l.Load(context.Background())

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestConfigLoader_TimeoutIsRetried(t *testing.T) {
	src := &scriptedSource{fn: func(ctx context.Context, call int32) (*ConfigurationOverride, error) {
		if call == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &ConfigurationOverride{AgeBonuses: &AgeBonuses{Age0To5: 12000}}, nil
	}}
	l := NewConfigLoader("t1", src, 20*time.Millisecond, logger.NewNoOpLogger())

	_, origin := l.Load(context.Background())
	require.Equal(t, OriginDefault, origin)

	cfg, origin := l.Load(context.Background())
	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(12000), cfg.AgeBonuses.Age0To5)
}

func TestConfigLoader_CancelledCallerDoesNotAffectOthers(t *testing.T) {
	src := &scriptedSource{fn: func(ctx context.Context, call int32) (*ConfigurationOverride, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Electric: 700}}, nil
	}}
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	l.Load(cancelled)

	cfg, origin := l.Load(context.Background())
	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(700), cfg.FuelAdjustments.Electric)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestConfigLoader_StaleLoadDoesNotOverwriteRefresh(t *testing.T) {
	release := make(chan struct{})
	src := &scriptedSource{fn: func(ctx context.Context, call int32) (*ConfigurationOverride, error) {
		if call == 1 {
			<-release
			return &ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Electric: 100}}, nil
		}
		return &ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Electric: 200}}, nil
	}}
	l := NewConfigLoader("t1", src, time.Second, logger.NewNoOpLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Load(context.Background())
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cfg, _ := l.Refresh(context.Background())
	require.Equal(t, int64(200), cfg.FuelAdjustments.Electric)

	close(release)
	<-done

	cfg, origin := l.Load(context.Background())
	assert.Equal(t, OriginTenant, origin)
	assert.Equal(t, int64(200), cfg.FuelAdjustments.Electric)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCalculator_UsesTenantConfiguration(t *testing.T) {
	src := &fakeSource{override: &ConfigurationOverride{
		AgeBonuses: &AgeBonuses{Age0To5: 20000},
	}}
	c := NewCalculator("t1", src, logger.NewNoOpLogger(), WithClock(fixedClock))

	res := c.CalculatePrice(context.Background(), VehicleInfo{Year: testYear - 1, FuelType: FuelGasoline}, 1000)

	assert.Equal(t, int64(21000), res.TotalPrice)
	assert.Equal(t, OriginTenant, c.ConfigurationSource())

	res, origin := c.Quote(context.Background(), VehicleInfo{Year: testYear - 1, FuelType: FuelGasoline}, 1000)
	assert.Equal(t, int64(21000), res.TotalPrice)
	assert.Equal(t, OriginTenant, origin)
}

func TestCalculator_DefaultsWhenSourceFails(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	c := NewCalculator("t1", src, logger.NewNoOpLogger(), WithClock(fixedClock))

	res := c.CalculatePrice(context.Background(), VehicleInfo{
		Year:           testYear - 3,
		FuelType:       FuelGasoline,
		PickupDistance: Distance(15),
		HasEngine:      true,
	}, 5000)

	assert.Equal(t, int64(15750), res.TotalPrice)
}

func TestGetQuickPriceAndBreakdown(t *testing.T) {
	src := &fakeSource{err: ErrConfigurationNotFound}
	v := VehicleInfo{Year: testYear - 8, FuelType: FuelOther, PickupDistance: Distance(0), IsDropoffComplete: true}

	total := GetQuickPrice(context.Background(), src, "t1", v, 2000, nil, WithClock(fixedClock))
	res := GetPriceBreakdown(context.Background(), src, "t1", v, 2000, nil, WithClock(fixedClock))

	// 2000 + 5000 + 500 - 500
	assert.Equal(t, int64(7000), total)
	assert.Equal(t, total, res.TotalPrice)
	assert.Len(t, res.Breakdown, 3)
	assert.Equal(t, int32(2), src.calls.Load(), "each call uses its own calculator")
}

func TestRegistry(t *testing.T) {
	src := &fakeSource{err: ErrConfigurationNotFound}
	r := NewRegistry(src, logger.NewNoOpLogger(), WithClock(fixedClock))

	a := r.For("a")
	assert.Equal(t, TenantID("a"), a.TenantID())
	assert.Same(t, a, r.For("a"))
	assert.NotSame(t, a, r.For("b"))

	r.Invalidate("a")
	assert.NotSame(t, a, r.For("a"))
}

func TestRegistry_RecoversAfterFailedFetch(t *testing.T) {
	src := failingOnce(&ConfigurationOverride{FuelAdjustments: &FuelAdjustments{Gasoline: 3000}})
	r := NewRegistry(src, logger.NewNoOpLogger(), WithClock(fixedClock))
	v := VehicleInfo{Year: testYear - 40, FuelType: FuelGasoline}

	res, origin := r.For("t1").Quote(context.Background(), v, 0)
	assert.Equal(t, OriginDefault, origin)
	assert.Equal(t, int64(-1000), res.TotalPrice)

	for i := 0; i < 3; i++ {
		res, origin = r.For("t1").Quote(context.Background(), v, 0)
		assert.Equal(t, OriginTenant, origin)
		assert.Equal(t, int64(2000), res.TotalPrice)
	}
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestRegistry_EntryTTL(t *testing.T) {
	now := fixedClock()
	clock := func() time.Time { return now }
	src := &fakeSource{err: ErrConfigurationNotFound}
	r := NewRegistry(src, logger.NewNoOpLogger(), WithClock(clock), WithEntryTTL(10*time.Minute))

	a := r.For("a")
	now = now.Add(9 * time.Minute)
	assert.Same(t, a, r.For("a"))

	now = now.Add(time.Minute)
	b := r.For("a")
	assert.NotSame(t, a, b)
	assert.Same(t, b, r.For("a"))
}
