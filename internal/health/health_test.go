package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReader struct {
	states map[string]string
}

func (f *fakeReader) ActiveState(_ context.Context, unit string) string {
	if s, ok := f.states[unit]; ok {
		return s
	}
	return "inactive"
}

func stubBrowse(t *testing.T, instances []string) {
	t.Helper()
	orig := browse
	browse = func(context.Context) []string { return instances }
	t.Cleanup(func() { browse = orig })
}

func TestCollect_ReportsUnitStates(t *testing.T) {
	stubBrowse(t, nil)
	reader := &fakeReader{states: map[string]string{
		"shairport-sync.service": "active",
		"avahi-daemon.service":   "active",
	}}

	report := Collect(context.Background(), reader)

	assert.Equal(t, "active", report.Services["shairport-sync.service"])
	assert.Equal(t, "inactive", report.Services["nqptp.service"])
	assert.Len(t, report.Services, len(watchedUnits))
	assert.False(t, report.Advertised)
	assert.Empty(t, report.Instances)
}

func TestCollect_NilReaderReportsUnknown(t *testing.T) {
	stubBrowse(t, nil)

	report := Collect(context.Background(), nil)

	for unit, st := range report.Services {
		assert.Equal(t, "unknown", st, unit)
	}
}

func TestCollect_AdvertisedWhenInstancesVisible(t *testing.T) {
	stubBrowse(t, []string{"Wyse DAC-CA70"})

	report := Collect(context.Background(), &fakeReader{})

	assert.True(t, report.Advertised)
	assert.Equal(t, []string{"Wyse DAC-CA70"}, report.Instances)
}
