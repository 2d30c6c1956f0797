package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchcard/punchcard/internal/analytics"
	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store/memory"
)

// 2026-10-12 is a Monday.
var weekW = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	ledger    *ledger.Ledger
	analytics *analytics.Service
}

func newFixture(t *testing.T, timezone string) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	require.NoError(t, st.CreateVendor(ctx, &model.Vendor{
		ID:        "v1",
		Email:     "v1@shop.test",
		Timezone:  timezone,
		CreatedAt: weekW,
	}))

	now := weekW.AddDate(0, 1, 0)
	l := ledger.New(st, ledger.WithClock(func() time.Time { return now }))
	return &fixture{
		store:     st,
		ledger:    l,
		analytics: analytics.NewService(l, st, analytics.Config{}),
	}
}

func (f *fixture) customer(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.CreateCustomer(context.Background(), &model.Customer{
		ID: id, VendorID: "v1", CreatedAt: weekW,
	}))
}

func (f *fixture) punch(t *testing.T, customerID string, ts time.Time) {
	t.Helper()
	_, err := f.ledger.RecordVisit(context.Background(), "v1", customerID, ts)
	require.NoError(t, err)
}

func at(day, hour int) time.Time {
	return weekW.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
}

func TestWeeklyReport_SingleRepeatCustomer(t *testing.T) {
	f := newFixture(t, "UTC")
	f.customer(t, "c1")

	f.punch(t, "c1", at(0, 9))  // Mon 09:00
	f.punch(t, "c1", at(0, 14)) // Mon 14:00
	f.punch(t, "c1", at(2, 10)) // Wed 10:00

	report, err := f.analytics.WeeklyReport(context.Background(), "v1", weekW)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalVisits)
	assert.Equal(t, 1, report.UniqueCustomers)
	assert.Equal(t, 1, report.RepeatCount)
	assert.True(t, report.WeekStart.Equal(weekW))
	assert.True(t, report.WeekEnd.Equal(weekW.AddDate(0, 0, 7)))
}

func TestWeeklyReport_OneVisitEachIsNotRepeat(t *testing.T) {
	f := newFixture(t, "UTC")
	f.customer(t, "c1")
	f.customer(t, "c2")

	f.punch(t, "c1", at(1, 9))
	f.punch(t, "c2", at(3, 9))

	report, err := f.analytics.WeeklyReport(context.Background(), "v1", weekW)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RepeatCount)
	assert.Equal(t, 2, report.TotalVisits)
	assert.Equal(t, 2, report.UniqueCustomers)
}

func TestWeeklyReport_PriorWeekVisitsAreIgnored(t *testing.T) {
	f := newFixture(t, "UTC")
	f.customer(t, "c1")

	f.punch(t, "c1", at(-1, 20)) // previous Sunday
	f.punch(t, "c1", at(0, 9))

	report, err := f.analytics.WeeklyReport(context.Background(), "v1", weekW)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RepeatCount)
	assert.Equal(t, 1, report.TotalVisits)
}

func TestWeeklyReport_NormalizesToMonday(t *testing.T) {
	f := newFixture(t, "UTC")
	f.customer(t, "c1")
	f.punch(t, "c1", at(0, 9))
	f.punch(t, "c1", at(6, 23))

	// Thursday of the same week.
	report, err := f.analytics.WeeklyReport(context.Background(), "v1", at(3, 15))
	require.NoError(t, err)
	assert.True(t, report.WeekStart.Equal(weekW))
	assert.Equal(t, 2, report.TotalVisits)
	assert.Equal(t, 1, report.RepeatCount)
}

func TestWeeklyReport_UsesVendorTimezone(t *testing.T) {
	f := newFixture(t, "Asia/Ho_Chi_Minh") // UTC+7
	f.customer(t, "c1")

	// Sunday 18:00 UTC is Monday 01:00 local, inside the local week.
	f.punch(t, "c1", at(-1, 18))
	f.punch(t, "c1", at(0, 9))

	report, err := f.analytics.WeeklyReport(context.Background(), "v1", weekW)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", report.Timezone)
	assert.Equal(t, 2, report.TotalVisits)
	assert.Equal(t, 1, report.RepeatCount)
	assert.Equal(t, time.Monday, report.WeekStart.Weekday())
	assert.Equal(t, 0, report.WeekStart.Hour())
}

func TestWeeklyReport_UnknownVendor(t *testing.T) {
	f := newFixture(t, "UTC")

	_, err := f.analytics.WeeklyReport(context.Background(), "nobody", weekW)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestComputeRepeats_InvalidRange(t *testing.T) {
	f := newFixture(t, "UTC")

	_, err := f.analytics.ComputeRepeats(context.Background(), "v1", weekW, weekW.Add(-time.Hour))
	assert.ErrorIs(t, err, ledger.ErrInvalidRange)

	_, err = f.analytics.ComputeRepeats(context.Background(), "v1", weekW, weekW)
	assert.ErrorIs(t, err, ledger.ErrInvalidRange)
}

func TestComputeRepeats_NoCustomers(t *testing.T) {
	f := newFixture(t, "UTC")

	n, err := f.analytics.ComputeRepeats(context.Background(), "v1", weekW, weekW.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestComputeRepeats_MonotoneAsWindowWidens(t *testing.T) {
	f := newFixture(t, "UTC")
	for _, c := range []string{"c1", "c2", "c3", "c4"} {
		f.customer(t, c)
	}
	f.punch(t, "c1", at(0, 9))
	f.punch(t, "c1", at(0, 10))
	f.punch(t, "c2", at(1, 9))
	f.punch(t, "c2", at(4, 9))
	f.punch(t, "c3", at(2, 9))
	f.punch(t, "c3", at(9, 9))
	f.punch(t, "c4", at(5, 9))

	prev := 0
	for hours := 1; hours <= 14*24; hours += 5 {
		n, err := f.analytics.ComputeRepeats(context.Background(), "v1", weekW, weekW.Add(time.Duration(hours)*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, prev, "window of %d hours", hours)
		prev = n
	}
	assert.Equal(t, 3, prev)
}

func TestComputeRepeats_IncludesArchivedCustomers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "UTC")
	f.customer(t, "c1")
	f.punch(t, "c1", at(0, 9))
	f.punch(t, "c1", at(0, 10))

	c, err := f.store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	archivedAt := at(1, 0)
	c.ArchivedAt = &archivedAt
	require.NoError(t, f.store.UpdateCustomer(ctx, c))

	n, err := f.analytics.ComputeRepeats(ctx, "v1", weekW, weekW.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWeeklyReportForDate_ReadsDateInVendorTimezone(t *testing.T) {
	f := newFixture(t, "Pacific/Auckland")
	f.customer(t, "c1")

	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	// Monday morning in Auckland is still Sunday in UTC.
	f.punch(t, "c1", time.Date(2026, 10, 12, 8, 0, 0, 0, loc))

	report, err := f.analytics.WeeklyReportForDate(context.Background(), "v1", "2026-10-14")
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalVisits)
	assert.Equal(t, "Pacific/Auckland", report.Timezone)
	assert.True(t, report.WeekStart.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, loc)))
}

func TestWeeklyReportForDate_EmptyDateIsCurrentVendorWeek(t *testing.T) {
	f := newFixture(t, "Pacific/Auckland")
	f.customer(t, "c1")

	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	// Sunday evening in UTC is already Monday morning in Auckland.
	clock := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	svc := analytics.NewService(f.ledger, f.store, analytics.Config{
		Now: func() time.Time { return clock },
	})

	f.punch(t, "c1", time.Date(2026, 10, 14, 12, 0, 0, 0, loc))
	f.punch(t, "c1", time.Date(2026, 10, 19, 8, 0, 0, 0, loc))

	report, err := svc.WeeklyReportForDate(context.Background(), "v1", "")
	require.NoError(t, err)

	assert.True(t, report.WeekStart.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, loc)))
	assert.True(t, report.WeekEnd.Equal(time.Date(2026, 10, 26, 0, 0, 0, 0, loc)))
	assert.Equal(t, 1, report.TotalVisits)
}

func TestWeeklyReportForDate_MalformedDate(t *testing.T) {
	f := newFixture(t, "UTC")

	for _, date := range []string{"2026/10/12", "12-10-2026", "2026-13-01", "monday"} {
		_, err := f.analytics.WeeklyReportForDate(context.Background(), "v1", date)
		assert.ErrorIs(t, err, ledger.ErrInvalidRange, date)
	}
}
