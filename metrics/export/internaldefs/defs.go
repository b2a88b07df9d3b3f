package internaldefs

import (
	goAuthSync "github.com/MrEthical07/goAuthSync"
)

// CounterDef names one synchronizer counter.
type CounterDef struct {
	ID   goAuthSync.MetricID
	Name string
	Help string
}

// HistogramDef names one synchronizer histogram.
type HistogramDef struct {
	ID   goAuthSync.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goAuthSync.MetricInitRestored, Name: "goauthsync_init_restored_total", Help: "Start-ups that restored a persisted session."},
	{ID: goAuthSync.MetricInitCleared, Name: "goauthsync_init_cleared_total", Help: "Start-ups that found no usable session."},
	{ID: goAuthSync.MetricLoginSuccess, Name: "goauthsync_login_success_total", Help: "Logins persisted and committed."},
	{ID: goAuthSync.MetricLoginFailure, Name: "goauthsync_login_failure_total", Help: "Logins rejected or not persisted."},
	{ID: goAuthSync.MetricAutoLogin, Name: "goauthsync_auto_login_total", Help: "Sessions adopted from an auto-login hand-off."},
	{ID: goAuthSync.MetricLogout, Name: "goauthsync_logout_total", Help: "Explicit logouts."},
	{ID: goAuthSync.MetricClear, Name: "goauthsync_clear_total", Help: "Local clears without navigation."},
	{ID: goAuthSync.MetricRegisterSuccess, Name: "goauthsync_register_success_total", Help: "Accepted registrations."},
	{ID: goAuthSync.MetricRegisterFailure, Name: "goauthsync_register_failure_total", Help: "Rejected registrations."},
	{ID: goAuthSync.MetricRecoverySuccess, Name: "goauthsync_recovery_success_total", Help: "Accepted forgot-username and forgot-password requests."},
	{ID: goAuthSync.MetricRecoveryFailure, Name: "goauthsync_recovery_failure_total", Help: "Rejected recovery requests."},
	{ID: goAuthSync.MetricSyncAdopted, Name: "goauthsync_sync_adopted_total", Help: "Foreign sessions adopted into memory."},
	{ID: goAuthSync.MetricSyncCleared, Name: "goauthsync_sync_cleared_total", Help: "Foreign logouts mirrored into memory."},
	{ID: goAuthSync.MetricSyncIgnored, Name: "goauthsync_sync_ignored_total", Help: "Foreign notifications that changed nothing."},
	{ID: goAuthSync.MetricStorageFailure, Name: "goauthsync_storage_failure_total", Help: "Failed durable storage reads or writes."},
	{ID: goAuthSync.MetricNavigation, Name: "goauthsync_navigation_total", Help: "Navigation requests issued to the host."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthSync.MetricAPILatency, Name: "goauthsync_api_latency_seconds", Help: "Account API call latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight latency
// buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for use in metric names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
