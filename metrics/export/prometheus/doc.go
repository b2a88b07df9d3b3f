// Package prometheus renders goAuthSync counters in Prometheus text
// exposition format without depending on a Prometheus client library.
//
// Counter names are goauthsync_*_total. The account API latency histogram,
// goauthsync_api_latency_seconds, is emitted only when latency histograms
// are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate synchronizer state.
package prometheus
