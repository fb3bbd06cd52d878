package internaldefs

import (
	swapcore "github.com/kekpa/swap-frontend-sub003"
)

// CounterDef maps one internal counter to its exported name.
type CounterDef struct {
	ID   swapcore.MetricID
	Name string
	Help string
}

// HistogramDef maps one internal histogram to its exported name.
type HistogramDef struct {
	ID   swapcore.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter naming table used by every exporter.
var CounterDefs = []CounterDef{
	{ID: swapcore.MetricSessionCheckSuccess, Name: "swapcore_session_check_success_total", Help: "Successful launch session checks."},
	{ID: swapcore.MetricSessionCheckFailure, Name: "swapcore_session_check_failure_total", Help: "Failed launch session checks."},
	{ID: swapcore.MetricSessionCheckNoToken, Name: "swapcore_session_check_no_token_total", Help: "Session checks with no stored token."},
	{ID: swapcore.MetricLoginSuccess, Name: "swapcore_login_success_total", Help: "Successful password logins."},
	{ID: swapcore.MetricLoginFailure, Name: "swapcore_login_failure_total", Help: "Failed password logins."},
	{ID: swapcore.MetricPINLoginSuccess, Name: "swapcore_pin_login_success_total", Help: "Successful PIN logins."},
	{ID: swapcore.MetricPINLoginFailure, Name: "swapcore_pin_login_failure_total", Help: "Failed PIN logins."},
	{ID: swapcore.MetricPINLoginNoAssociation, Name: "swapcore_pin_login_no_association_total", Help: "PIN logins without a stored association."},
	{ID: swapcore.MetricBiometricLoginSuccess, Name: "swapcore_biometric_login_success_total", Help: "Successful biometric logins."},
	{ID: swapcore.MetricBiometricLoginFailure, Name: "swapcore_biometric_login_failure_total", Help: "Failed biometric logins."},
	{ID: swapcore.MetricBiometricCancelled, Name: "swapcore_biometric_cancelled_total", Help: "User-cancelled biometric prompts."},
	{ID: swapcore.MetricAccountSaved, Name: "swapcore_account_saved_total", Help: "Remembered account saves."},
	{ID: swapcore.MetricAccountSwitched, Name: "swapcore_account_switched_total", Help: "Completed cold account switches."},
	{ID: swapcore.MetricAccountRemoved, Name: "swapcore_account_removed_total", Help: "Remembered account removals."},
	{ID: swapcore.MetricAccountLimitHit, Name: "swapcore_account_limit_hit_total", Help: "Account saves rejected by the device ceiling."},
	{ID: swapcore.MetricProfileSwitchStarted, Name: "swapcore_profile_switch_started_total", Help: "Warm profile switches started."},
	{ID: swapcore.MetricProfileSwitchCommitted, Name: "swapcore_profile_switch_committed_total", Help: "Warm profile switches committed."},
	{ID: swapcore.MetricProfileSwitchAborted, Name: "swapcore_profile_switch_aborted_total", Help: "Warm profile switches aborted."},
	{ID: swapcore.MetricProfileSwitchRolledBack, Name: "swapcore_profile_switch_rolled_back_total", Help: "Optimistic applies rolled back."},
	{ID: swapcore.MetricWalletUnlocked, Name: "swapcore_wallet_unlocked_total", Help: "Wallet tier unlocks."},
	{ID: swapcore.MetricWalletUnlockDenied, Name: "swapcore_wallet_unlock_denied_total", Help: "Denied wallet unlock attempts."},
	{ID: swapcore.MetricWalletLocked, Name: "swapcore_wallet_locked_total", Help: "Wallet tier locks."},
	{ID: swapcore.MetricAppLocked, Name: "swapcore_app_locked_total", Help: "App lock activations."},
	{ID: swapcore.MetricAppUnlocked, Name: "swapcore_app_unlocked_total", Help: "App unlocks."},
	{ID: swapcore.MetricSessionExpiredSignal, Name: "swapcore_session_expired_signal_total", Help: "Session-expiry signals received."},
	{ID: swapcore.MetricLogout, Name: "swapcore_logout_total", Help: "Explicit logouts."},
	{ID: swapcore.MetricAuthOperationRejected, Name: "swapcore_auth_operation_rejected_total", Help: "Auth operations rejected while another was in flight."},
	{ID: swapcore.MetricUnknownAuthEvent, Name: "swapcore_unknown_auth_event_total", Help: "Ignored unknown auth events."},
}

// HistogramDefs is the shared histogram naming table.
var HistogramDefs = []HistogramDef{
	{ID: swapcore.MetricSessionCheckLatency, Name: "swapcore_session_check_latency_seconds", Help: "Launch session check latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// internal millisecond buckets.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters that flatten
// histograms into per-bucket series.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// internal width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// expected by Prometheus and OpenTelemetry.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
