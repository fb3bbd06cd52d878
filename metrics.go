package swapcore

import "github.com/kekpa/swap-frontend-sub003/internal/metrics"

// MetricID identifies one counter or histogram slot.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of all recorded metrics.
type MetricsSnapshot = metrics.Snapshot

// Metric identifiers, re-exported for snapshot consumers and the
// exporters under metrics/export.
const (
	MetricSessionCheckSuccess     = metrics.MetricSessionCheckSuccess
	MetricSessionCheckFailure     = metrics.MetricSessionCheckFailure
	MetricSessionCheckNoToken     = metrics.MetricSessionCheckNoToken
	MetricLoginSuccess            = metrics.MetricLoginSuccess
	MetricLoginFailure            = metrics.MetricLoginFailure
	MetricPINLoginSuccess         = metrics.MetricPINLoginSuccess
	MetricPINLoginFailure         = metrics.MetricPINLoginFailure
	MetricPINLoginNoAssociation   = metrics.MetricPINLoginNoAssociation
	MetricBiometricLoginSuccess   = metrics.MetricBiometricLoginSuccess
	MetricBiometricLoginFailure   = metrics.MetricBiometricLoginFailure
	MetricBiometricCancelled      = metrics.MetricBiometricCancelled
	MetricAccountSaved            = metrics.MetricAccountSaved
	MetricAccountSwitched         = metrics.MetricAccountSwitched
	MetricAccountRemoved          = metrics.MetricAccountRemoved
	MetricAccountLimitHit         = metrics.MetricAccountLimitHit
	MetricProfileSwitchStarted    = metrics.MetricProfileSwitchStarted
	MetricProfileSwitchCommitted  = metrics.MetricProfileSwitchCommitted
	MetricProfileSwitchAborted    = metrics.MetricProfileSwitchAborted
	MetricProfileSwitchRolledBack = metrics.MetricProfileSwitchRolledBack
	MetricWalletUnlocked          = metrics.MetricWalletUnlocked
	MetricWalletUnlockDenied      = metrics.MetricWalletUnlockDenied
	MetricWalletLocked            = metrics.MetricWalletLocked
	MetricAppLocked               = metrics.MetricAppLocked
	MetricAppUnlocked             = metrics.MetricAppUnlocked
	MetricSessionExpiredSignal    = metrics.MetricSessionExpiredSignal
	MetricLogout                  = metrics.MetricLogout
	MetricAuthOperationRejected   = metrics.MetricAuthOperationRejected
	MetricUnknownAuthEvent        = metrics.MetricUnknownAuthEvent
	MetricSessionCheckLatency     = metrics.MetricSessionCheckLatency
)
