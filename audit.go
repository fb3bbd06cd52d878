package swapcore

import (
	"io"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/internal/audit"
)

// AuditEvent is the record handed to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the async dispatcher. Sinks must
// be fast or buffer internally; slow sinks cause drops, never blocking.
type AuditSink = audit.Sink

// NewZapAuditSink writes audit events through a zap logger.
func NewZapAuditSink(log *zap.Logger) AuditSink {
	return audit.NewZapSink(log)
}

// NewJSONAuditSink writes one JSON line per audit event.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event names. Stable identifiers for downstream pipelines.
const (
	auditSessionCheck     = "session.check"
	auditLogin            = "login.password"
	auditPINLogin         = "login.pin"
	auditBiometricLogin   = "login.biometric"
	auditAccountSaved     = "account.saved"
	auditAccountSwitched  = "account.switched"
	auditAccountRemoved   = "account.removed"
	auditProfileSwitch    = "profile.switch"
	auditWalletUnlock     = "wallet.unlock"
	auditWalletLock       = "wallet.lock"
	auditAppLock          = "applock.lock"
	auditAppUnlock        = "applock.unlock"
	auditLogout           = "logout"
	auditEmergencyCleanup = "emergency.cleanup"
)
