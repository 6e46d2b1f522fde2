package domain

// EscalationMode describes how commands gain elevated privileges on a
// remote host.
type EscalationMode string

const (
	// EscalationNone means the remote account already has sufficient
	// rights; commands run directly.
	EscalationNone EscalationMode = "none"

	// EscalationPasswordless wraps commands in a non-interactive sudo
	// invocation that assumes no secret is required.
	EscalationPasswordless EscalationMode = "passwordless"

	// EscalationPassword wraps commands in sudo and supplies an
	// in-memory secret over the escalation mechanism's stdin.
	EscalationPassword EscalationMode = "password"
)

// Credential is the resolved privilege-escalation strategy for a job.
// It is resolved once before any host is processed, shared read-only by
// every host pipeline, and zeroed after the job reports.
//
// The secret is unexported and excluded from String so that a Credential
// can never leak through logging or serialization. Workflow activity
// inputs must not embed a Credential; it travels only on the workflow
// struct itself.
type Credential struct {
	mode   EscalationMode
	secret []byte
}

// NoEscalation returns the credential for a fully privileged account.
func NoEscalation() Credential {
	return Credential{mode: EscalationNone}
}

// PasswordlessEscalation returns the credential that assumes sudo needs
// no secret. If the host actually requires one, the escalation command
// rejects at load time; that is the designed failure point.
func PasswordlessEscalation() Credential {
	return Credential{mode: EscalationPasswordless}
}

// PasswordEscalation returns a credential carrying an in-memory secret.
// The caller hands over ownership of the slice; Zero clears it.
func PasswordEscalation(secret []byte) Credential {
	return Credential{mode: EscalationPassword, secret: secret}
}

// Mode reports the escalation strategy.
func (c Credential) Mode() EscalationMode { return c.mode }

// Secret exposes the raw secret for transient remote command payloads.
// Callers must not retain or log the returned slice.
func (c Credential) Secret() []byte { return c.secret }

// Zero overwrites the secret in place. The job calls this exactly once,
// after reporting.
func (c Credential) Zero() {
	for i := range c.secret {
		c.secret[i] = 0
	}
}

// String renders the mode only. The secret is never part of it.
func (c Credential) String() string { return string(c.mode) }
