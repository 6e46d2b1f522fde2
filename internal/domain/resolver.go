package domain

import "fmt"

// PrivilegedUser is the account that needs no escalation: the runtime
// import runs directly under it.
const PrivilegedUser = "root"

// SecretPrompter reads a secret from an interactive channel without
// echoing it.
type SecretPrompter interface {
	ReadSecret(prompt string) ([]byte, error)
}

// SecretStore looks up a stored secret for an account, reporting whether
// one exists.
type SecretStore interface {
	Lookup(account string) ([]byte, bool, error)
}

// CredentialPolicy is the operator's input to credential resolution.
type CredentialPolicy struct {
	User        string
	AskPassword bool
	EnvSecret   []byte
	UseKeyring  bool
}

// ResolveCredential picks exactly one escalation strategy. Precedence,
// in order: privileged account needs none; an explicit interactive
// prompt beats an environment-supplied secret; the environment beats the
// opt-in keyring; everything absent selects the passwordless path, which
// fails later at escalation time if the host actually requires a secret.
// Absence of a secret is not an error at this layer.
func ResolveCredential(policy CredentialPolicy, prompter SecretPrompter, store SecretStore) (Credential, error) {
	if policy.User == PrivilegedUser {
		return NoEscalation(), nil
	}

	if policy.AskPassword {
		secret, err := prompter.ReadSecret(fmt.Sprintf("[sudo] password for %s: ", policy.User))
		if err != nil {
			return Credential{}, fmt.Errorf("read password: %w", err)
		}
		return PasswordEscalation(secret), nil
	}

	if len(policy.EnvSecret) > 0 {
		return PasswordEscalation(policy.EnvSecret), nil
	}

	if policy.UseKeyring && store != nil {
		secret, ok, err := store.Lookup(policy.User)
		if err != nil {
			return Credential{}, fmt.Errorf("keyring lookup: %w", err)
		}
		if ok {
			return PasswordEscalation(secret), nil
		}
	}

	return PasswordlessEscalation(), nil
}
