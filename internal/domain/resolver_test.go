package domain

import (
	"errors"
	"testing"
)

type stubPrompter struct {
	secret []byte
	err    error
	called bool
}

func (s *stubPrompter) ReadSecret(_ string) ([]byte, error) {
	s.called = true
	return s.secret, s.err
}

type stubStore struct {
	secret []byte
	ok     bool
	err    error
}

func (s *stubStore) Lookup(_ string) ([]byte, bool, error) {
	return s.secret, s.ok, s.err
}

func TestResolveCredential_PrivilegedUserNeedsNoEscalation(t *testing.T) {
	prompter := &stubPrompter{secret: []byte("ignored")}
	cred, err := ResolveCredential(CredentialPolicy{
		User:        PrivilegedUser,
		AskPassword: true,
		EnvSecret:   []byte("also-ignored"),
	}, prompter, nil)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Mode() != EscalationNone {
		t.Errorf("Mode = %q, want %q", cred.Mode(), EscalationNone)
	}
	if prompter.called {
		t.Error("prompter must not be consulted for the privileged account")
	}
}

func TestResolveCredential_PromptBeatsEnvironment(t *testing.T) {
	prompter := &stubPrompter{secret: []byte("from-prompt")}
	cred, err := ResolveCredential(CredentialPolicy{
		User:        "deploy",
		AskPassword: true,
		EnvSecret:   []byte("from-env"),
	}, prompter, nil)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Mode() != EscalationPassword {
		t.Fatalf("Mode = %q, want %q", cred.Mode(), EscalationPassword)
	}
	if string(cred.Secret()) != "from-prompt" {
		t.Errorf("secret came from %q, want the interactive prompt", cred.Secret())
	}
}

func TestResolveCredential_EnvironmentBeatsKeyring(t *testing.T) {
	store := &stubStore{secret: []byte("from-keyring"), ok: true}
	cred, err := ResolveCredential(CredentialPolicy{
		User:       "deploy",
		EnvSecret:  []byte("from-env"),
		UseKeyring: true,
	}, &stubPrompter{}, store)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if string(cred.Secret()) != "from-env" {
		t.Errorf("secret came from %q, want the environment", cred.Secret())
	}
}

func TestResolveCredential_KeyringOnlyWhenOptedIn(t *testing.T) {
	store := &stubStore{secret: []byte("from-keyring"), ok: true}

	cred, err := ResolveCredential(CredentialPolicy{User: "deploy"}, &stubPrompter{}, store)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Mode() != EscalationPasswordless {
		t.Errorf("without opt-in: Mode = %q, want %q", cred.Mode(), EscalationPasswordless)
	}

	cred, err = ResolveCredential(CredentialPolicy{User: "deploy", UseKeyring: true}, &stubPrompter{}, store)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Mode() != EscalationPassword || string(cred.Secret()) != "from-keyring" {
		t.Errorf("with opt-in: Mode = %q, secret = %q", cred.Mode(), cred.Secret())
	}
}

func TestResolveCredential_AbsentSecretSelectsPasswordless(t *testing.T) {
	cred, err := ResolveCredential(CredentialPolicy{User: "deploy"}, &stubPrompter{}, nil)
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Mode() != EscalationPasswordless {
		t.Errorf("Mode = %q, want %q", cred.Mode(), EscalationPasswordless)
	}
}

func TestResolveCredential_PromptFailureSurfaces(t *testing.T) {
	prompter := &stubPrompter{err: errors.New("tty gone")}
	_, err := ResolveCredential(CredentialPolicy{User: "deploy", AskPassword: true}, prompter, nil)
	if err == nil {
		t.Fatal("expected error from failed prompt")
	}
}

func TestCredential_ZeroClearsSecret(t *testing.T) {
	secret := []byte("hunter2")
	cred := PasswordEscalation(secret)
	cred.Zero()
	for i, b := range secret {
		if b != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestCredential_StringNeverContainsSecret(t *testing.T) {
	cred := PasswordEscalation([]byte("hunter2"))
	if s := cred.String(); s != string(EscalationPassword) {
		t.Errorf("String = %q, want mode only", s)
	}
}
