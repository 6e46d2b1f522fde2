package domain

import "strings"

// RemoteCommand is a structured remote invocation: an argv vector plus an
// optional stdin payload. Building commands as argv instead of
// interpolated shell text keeps user-controlled values (image names,
// namespaces, paths) out of shell syntax; the transport quotes each
// element when it renders the command for the remote shell.
type RemoteCommand struct {
	Argv  []string
	Stdin []byte
}

// String renders the quoted command line for logging. The stdin payload
// (which may be a secret) is never included.
func (c RemoteCommand) String() string {
	quoted := make([]string, len(c.Argv))
	for i, arg := range c.Argv {
		quoted[i] = ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// ShellQuote wraps s in single quotes, escaping embedded single quotes,
// so the remote shell treats it as one literal word.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Escalate wraps argv according to the credential. A password credential
// feeds the secret to sudo over stdin (-S) with an empty prompt; it never
// appears in the argument list.
func Escalate(cred Credential, argv ...string) RemoteCommand {
	switch cred.Mode() {
	case EscalationPasswordless:
		return RemoteCommand{Argv: append([]string{"sudo", "-n"}, argv...)}
	case EscalationPassword:
		secret := append([]byte(nil), cred.Secret()...)
		secret = append(secret, '\n')
		return RemoteCommand{
			Argv:  append([]string{"sudo", "-S", "-p", ""}, argv...),
			Stdin: secret,
		}
	default:
		return RemoteCommand{Argv: argv}
	}
}

// LoadSequence is the remote command chain that imports a staged artifact:
// decompress, import into the namespace (escalated), remove the
// decompressed file. The transport runs the commands in order and stops at
// the first failure; the whole chain reports as one load outcome.
func LoadSequence(cred Credential, namespace string, art Artifact) []RemoteCommand {
	return []RemoteCommand{
		{Argv: []string{"gunzip", "-f", art.RemoteArchivePath()}},
		Escalate(cred, "ctr", "-n", namespace, "images", "import", art.RemoteImagePath()),
		{Argv: []string{"rm", "-f", art.RemoteImagePath()}},
	}
}

// ListImagesCommand queries the runtime's image listing, escalated the
// same way as the import.
func ListImagesCommand(cred Credential, namespace string) RemoteCommand {
	return Escalate(cred, "ctr", "-n", namespace, "images", "ls")
}

// ChecksumCommand computes the sha256 of a staged remote file.
func ChecksumCommand(path string) RemoteCommand {
	return RemoteCommand{Argv: []string{"sha256sum", path}}
}
