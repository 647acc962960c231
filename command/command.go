// Package command implements HERO's canonical payload encoding: a
// two-character mnemonic, a '|' separator, and semicolon-terminated
// positional arguments. It also holds the process-wide mnemonic registry
// higher layers use to register symbolic command names.
package command

import (
	"errors"
	"strings"
)

// ErrInvalidMnemonic is returned by Register when code is not exactly two
// characters.
var ErrInvalidMnemonic = errors.New("command: mnemonic code must be exactly two characters")

// Encode produces "mnemonic|arg0;arg1;...;argN;" as UTF-8 bytes. Every
// argument, including the last, is terminated by ';'. mnemonic is resolved
// through the default Registry first; an unregistered name is used as-is.
func Encode(mnemonic string, args []string) []byte {
	return DefaultRegistry.Encode(mnemonic, args)
}

// Decode splits data into a mnemonic and its arguments. If no '|' is
// present, it returns the whole input as the mnemonic with no arguments.
// Decoding never fails: adversarial input just produces a possibly-empty
// argument vector.
func Decode(data []byte) (mnemonic string, args []string) {
	text := string(data)

	head, tail, found := strings.Cut(text, "|")
	if !found {
		return text, nil
	}

	parts := strings.Split(tail, ";")
	// Every well-formed argument is terminated by ';', which leaves exactly
	// one trailing empty segment after Split; drop only that one, so a
	// caller's own empty-string argument in the middle or at the end isn't
	// mistaken for the terminator and silently eaten.
	if last := len(parts) - 1; parts[last] == "" {
		parts = parts[:last]
	}
	if len(parts) == 0 {
		return head, nil
	}
	args = parts
	return head, args
}

// Encode on a Registry resolves mnemonic through that registry's mapping
// before building the wire form.
func (r *Registry) Encode(mnemonic string, args []string) []byte {
	code := r.Get(mnemonic)

	var b strings.Builder
	b.WriteString(code)
	b.WriteByte('|')
	for _, a := range args {
		b.WriteString(a)
		b.WriteByte(';')
	}
	return []byte(b.String())
}
