package config

import (
	"fmt"
	"strings"
)

// Prompter asks the operator for a line of input.
type Prompter interface {
	Prompt(label string) (string, error)
}

// Resolver fills configuration values from, in order: the record itself,
// the environment, an interactive prompt, and the key's default.
type Resolver struct {
	lookupEnv   func(string) (string, bool)
	prompter    Prompter
	interactive bool
}

// NewResolver builds a resolver. With interactive unset, or a nil prompter,
// no prompt is shown and defaults are accepted silently.
func NewResolver(lookupEnv func(string) (string, bool), prompter Prompter, interactive bool) *Resolver {
	if lookupEnv == nil {
		lookupEnv = func(string) (string, bool) { return "", false }
	}
	return &Resolver{
		lookupEnv:   lookupEnv,
		prompter:    prompter,
		interactive: interactive && prompter != nil,
	}
}

// Resolve returns the value for key and writes it into rec. It never fails;
// an empty result is carried forward and left to the caller to reject.
// A nil rec is resolved against but not written.
func (r *Resolver) Resolve(rec Record, key Key) string {
	if v := rec.Get(key.Name); v != "" {
		return v
	}

	value := r.fromEnv(key)
	if value == "" && r.interactive {
		value = r.ask(key)
	}
	if value == "" {
		value = key.Default
	}

	rec.Set(key.Name, value)
	return value
}

// ResolveAll resolves every key in order.
func (r *Resolver) ResolveAll(rec Record, keys ...Key) {
	for _, key := range keys {
		r.Resolve(rec, key)
	}
}

// Confirm asks a yes/no question; a blank answer or a non-interactive
// resolver returns def.
func (r *Resolver) Confirm(question string, def bool) bool {
	if !r.interactive {
		return def
	}
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	answer, err := r.prompter.Prompt(fmt.Sprintf("%s %s: ", question, hint))
	if err != nil {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def
	case "y", "yes", "true":
		return true
	default:
		return false
	}
}

func (r *Resolver) fromEnv(key Key) string {
	for _, name := range key.EnvVars {
		if v, ok := r.lookupEnv(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func (r *Resolver) ask(key Key) string {
	label := key.Prompt
	if label == "" {
		label = "Enter " + key.Name + ": "
	}
	if key.Default != "" {
		label = fmt.Sprintf("%s(%s) ", label, key.Default)
	}
	answer, err := r.prompter.Prompt(label)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(answer)
}

// Require returns a MissingValueError for the first key left empty in rec.
func Require(rec Record, keys ...Key) error {
	for _, key := range keys {
		if strings.TrimSpace(rec.Get(key.Name)) == "" {
			return &MissingValueError{Key: key.Name, EnvVars: key.EnvVars}
		}
	}
	return nil
}
