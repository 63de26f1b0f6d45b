// Package interp implements the `[[NAME]]` secret/variable interpolator
// (spec §4.4). No teacher or pack example implements this token syntax, so
// this is a fresh implementation using stdlib regexp rather than reaching
// for a templating library whose delimiter conventions wouldn't match
// (see DESIGN.md).
package interp

import (
	"fmt"
	"regexp"

	"github.com/komodo-io/komodo-core/internal/komodoerr"
)

// tokenPattern matches `[[NAME]]` tokens; NAME may contain letters, digits,
// underscore, dot, and hyphen.
var tokenPattern = regexp.MustCompile(`\[\[([A-Za-z0-9_.\-]+)\]\]`)

// Snapshot is the {variables, secrets} lookup table fetched once at
// operation start (spec §4.4).
type Snapshot struct {
	Variables map[string]string
	Secrets   map[string]string
}

// Result carries the interpolated string plus which token names were
// variables vs secrets, for later log sanitization (secret values must
// never appear in persisted Logs).
type Result struct {
	Value           string
	GlobalReplacers []string // variable names substituted
	SecretReplacers []string // secret names substituted
}

// Interpolate replaces every `[[NAME]]` token in s using snap. Returns
// komodoerr.Interpolation if any token name is undefined in both maps.
func Interpolate(s string, snap Snapshot) (Result, error) {
	res := Result{Value: s}
	var firstErr error

	res.Value = tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := tokenPattern.FindStringSubmatch(tok)[1]
		if v, ok := snap.Variables[name]; ok {
			res.GlobalReplacers = append(res.GlobalReplacers, name)
			return v
		}
		if v, ok := snap.Secrets[name]; ok {
			res.SecretReplacers = append(res.SecretReplacers, name)
			return v
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("undefined token: %s", name)
		}
		return tok
	})

	if firstErr != nil {
		return Result{}, komodoerr.Wrap(komodoerr.Interpolation, "interp.Interpolate", firstErr)
	}
	return res, nil
}

// InterpolateAll runs Interpolate over every string in ss, aggregating the
// replacer lists — used for extra-arg lists and similar `[]string` fields.
func InterpolateAll(ss []string, snap Snapshot) ([]string, Result, error) {
	out := make([]string, len(ss))
	var agg Result
	for i, s := range ss {
		r, err := Interpolate(s, snap)
		if err != nil {
			return nil, Result{}, err
		}
		out[i] = r.Value
		agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
		agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)
	}
	return out, agg, nil
}

// InterpolateMap runs Interpolate over every value of m (keys are left
// untouched), aggregating the replacer lists — used for Environment maps.
func InterpolateMap(m map[string]string, snap Snapshot) (map[string]string, Result, error) {
	if m == nil {
		return nil, Result{}, nil
	}
	out := make(map[string]string, len(m))
	var agg Result
	for k, v := range m {
		r, err := Interpolate(v, snap)
		if err != nil {
			return nil, Result{}, err
		}
		out[k] = r.Value
		agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
		agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)
	}
	return out, agg, nil
}

// PathCommand is the {path, command} pair used by Stack.Config.pre_deploy.
type PathCommand struct {
	Path    string
	Command string
}

// InterpolatePathCommand interpolates both fields of a PathCommand.
func InterpolatePathCommand(pc PathCommand, snap Snapshot) (PathCommand, Result, error) {
	var agg Result
	p, err := Interpolate(pc.Path, snap)
	if err != nil {
		return PathCommand{}, Result{}, err
	}
	c, err := Interpolate(pc.Command, snap)
	if err != nil {
		return PathCommand{}, Result{}, err
	}
	agg.GlobalReplacers = append(agg.GlobalReplacers, p.GlobalReplacers...)
	agg.GlobalReplacers = append(agg.GlobalReplacers, c.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, p.SecretReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, c.SecretReplacers...)
	return PathCommand{Path: p.Value, Command: c.Value}, agg, nil
}

// Sanitize redacts every occurrence of each secret value in s with
// `[[NAME]]`, for safe inclusion in persisted Logs (spec §4.4 "secrets
// never appear in Update logs").
func Sanitize(s string, snap Snapshot, secretNames []string) string {
	for _, name := range secretNames {
		v, ok := snap.Secrets[name]
		if !ok || v == "" {
			continue
		}
		s = regexp.MustCompile(regexp.QuoteMeta(v)).ReplaceAllString(s, "[["+name+"]]")
	}
	return s
}
