// Package script renders the deployment script of a component: init, setup
// and timer start, as dfx calls against one network.
package script

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/jshufro/componentgen/candid"
)

// Network a script deploys to.
type Network string

const (
	NetworkLocal Network = "local"
	NetworkIC    Network = "ic"
)

// Networks lists the supported networks.
var Networks = []Network{NetworkLocal, NetworkIC}

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkLocal, NetworkIC:
		return Network(s), nil
	}
	return "", fmt.Errorf("unknown network '%s', expected '%s' or '%s'", s, NetworkLocal, NetworkIC)
}

// Env is the environment variant components are initialized with.
func (n Network) Env() string {
	if n == NetworkIC {
		return "Production"
	}
	return "LocalDevelopment"
}

// flag is the dfx network selection, empty for the local replica.
func (n Network) flag() string {
	if n == NetworkIC {
		return " --network ic"
	}
	return ""
}

// CanisterRef is a principal looked up by component name when the script
// runs.
type CanisterRef struct {
	Name string
}

func (CanisterRef) Type() candid.Type { return &candid.Prim{Name: candid.Principal} }

func (r CanisterRef) String() string {
	return fmt.Sprintf(`principal "$(dfx canister id %s)"`, r.Name)
}

// Timer is the schedule passed to set_task, in seconds.
type Timer struct {
	Interval uint32
	Delay    uint32
}

// Script describes the calls made to deploy one component.
type Script struct {
	Label   string
	Network Network
	// Setup arguments; nil when the component has no setup call.
	Setup []candid.Value
	// Timer is nil for components without a periodic task.
	Timer *Timer
}

var scriptTemplate = template.Must(template.New("script").Parse(`#!/bin/bash
# Code generated by componentgen. DO NOT EDIT.
# Deploys {{ .Label }} to the {{ .Network }} network.

dfx canister{{ .Flag }} call {{ .Label }} init_in '(variant { {{ .Env }} })'
{{- if .Setup }}
dfx canister{{ .Flag }} call {{ .Label }} setup "{{ .Setup }}"
{{- end }}
{{- if .Timer }}
dfx canister{{ .Flag }} call {{ .Label }} set_task '({{ .Timer.Interval }} : nat32, {{ .Timer.Delay }} : nat32)'
{{- end }}
`))

// Generate renders the script.
func Generate(s Script) (string, error) {
	if s.Label == "" {
		return "", fmt.Errorf("script needs a component label")
	}
	if _, err := ParseNetwork(string(s.Network)); err != nil {
		return "", err
	}

	data := struct {
		Label   string
		Network Network
		Flag    string
		Env     string
		Setup   string
		Timer   *Timer
	}{
		Label:   s.Label,
		Network: s.Network,
		Flag:    s.Network.flag(),
		Env:     s.Network.Env(),
		Timer:   s.Timer,
	}
	if s.Setup != nil {
		data.Setup = setupArgument(s.Network, s.Setup)
	}

	var b strings.Builder
	if err := scriptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("error rendering script of %s: %w", s.Label, err)
	}
	return b.String(), nil
}

// refMarker stands in for a looked up principal until the argument has been
// escaped for the shell.
type refMarker int

func (refMarker) Type() candid.Type { return &candid.Prim{Name: candid.Principal} }

func (m refMarker) String() string { return fmt.Sprintf("\x00%d\x00", int(m)) }

// setupArgument renders args as the body of a double quoted shell word.
func setupArgument(network Network, args []candid.Value) string {
	var refs []string
	var mark func(v candid.Value) candid.Value
	mark = func(v candid.Value) candid.Value {
		switch v := v.(type) {
		case CanisterRef:
			refs = append(refs, v.Name)
			return refMarker(len(refs) - 1)
		case candid.OptValue:
			if v.Value != nil {
				v.Value = mark(v.Value)
			}
			return v
		case candid.VecValue:
			values := make([]candid.Value, len(v.Values))
			for i, e := range v.Values {
				values[i] = mark(e)
			}
			v.Values = values
			return v
		case candid.RecordValue:
			fields := make([]candid.FieldValue, len(v.Fields))
			for i, f := range v.Fields {
				fields[i] = candid.FieldValue{Name: f.Name, Value: mark(f.Value)}
			}
			v.Fields = fields
			return v
		case candid.VariantValue:
			v.Value = mark(v.Value)
			return v
		}
		return v
	}

	marked := make([]candid.Value, len(args))
	for i, a := range args {
		marked[i] = mark(a)
	}
	out := escape(candid.Format(marked...))
	for i, name := range refs {
		lookup := fmt.Sprintf(`principal \"$(dfx canister%s id %s)\"`, network.flag(), name)
		out = strings.Replace(out, refMarker(i).String(), lookup, 1)
	}
	return out
}

var shellEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)

// escape makes s literal inside a double quoted shell word.
func escape(s string) string {
	return shellEscaper.Replace(s)
}
