package lib

import (
	"encoding/json"
	"fmt"

	"github.com/jshufro/componentgen/candid"
)

// Principal identifies a component or user on the execution platform.
type Principal []byte

// ParsePrincipal decodes the textual form, e.g. "rrkah-fqaaa-aaaaa-aaaaq-cai".
func ParsePrincipal(text string) (Principal, error) {
	id, err := candid.ParsePrincipal(text)
	if err != nil {
		return nil, err
	}
	return Principal(id), nil
}

// MustPrincipal is ParsePrincipal for constants.
func MustPrincipal(text string) Principal {
	p, err := ParsePrincipal(text)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Principal) String() string {
	return candid.FormatPrincipal(p)
}

func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Principal) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := ParsePrincipal(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Env is the environment a component is initialized in.
type Env int

const (
	Production Env = iota
	LocalDevelopment
)

func (e Env) String() string {
	switch e {
	case Production:
		return "Production"
	case LocalDevelopment:
		return "LocalDevelopment"
	}
	return fmt.Sprintf("Env(%d)", int(e))
}

// ParseEnv is the inverse of Env.String.
func ParseEnv(s string) (Env, error) {
	switch s {
	case "Production":
		return Production, nil
	case "LocalDevelopment":
		return LocalDevelopment, nil
	}
	return 0, fmt.Errorf("unknown environment '%s'", s)
}
