// Package abisig parses contract method signatures of the form
// "name(type,...):(type,...)" and maps their ABI types onto Go types.
package abisig

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jshufro/componentgen/errdefs"
)

var signaturePattern = regexp.MustCompile(`^(?P<identifier>[A-Za-z_$][A-Za-z0-9_$]*)\((?P<params>.*?)\)(?::\((?P<return>.*)\))?$`)

// ContractMethodIdentifier is a parsed contract method signature.
type ContractMethodIdentifier struct {
	Identifier  string
	Params      []TargetType
	ReturnValue []TargetType

	// ABI spellings, with implicit widths made explicit.
	ParamTypes  []string
	ReturnTypes []string
}

// ParseContractMethod parses a signature such as "balanceOf(address):(uint256)".
// The return group is optional.
func ParseContractMethod(signature string) (*ContractMethodIdentifier, error) {
	sig := strings.Join(strings.Fields(signature), "")
	m := signaturePattern.FindStringSubmatch(sig)
	if m == nil {
		return nil, &errdefs.SignatureParseError{Signature: signature, Reason: "expected 'name(type,...)' or 'name(type,...):(type,...)'"}
	}

	out := &ContractMethodIdentifier{
		Identifier: m[signaturePattern.SubexpIndex("identifier")],
	}

	var err error
	out.ParamTypes, out.Params, err = parseGroup(signature, m[signaturePattern.SubexpIndex("params")])
	if err != nil {
		return nil, err
	}
	out.ReturnTypes, out.ReturnValue, err = parseGroup(signature, m[signaturePattern.SubexpIndex("return")])
	if err != nil {
		return nil, err
	}

	return out, nil
}

func parseGroup(signature, group string) ([]string, []TargetType, error) {
	if group == "" {
		return []string{}, []TargetType{}, nil
	}
	if strings.ContainsAny(group, "()") {
		return nil, nil, &errdefs.UnsupportedTypeError{Type: group, Context: "tuples must be flattened"}
	}

	parts := strings.Split(group, ",")
	names := make([]string, 0, len(parts))
	types := make([]TargetType, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, nil, &errdefs.SignatureParseError{Signature: signature, Fragment: group, Reason: "empty type in list"}
		}
		t, err := MapABIType(p)
		if err != nil {
			var spe *errdefs.SignatureParseError
			if errors.As(err, &spe) {
				spe.Signature = signature
			}
			return nil, nil, err
		}
		names = append(names, normalize(p))
		types = append(types, t)
	}
	return names, types, nil
}

// Selector is the canonical "name(type,...)" form hashed into the method id.
func (c *ContractMethodIdentifier) Selector() string {
	return fmt.Sprintf("%s(%s)", c.Identifier, strings.Join(c.ParamTypes, ","))
}

// MethodID is the 4-byte selector of the method.
func (c *ContractMethodIdentifier) MethodID() []byte {
	return crypto.Keccak256([]byte(c.Selector()))[:4]
}

// Render prints the signature back in the form ParseContractMethod accepts.
func (c *ContractMethodIdentifier) Render() string {
	if len(c.ReturnTypes) == 0 {
		return c.Selector()
	}
	return fmt.Sprintf("%s:(%s)", c.Selector(), strings.Join(c.ReturnTypes, ","))
}

// MatchABI finds the method in a loaded interface and returns the name
// go-ethereum registered it under (overloads get a numeric suffix).
func (c *ContractMethodIdentifier) MatchABI(contract *abi.ABI) (string, error) {
	id := c.MethodID()
	for name, method := range contract.Methods {
		if string(method.ID) != string(id) {
			continue
		}
		if len(c.ReturnTypes) > 0 {
			if len(method.Outputs) != len(c.ReturnTypes) {
				return "", &errdefs.SignatureParseError{
					Signature: c.Render(),
					Reason:    fmt.Sprintf("interface declares %d return values, signature %d", len(method.Outputs), len(c.ReturnTypes)),
				}
			}
			for i, out := range method.Outputs {
				if out.Type.String() != c.ReturnTypes[i] {
					return "", &errdefs.SignatureParseError{
						Signature: c.Render(),
						Fragment:  c.ReturnTypes[i],
						Reason:    fmt.Sprintf("interface returns %s", out.Type.String()),
					}
				}
			}
		}
		return name, nil
	}
	return "", &errdefs.SignatureParseError{Signature: c.Render(), Reason: "method is not declared in the interface"}
}
