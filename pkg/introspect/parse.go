package introspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/record"
)

// ErrNoDerivation is the cause of an INTROSPECT_EMPTY error: nix printed
// nothing or an empty object.
var ErrNoDerivation = errors.New("no derivation in output")

// derivationSchema describes the output of `nix derivation show`: a single
// store path mapped to its build description.
const derivationSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"minProperties": 1,
	"maxProperties": 1,
	"additionalProperties": {
		"type": "object",
		"required": ["outputs", "inputDrvs", "inputSrcs"],
		"properties": {
			"outputs": {"type": "object"},
			"inputDrvs": {"type": "object"},
			"inputSrcs": {
				"type": "array",
				"items": {"type": "string"}
			}
		}
	}
}`

var schema = jsonschema.MustCompileString("derivation.json", derivationSchema)

// Parse decodes the output of `nix derivation show` for one attribute.
//
// Empty output and `{}` return an INTROSPECT_EMPTY error wrapping
// ErrNoDerivation. Anything that is not a single derivation with outputs,
// inputDrvs and inputSrcs returns a MALFORMED_DERIVATION error, as does a
// derivation or input key that is not a .drv file directly in the store.
// Outputs and input derivations are returned sorted.
func Parse(data []byte) (*record.Derivation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.Wrap(errs.ErrCodeIntrospectEmpty, ErrNoDerivation, "empty output")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedDerivation, err, "invalid JSON")
	}
	if obj, ok := doc.(map[string]any); ok && len(obj) == 0 {
		return nil, errs.Wrap(errs.ErrCodeIntrospectEmpty, ErrNoDerivation, "empty object")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedDerivation, err, "unexpected derivation shape")
	}

	var raw map[string]struct {
		Outputs   map[string]json.RawMessage `json:"outputs"`
		InputDrvs map[string]json.RawMessage `json:"inputDrvs"`
		InputSrcs []string                   `json:"inputSrcs"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedDerivation, err, "decode derivation")
	}

	for path, body := range raw {
		if strings.TrimSpace(path) == "" {
			return nil, errs.New(errs.ErrCodeMalformedDerivation, "empty derivation path")
		}
		if err := record.ValidateDrvPath(path); err != nil {
			return nil, errs.Wrap(errs.ErrCodeMalformedDerivation, err, "derivation key")
		}
		for dep := range body.InputDrvs {
			if err := record.ValidateDrvPath(dep); err != nil {
				return nil, errs.Wrap(errs.ErrCodeMalformedDerivation, err, "input derivation")
			}
		}
		d := &record.Derivation{
			Path:      path,
			Outputs:   sortedKeys(body.Outputs),
			InputDrvs: sortedKeys(body.InputDrvs),
			InputSrcs: body.InputSrcs,
		}
		if d.InputSrcs == nil {
			d.InputSrcs = []string{}
		}
		return d, nil
	}
	// Unreachable: the schema requires exactly one property.
	return nil, errs.New(errs.ErrCodeMalformedDerivation, "no derivation entry")
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
