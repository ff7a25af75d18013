package extension

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/jsonc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

//go:embed schema/extension.schema.json
var schemaBytes []byte

// builtinBytes are the notebook shorthands used when the cloned repository
// ships no extension file of its own.
//
//go:embed defaults/fenicsx_magic.jsonc
var builtinBytes []byte

// BuiltinSource is the Source of definitions registered by LoadOrBuiltin's
// fallback.
const BuiltinSource = "builtin:fenicsx_magic.jsonc"

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("extension.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("extension.schema.json")
	})
	return compiledSchema, compileErr
}

// Parse decodes and validates extension-definition content. source is
// recorded on every definition and used in error messages.
func Parse(data []byte, source string) (*File, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	plain := jsonc.ToJSON(data)
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", source, err)
	}
	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%s: %s", source, strings.Join(issues(ve), "; "))
		}
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var f File
	if err := json.Unmarshal(plain, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	seen := make(map[string]bool, len(f.Magics))
	for i := range f.Magics {
		name := f.Magics[i].Name
		if seen[name] {
			return nil, fmt.Errorf("%s: magic %q is defined twice", source, name)
		}
		seen[name] = true
		f.Magics[i].Source = source
	}
	return &f, nil
}

// Load reads path, validates it and registers its definitions into reg.
// Every failure is an ExitExtensionInvalid error.
func Load(path string, reg *Registry) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExtensionInvalid,
			"failed to read extension file", err)
	}

	f, err := Parse(data, path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExtensionInvalid,
			"invalid extension file", err)
	}

	if err := reg.Register(f.Magics...); err != nil {
		return nil, model.WrapCLIError(model.ExitExtensionInvalid,
			"failed to register extension", err)
	}
	return f.Magics, nil
}

// Builtin parses the embedded default definitions.
func Builtin() (*File, error) {
	return Parse(builtinBytes, BuiltinSource)
}

// LoadOrBuiltin behaves like Load, except that a missing path registers the
// embedded defaults instead of failing. builtin reports which one was used.
// A file that exists but cannot be read or parsed is still an error.
func LoadOrBuiltin(path string, reg *Registry) (defs []Definition, builtin bool, err error) {
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		defs, err = Load(path, reg)
		return defs, false, err
	}

	f, err := Builtin()
	if err != nil {
		return nil, true, model.WrapCLIError(model.ExitExtensionInvalid,
			"invalid built-in extension definitions", err)
	}
	if err := reg.Register(f.Magics...); err != nil {
		return nil, true, model.WrapCLIError(model.ExitExtensionInvalid,
			"failed to register extension", err)
	}
	return f.Magics, true, nil
}

// issues flattens the validation error tree into "path: message" lines.
func issues(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msg := e.Error()
			if e.ErrorKind != nil {
				msg = e.ErrorKind.LocalizedString(printer)
			}
			out = append(out, "/"+strings.Join(e.InstanceLocation, "/")+": "+msg)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
