package codegen

import (
	"github.com/BurntSushi/toml"

	"github.com/dicej/wit-bindgen-go/errors"
)

// Opts configures one generation run.
type Opts struct {
	// PackageName is the Go package name of the generated bindings.
	PackageName string `toml:"package"`

	// OutFile is the relative path of the bindings file inside the output
	// tree.
	OutFile string `toml:"out_file"`

	// Stubs adds a skeleton implementation file with panicking bodies for
	// every export, to be filled in by hand.
	Stubs bool `toml:"stubs"`
}

// DefaultOpts returns the configuration used when no config file is given.
func DefaultOpts() Opts {
	return Opts{
		PackageName: "bindings",
		OutFile:     "bindings.go",
	}
}

// LoadOpts reads a TOML config file, layering it over the defaults.
func LoadOpts(path string) (Opts, error) {
	opts := DefaultOpts()
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Opts{}, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Cause(err).
			Detail("config file %s", path).
			Build()
	}
	return opts, nil
}

func (o Opts) withDefaults() Opts {
	if o.PackageName == "" {
		o.PackageName = "bindings"
	}
	if o.OutFile == "" {
		o.OutFile = "bindings.go"
	}
	return o
}
