package reader

import (
	"errors"

	"github.com/goksuguvendiren/optix-renderer/material"
)

var (
	ErrMissingField            = errors.New("reader: missing required field")
	ErrMalformedField          = errors.New("reader: malformed field")
	ErrUnsupportedMaterialType = material.ErrUnsupportedType
)
