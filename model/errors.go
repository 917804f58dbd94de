package model

import "errors"

var (
	// ErrUnaddressable unaddressable value
	ErrUnaddressable = errors.New("using unaddressable value")
	// ErrUnsupportedConversion the value cannot be stored in the field
	ErrUnsupportedConversion = errors.New("unsupported conversion")
)
