package wasmout

import "errors"

var (
	errOverflow  = errors.New("wasmout: leb128 overflow")
	errTruncated = errors.New("wasmout: truncated leb128")
)
