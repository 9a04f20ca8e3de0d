// Package inspect implements the `--inspect` JSON event stream: one JSON
// object per line (file/link/hover records collected during parsing, plus
// a trailing end record), per spec §9's supplemented inspect mode.
package inspect

import (
	"bytes"
	"encoding/json"

	"github.com/lo-lang/locc/internal/compctx"
)

// Encode serializes ctx.InspectEvents as newline-delimited JSON, terminated
// by a single `{"kind":"end"}` record marking a completed, error-free pass.
func Encode(ctx *compctx.ModuleContext) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range ctx.InspectEvents {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	if err := enc.Encode(compctx.InspectEvent{Kind: "end"}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
