package inspect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/stretchr/testify/require"
)

func TestEncodeEmitsRecordedEventsThenEndRecord(t *testing.T) {
	ctx := compctx.New(compctx.ModeInspect)
	ctx.EmitInspect(compctx.InspectEvent{Kind: "file", File: "main.lo"})
	ctx.EmitInspect(compctx.InspectEvent{Kind: "file", File: "util.lo"})

	out, err := Encode(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)

	var first compctx.InspectEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "file", first.Kind)
	require.Equal(t, "main.lo", first.File)

	var last compctx.InspectEvent
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	require.Equal(t, "end", last.Kind)
}

func TestEncodeWithNoEventsStillEmitsEndRecord(t *testing.T) {
	ctx := compctx.New(compctx.ModeInspect)
	out, err := Encode(ctx)
	require.NoError(t, err)

	var only compctx.InspectEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(out))), &only))
	require.Equal(t, "end", only.Kind)
}

func TestEmitInspectIsANoOpOutsideInspectMode(t *testing.T) {
	ctx := compctx.New(compctx.ModeCompile)
	ctx.EmitInspect(compctx.InspectEvent{Kind: "file", File: "main.lo"})
	require.Empty(t, ctx.InspectEvents)
}
