package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/families"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/reload"
)

func TestLineSink(t *testing.T) {
	buf := &bytes.Buffer{}
	reg := families.Builtin()
	coord := reload.New(families.DefaultPipeline(reg, nil), newLineSink(buf),
		reload.WithIndexer(index.New(reg.Table())),
	)

	ctx := context.Background()
	_, err := coord.Update(ctx, "/guide", []byte("<html><body><h1>Guide</h1><p>one</p></body></html>"))
	require.NoError(t, err)
	_, err = coord.Update(ctx, "/guide", []byte("<html><body><h1>Guide</h1><p>two</p></body></html>"))
	require.NoError(t, err)

	var lines []PatchLine
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var l PatchLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)

	first := lines[0]
	assert.Equal(t, "/guide", first.Page)
	assert.Equal(t, uint64(1), first.Generation)
	assert.True(t, first.Reload)
	assert.Equal(t, reload.ReasonNoSnapshot, first.Reason)
	assert.Contains(t, first.HTML, `<h1 id="guide" data-vid="`)
	assert.Empty(t, first.Ops)

	second := lines[1]
	assert.Equal(t, uint64(2), second.Generation)
	assert.False(t, second.Reload)
	assert.Empty(t, second.HTML)
	require.Len(t, second.Ops, 1)
	assert.Equal(t, "update_text", string(second.Ops[0].Op))
	require.NotNil(t, second.Ops[0].Text)
	assert.Equal(t, "two", *second.Ops[0].Text)
	assert.NotEqual(t, first.RunID, second.RunID)
}
