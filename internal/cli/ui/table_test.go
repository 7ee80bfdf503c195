package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "ID", "KIND", "SINCE")
	table.AddRow("vote.cast", "function", "1")
	table.AddRow("ELECTION#Open()", "method", "2")
	table.AddRow("short")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"ID               KIND      SINCE",
		"───────────────  ────────  ─────",
		"vote.cast        function  1",
		"ELECTION#Open()  method    2",
		"short                      ",
	}, lines)
	assert.Equal(t, 3, table.Len())
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("protocolVersion", "3")
	kv.AddRow("version", "1.0.0")
	kv.Render()

	assert.Equal(t, "protocolVersion: 3\nversion:         1.0.0\n", buf.String())
}
