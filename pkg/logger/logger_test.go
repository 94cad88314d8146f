package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	defer Init(false, nil)

	Log().Debug("hidden")
	assert.Empty(t, buf.String())

	WithFields(logrus.Fields{"run_id": "abc", "server": "sql01"}).Info("audited")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audited", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "sql01", entry["server"])
}

func TestInit_DebugText(t *testing.T) {
	var buf bytes.Buffer
	Init(true, &buf)
	defer Init(false, nil)

	Log().Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "level=debug")
}

func TestOutput(t *testing.T) {
	w, err := Output("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)

	path := filepath.Join(t.TempDir(), "logs", "auditor.log")
	w, err = Output(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
