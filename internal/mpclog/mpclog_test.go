package mpclog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoggerAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{JSON: true, Level: logrus.InfoLevel, Output: &buf})
	l = l.WithComputation("comp-1").WithProtocol("0.2").WithStep(3)
	l.Infof("dispatching")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "comp-1", out["computation_id"])
	require.Equal(t, "0.2", out["protocol_address"])
	require.EqualValues(t, 3, out["step"])
	require.Equal(t, "dispatching", out["msg"])
}

func TestLoggerWithErrorAndField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{JSON: true, Level: logrus.ErrorLevel, Output: &buf})
	l.WithField("kind", "MultiplicationTriple").WithError(errBoom).Errorf("pool exhausted")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "MultiplicationTriple", out["kind"])
	require.Equal(t, errBoom.Error(), out["error"])
}

var errBoom = errBoomT{}

type errBoomT struct{}

func (errBoomT) Error() string { return "boom" }
