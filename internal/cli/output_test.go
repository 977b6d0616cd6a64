package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JacobsonMT/ndb/internal/event"
	"github.com/JacobsonMT/ndb/internal/testutil"
	"github.com/JacobsonMT/ndb/internal/variant"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "trace-1",
	}

	err := formatter.Success(map[string]int{"papers": 2}, nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeDatabase, "failed to open database", map[string]string{"path": "x.db"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E002", resp.Error.Code)
	assert.Equal(t, "failed to open database", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
	assert.Empty(t, resp.TraceID)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("7 variants", nil))
	assert.Equal(t, "7 variants\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(42, func(w io.Writer) error {
		_, err := fmt.Fprint(w, "custom")
		return err
	}))
	assert.Equal(t, "custom", buf.String())
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	require.NoError(t, formatter.Error("E001", "invalid region", map[string]string{"region": "x"}))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E001]: invalid region")
	assert.Contains(t, errOut.String(), "Details:")
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(usageError("bad", nil)))
	assert.Equal(t, ExitCommandError, GetExitCode(databaseError("bad", errors.New("locked"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(&ExitError{Code: ExitFailure, ErrCode: ErrCodeStats, Message: "x"}))

	wrapped := fmt.Errorf("outer: %w", usageError("inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}

func TestGetErrCode(t *testing.T) {
	_, integrity := event.Group([]variant.Record{testutil.Variant(3, 0, "1", 1, 1)})
	require.Error(t, integrity)

	assert.Equal(t, ErrCodeUsage, GetErrCode(usageError("x", nil)))
	assert.Equal(t, ErrCodeDatabase, GetErrCode(databaseError("x", nil)))
	assert.Equal(t, ErrCodeIntegrity, GetErrCode(integrity))
	assert.Equal(t, ErrCodeUsage, GetErrCode(errors.New("unknown command")))

	details, ok := errorDetails(integrity).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MISSING_EVENT_ID", details["reason"])
	assert.Equal(t, int64(3), details["variant_id"])
	assert.Nil(t, errorDetails(errors.New("x")))
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
