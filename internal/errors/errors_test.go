package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsInnermostCode(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(DatabaseError("save run", cause), "failed to persist run")

	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.True(t, HasCode(err, CodeDatabaseError))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to persist run: save run: connection refused", err.Error())
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	err := Wrapf(stderrors.New("boom"), "step %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "step 3: boom", err.Error())

	assert.NoError(t, Wrap(nil, "x"))
	assert.NoError(t, Wrapf(nil, "x %d", 1))
}

func TestWithCode(t *testing.T) {
	sentinel := stderrors.New("run not found")
	err := WithCode(CodeNotFound, fmt.Errorf("%w: abc", sentinel))
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.ErrorIs(t, err, sentinel)

	recoded := WithCode(CodeInvalidInput, ConfigInvalid("bad"))
	assert.Equal(t, CodeInvalidInput, GetCode(recoded))
	assert.False(t, HasCode(recoded, CodeConfigInvalid))

	assert.NoError(t, WithCode(CodeNotFound, nil))
}

func TestGetCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
	assert.False(t, HasCode(nil, CodeNotFound))
	assert.Equal(t, "run not found", NotFound("run").Error())
}
