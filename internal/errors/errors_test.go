package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ConfigInvalid("kpis[0].formulaKey", "unknown formula")
	wrapped := fmt.Errorf("resolve acme: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrConfigInvalid))
	assert.False(t, stderrors.Is(wrapped, ErrConfigNotFound))
	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Equal(t, "kpis[0].formulaKey", GetField(wrapped))
}

func TestWrapKeepsCodeAndField(t *testing.T) {
	inner := DataSourceFetchFailed("openAR", "ar.csv", stderrors.New("connection reset"))
	err := Wrap(inner, "load failed")

	assert.Equal(t, CodeDataSourceFetchFailed, GetCode(err))
	assert.Equal(t, "dataSources.openAR", GetField(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapPlainError(t *testing.T) {
	err := Wrapf(stderrors.New("boom"), "step %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "step 3: boom", err.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestErrorMessageIncludesField(t *testing.T) {
	err := ConfigInvalid("layout.sections[1]", `unknown section "heatmap"`)
	assert.Equal(t, `layout.sections[1]: unknown section "heatmap"`, err.Error())
}
