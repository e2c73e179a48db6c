package validators

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Text  string `validate:"required,max=5"`
	Scope string `validate:"omitempty,oneof=public private"`
}

func TestValidateReturnsBadRequest(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&sample{Text: "ok"}))

	err := v.Validate(&sample{Text: "toolong"})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)

	assert.Error(t, v.Struct(&sample{Text: "ok", Scope: "friends"}))
}
