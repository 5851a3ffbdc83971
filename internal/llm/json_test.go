package llm

import (
	"errors"
	"testing"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject_Fenced(t *testing.T) {
	response := "Here is the analysis:\n```json\n{\"intent_type\": \"rules_lookup\"}\n```\nDone."

	obj, err := ExtractJSONObject(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent_type": "rules_lookup"}`, obj)
}

func TestExtractJSONObject_Bare(t *testing.T) {
	obj, err := ExtractJSONObject(`The result is {"requires_dice_roll": true} as requested.`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requires_dice_roll": true}`, obj)
}

func TestExtractJSONObject_None(t *testing.T) {
	_, err := ExtractJSONObject("I cannot answer that.")
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeParse, domainErr.Code)
}

func TestExtractJSONArray_Fenced(t *testing.T) {
	arr, err := ExtractJSONArray("```\n[2, 0, 4]\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `[2, 0, 4]`, arr)
}

func TestExtractJSONArray_Bare(t *testing.T) {
	arr, err := ExtractJSONArray("Top picks: [1, 3]")
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 3]`, arr)
}

func TestExtractJSONArray_None(t *testing.T) {
	_, err := ExtractJSONArray("no selection possible")
	assert.ErrorIs(t, err, domain.ErrNoJSONInResponse)
}
