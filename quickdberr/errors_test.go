package quickdberr_test

import (
	"testing"

	"github.com/forbearing/quickdb/quickdberr"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := quickdberr.Validation("age", "must be >= 0")
	assert.True(t, quickdberr.Is(err, quickdberr.KindValidation))
	assert.Contains(t, err.Error(), "age")
	assert.Contains(t, err.Error(), "must be >= 0")
}

func TestAliasNotFound(t *testing.T) {
	err := quickdberr.AliasNotFound("reporting")
	assert.True(t, quickdberr.Is(err, quickdberr.KindAliasNotFound))
	assert.Equal(t, "reporting", err.Alias)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, quickdberr.IsDuplicate(quickdberr.Query(nil, "index %q already exists", "idx_users_name")))
	assert.True(t, quickdberr.IsDuplicate(quickdberr.Other(nil, "Duplicate key error")))
	assert.False(t, quickdberr.IsDuplicate(quickdberr.Query(nil, "syntax error")))
	assert.False(t, quickdberr.IsDuplicate(nil))
}

func TestLocalize(t *testing.T) {
	assert.Equal(t, "validation error", quickdberr.LocalizeIn("en", quickdberr.KindValidation))
	assert.Equal(t, "校验错误", quickdberr.LocalizeIn("zh", quickdberr.KindValidation))
	assert.Equal(t, "validation error", quickdberr.LocalizeIn("fr", quickdberr.KindValidation))
}
