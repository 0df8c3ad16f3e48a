package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrNoRecord(t *testing.T) {
	err := NewErrNoRecord("10")
	assert.Equal(t, "no record by ID 10", err.Error())
}

func TestErrNoRecord_As(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewErrNoRecord("10"))
	var errTest *ErrNoRecord
	assert.True(t, errors.As(err, &errTest))
	assert.Equal(t, "10", errTest.ID)
}
