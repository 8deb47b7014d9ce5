package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	assert.Equal(t, "rl:form_donor:203.0.113.9", NewKey(ActionDonorForm, "203.0.113.9"))
	assert.Equal(t, "rl:pickup_check:2001_db8__1", NewKey(ActionPickupCheck, "2001:db8::1"))
	assert.NotEqual(t,
		NewKey(ActionLogin, "a:form_donor"),
		"rl:login:a"+":form_donor",
		"colons in identity must not create new segments")
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailOpen, p)

	p, err = ParseFailurePolicy("closed")
	require.NoError(t, err)
	assert.Equal(t, FailClosed, p)

	_, err = ParseFailurePolicy("maybe")
	assert.Error(t, err)
}

func TestAction_IsValid(t *testing.T) {
	assert.True(t, ActionPickupConfirm.IsValid())
	assert.False(t, Action("export").IsValid())
}
