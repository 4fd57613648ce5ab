package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOTP(t *testing.T) {
	assert.True(t, IsOTP("123456"))
	assert.True(t, IsOTP("000000"))
	assert.False(t, IsOTP("12345"))
	assert.False(t, IsOTP("1234567"))
	assert.False(t, IsOTP("12a456"))
	assert.False(t, IsOTP("-12345"))
	assert.False(t, IsOTP(""))
}

func TestStruct_CustomTags(t *testing.T) {
	type form struct {
		OTP   string `validate:"otp"`
		Phone string `validate:"phone"`
	}

	assert.NoError(t, Struct(form{OTP: "654321", Phone: "+1 (555) 123-4567"}))

	err := Struct(form{OTP: "65432", Phone: "555-1234"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "field 'OTP' failed 'otp'")
		assert.Contains(t, err.Error(), "field 'Phone' failed 'phone'")
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "15551234567", Digits("+1 (555) 123-4567"))
	assert.Equal(t, "", Digits("abc"))
}
