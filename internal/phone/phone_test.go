package phone

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "10 digit US", input: "3076249136", expected: "+13076249136"},
		{name: "formatted US", input: "(307) 624-9136", expected: "+13076249136"},
		{name: "11 digit with leading 1", input: "13076249136", expected: "+13076249136"},
		{name: "already canonical", input: "+13076249136", expected: "+13076249136"},
		{name: "UK mobile", input: "447911123456", expected: "+447911123456"},
		{name: "11 digit international", input: "44791112345", expected: "+44791112345"},
		{name: "7 digits", input: "5551234", expected: "+5551234"},
		{name: "15 digits", input: "123456789012345", expected: "+123456789012345"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace", input: "   ", wantErr: true},
		{name: "no digits", input: "call me", wantErr: true},
		{name: "too short", input: "123456", wantErr: true},
		{name: "too long", input: "1234567890123456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPhoneNumber))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"3076249136",
		"+1 (307) 624-9136",
		"447911123456",
		"5551234",
		"123456789012345",
		"1-800-555-0199",
	}

	for _, in := range inputs {
		once, err := Normalize(in)
		require.NoError(t, err, in)

		twice, err := Normalize(once)
		require.NoError(t, err, in)

		assert.Equal(t, once, twice, in)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"3076249136", true},
		{"+13076249136", true},
		{"447911123456", true},
		{"5551234", true},
		{"123456", false},
		{"1234567890123456", false},
		{"", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValid(tt.input))
		})
	}
}

func TestToDisplay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "US", input: "+13076249136", expected: "(307) 624-9136"},
		{name: "US raw", input: "3076249136", expected: "(307) 624-9136"},
		{name: "international", input: "+447911123456", expected: "+44 791 112 3456"},
		{name: "short international", input: "5551234", expected: "+5551234"},
		{name: "invalid returned unchanged", input: "not a number", expected: "not a number"},
		{name: "empty returned unchanged", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToDisplay(tt.input))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("(307) 624-9136", "+13076249136"))
	assert.False(t, Equal("3076249136", "3076249137"))
	assert.False(t, Equal("", ""))
}
