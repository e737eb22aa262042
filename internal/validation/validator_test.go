package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"UPPER_case%x@EXAMPLE.ORG", true},
		{"", false},
		{"alice", false},
		{"alice@", false},
		{"@example.com", false},
		{"alice@example", false},
		{"alice@example.c", false},
		{"alice@@example.com", false},
		{"alice smith@example.com", false},
		{"alice@example.com ", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.email))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM \n"))
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"empty", "", 0},
		{"lower only short", "abc", 1},
		{"lower long", "abcdefgh", 2},
		{"lower upper long", "abcdEFGH", 3},
		{"lower upper digit long", "abcdEF12", 4},
		{"all criteria", "Str0ng!Pass", 5},
		{"all but length", "Aa1!", 4},
		{"special outside fixed set", "abcdEF12~", 4},
		{"digits only long", "12345678", 2},
		{"specials only", `!@#$%^&*(),.?":{}|<>`, 2},
		{"non ascii letters do not count", "ééééééééé", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PasswordStrength(tt.password)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, MaxPasswordStrength)
		})
	}
}

func TestRegister_BindingTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type request struct {
		Email string `validate:"required,account_email"`
		Name  string `validate:"nospaces"`
	}

	require.NoError(t, v.Struct(request{Email: " Alice@Example.com", Name: "alice"}))
	require.Error(t, v.Struct(request{Email: "not-an-email", Name: "alice"}))
	require.Error(t, v.Struct(request{Email: "alice@example.com", Name: "   "}))
}
