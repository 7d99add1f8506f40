package errors

import (
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "glibc", false},
		{"valid with dash", "python3-devel", false},
		{"valid with plus", "libstdc++6", false},
		{"valid with dot", "perl-Net.SSLeay", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal ..", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"space", "foo bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabelName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"binary", "@Core", false},
		{"flavor", "@Core+python", false},
		{"purpose", "@Core-devel", false},
		{"flavor and purpose", "@Core+python-devel", false},
		{"component", "Core", false},
		{"build config", "Core/standard", false},
		{"auto label", "python", false},

		{"empty", "", true},
		{"bare at", "@", true},
		{"two purposes", "@Core-devel-doc", true},
		{"space", "@Co re", true},
		{"nested config", "Core/a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabelName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabelName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidLabel) {
				t.Errorf("ValidateLabelName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidLabel)
			}
		})
	}
}
