package services

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "report.pdf", false},
		{"unicode", "отчёт 2025.txt", false},
		{"spaces", "my folder", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"dots only", "...", true},
		{"blank", "   ", true},
		{"dots and spaces", ". . ", true},
		{"leading dot", ".hidden", false},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"colon", "a:b", true},
		{"star", "a*", true},
		{"question", "a?", true},
		{"quote", `a"b`, true},
		{"angle", "<a>", true},
		{"pipe", "a|b", true},
		{"control", "a\x00b", true},
		{"newline", "a\nb", true},
		{"max length", strings.Repeat("a", maxNameBytes), false},
		{"too long", strings.Repeat("a", maxNameBytes+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidName)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCreateFolderRequest_Validate(t *testing.T) {
	assert.NoError(t, checkRequest(CreateFolderRequest{Owner: "alice", Name: "docs"}))
	assert.ErrorIs(t, checkRequest(CreateFolderRequest{Owner: "", Name: "docs"}), common.ErrInvalidName)
	assert.ErrorIs(t, checkRequest(CreateFolderRequest{Owner: "alice", Name: "a/b"}), common.ErrInvalidName)
}

func TestUploadRequest_Validate(t *testing.T) {
	ok := UploadRequest{Owner: "alice", Name: "a.txt", Content: strings.NewReader("x"), Size: 1}
	assert.NoError(t, checkRequest(ok))

	unknown := ok
	unknown.Size = -1
	assert.NoError(t, checkRequest(unknown))

	noContent := ok
	noContent.Content = nil
	assert.ErrorIs(t, checkRequest(noContent), common.ErrInvalidName)

	badSize := ok
	badSize.Size = -2
	assert.ErrorIs(t, checkRequest(badSize), common.ErrInvalidName)

	badName := ok
	badName.Name = ".."
	assert.ErrorIs(t, checkRequest(badName), common.ErrInvalidName)
}
