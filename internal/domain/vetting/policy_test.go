package vetting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoadingPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    LoadingPolicy
		wantErr bool
	}{
		{"", PolicyStart, false},
		{"START", PolicyStart, false},
		{"NOSTART", PolicyNoStart, false},
		{"FORCERESTART", PolicyForceRestart, false},
		{"FORCESTOP", PolicyForceStop, false},
		{"start", "", true},
		{"RESTART", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run("input "+tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLoadingPolicy(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPolicyUnknown)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocale(t *testing.T) {
	t.Parallel()

	t.Run("canonicalizes tags", func(t *testing.T) {
		t.Parallel()
		got, err := ParseLocale("DE")
		require.NoError(t, err)
		assert.Equal(t, Locale("de"), got)
	})

	t.Run("summary sentinel passes through", func(t *testing.T) {
		t.Parallel()
		got, err := ParseLocale(string(SummaryLocale))
		require.NoError(t, err)
		assert.True(t, got.IsSummary())
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseLocale("!!!")
		assert.Error(t, err)
	})
}

func TestLocaleDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "German", Locale("de").DisplayName())
	assert.Equal(t, "Summary", SummaryLocale.DisplayName())
}

func TestCategoriesForOrganization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AllProblemCategories(), CategoriesForOrganization("acme"))

	internal := CategoriesForOrganization(OrganizationInternal)
	assert.Len(t, internal, 4)
	assert.NotContains(t, internal, ProblemEnglishChanged)
	assert.NotContains(t, internal, ProblemMissingCoverage)
}
