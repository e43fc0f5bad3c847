package words

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		guess, secret string
		want          bool
	}{
		{" Hotel ", "hotel", true},
		{"HOTEL", "hotel", true},
		{"pinguino", "pingüino", true},
		{"Montana", "montaña", true},
		{"avión", "avion", true},
		{"motel", "hotel", false},
		{"", "hotel", false},
		{"   ", "", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.guess+"/"+tc.secret, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsMatch(tc.guess, tc.secret))
		})
	}
}

func TestDefaultBank(t *testing.T) {
	t.Parallel()

	bank := Default()
	assert.Contains(t, bank.Categories(), "lugares")

	entry := bank.Random("lugares")
	assert.Equal(t, "lugares", entry.Category)
	assert.NotEmpty(t, entry.Word)

	picked := bank.Random("")
	assert.Contains(t, bank.Categories(), picked.Category)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	bank, err := ReadCSV(strings.NewReader("category,word\ncolores,rojo\ncolores, Azul \nbroken\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"colores"}, bank.Categories())
	assert.Equal(t, "colores", bank.Random("colores").Category)

	_, err = ReadCSV(strings.NewReader("category,word\n"))
	assert.Error(t, err)
}
