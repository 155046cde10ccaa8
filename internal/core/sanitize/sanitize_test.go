package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanStringStripsControlCharacters(t *testing.T) {
	cases := map[string]string{
		"  hello  ":          "hello",
		"tab\tseparated":     "tabseparated",
		"line\nbreak":        "linebreak",
		"null\x00byte":       "nullbyte",
		"bell\x07and\x1besc": "bellandesc",
		"plain":              "plain",
		"":                   "",
	}
	for input, want := range cases {
		require.Equal(t, want, CleanString(input), "input %q", input)
	}
}

func TestCleanIsIdempotentAndNeverLengthens(t *testing.T) {
	inputs := []string{
		"  spaced out  ",
		"ctrl\x01\x02chars",
		"\t\n\r mixed \x7f",
		"already clean",
		"<b>bold</b> & 'quoted'",
	}
	for _, input := range inputs {
		once := CleanString(input)
		require.Equal(t, once, CleanString(once), "CleanString not idempotent for %q", input)
		require.LessOrEqual(t, len(once), len(input))

		strict := CleanStrict(input)
		require.Equal(t, strict, CleanStrict(strict), "CleanStrict not idempotent for %q", input)
		require.LessOrEqual(t, len(strict), len(input))
	}
}

func TestCleanStrictDropsInjectionCharacters(t *testing.T) {
	require.Equal(t, "scriptalert(1)/script", CleanStrict(`<script>alert(1)</script>`))
	require.Equal(t, "Smith Sons", CleanStrict(`Smith & Sons`))
	require.Equal(t, "OReilly", CleanStrict(`O'Reilly`))
}

func TestCleanRecursesIntoCollections(t *testing.T) {
	input := map[string]any{
		" agency_code ": "  075\n",
		"filters": []any{
			"  naics\t541511 ",
			map[string]any{"state": " VA \x00"},
		},
		"limit":  float64(5),
		"strict": true,
	}

	cleaned, ok := Clean(input).(map[string]any)
	require.True(t, ok)
	require.Equal(t, "075", cleaned["agency_code"])
	require.Equal(t, float64(5), cleaned["limit"])
	require.Equal(t, true, cleaned["strict"])

	filters, ok := cleaned["filters"].([]any)
	require.True(t, ok)
	require.Equal(t, "naics541511", filters[0])

	nested, ok := filters[1].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "VA", nested["state"])
}

func TestCleanArgsClonesInput(t *testing.T) {
	original := map[string]any{"name": " Acme \t"}
	cleaned := CleanArgs(original)

	require.Equal(t, "Acme", cleaned["name"])
	require.Equal(t, " Acme \t", original["name"], "caller map must not be mutated")

	require.NotNil(t, CleanArgs(nil))
}
