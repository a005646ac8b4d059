package icons_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/metasearch-overlay/internal/icons"
)

func TestResolveKnown(t *testing.T) {
	for _, name := range []string{"archive", "link", "shield"} {
		t.Run(name, func(t *testing.T) {
			got := string(icons.Resolve(name))
			require.True(t, strings.HasPrefix(got, "<svg"))
			require.True(t, strings.HasSuffix(got, "</svg>"))
		})
	}
}

func TestResolveUnknownIsEmpty(t *testing.T) {
	require.Empty(t, icons.Resolve("no-such-icon"))
	require.Empty(t, icons.Resolve(""))
}

func TestResolveDeterministic(t *testing.T) {
	require.Equal(t, icons.Resolve("play"), icons.Resolve("play"))
}
