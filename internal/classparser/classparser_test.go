package classparser

import (
	"testing"

	"github.com/arma3tool/arma3tool/internal/parse/diag"
	"github.com/stretchr/testify/require"
)

func TestParseBasicClass(t *testing.T) {
	src := `
class Base {
	scope = 2;
	displayName = "Base Item";
};
class Child: Base {
	weight = 5;
};
`
	result, err := ParseSource(src, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 2)

	byName := map[string]int{}
	for i, c := range result.Classes {
		byName[c.Name] = i
	}
	base := result.Classes[byName["Base"]]
	require.Equal(t, "", base.ParentName)
	require.Equal(t, "Base Item", base.Properties["displayName"].Str)

	child := result.Classes[byName["Child"]]
	require.Equal(t, "Base", child.ParentName)
	require.Equal(t, float64(5), child.Properties["weight"].Num)
}

func TestParseForwardDeclaration(t *testing.T) {
	result, err := ParseSource(`class ExternalBase;`, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)
	require.True(t, result.Classes[0].IsForwardDeclaration)
}

func TestParseNestedClassSetsContainer(t *testing.T) {
	src := `
class Outer {
	class Inner {
		value = 1;
	};
};
`
	result, err := ParseSource(src, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 2)

	found := false
	for _, c := range result.Classes {
		if c.Name == "Inner" {
			require.Equal(t, "Outer", c.ContainerClass)
			found = true
		}
	}
	require.True(t, found)
}

func TestParseMissingIncludeIsWarningNotFailure(t *testing.T) {
	src := `#include "nope.hpp"
class Foo {};`
	result, err := ParseSource(src, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.CodeIncludeNotFound, result.Diagnostics[0].Code)
	require.Equal(t, diag.SeverityWarning, result.Diagnostics[0].Severity)
}

func TestParsePreprocessorIsWarningNotFailure(t *testing.T) {
	src := `#ifdef SOMETHING
class Foo {};
#endif`
	result, err := ParseSource(src, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.CodeRapifyBlocked, result.Diagnostics[0].Code)
}

func TestParseArrayProperty(t *testing.T) {
	src := `class Foo {
		items[] = {"a", "b", "c"};
	};`
	result, err := ParseSource(src, "/tmp/config.cpp")
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)
	arr := result.Classes[0].Properties["items"].Array
	require.Len(t, arr, 3)
	require.Equal(t, "a", arr[0].Str)
}
