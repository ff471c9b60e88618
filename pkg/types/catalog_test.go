package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllRootFolders(t *testing.T) {
	roots := AllRootFolders()
	assert.Len(t, roots, 9)
	assert.Equal(t, RootFolderRoot, roots[0])

	roots[0].Name = "mutated"
	assert.Equal(t, "", AllRootFolders()[0].Name)
}

func TestRootFolderLookups(t *testing.T) {
	f, ok := RootFolderByID("myTokensFolder")
	assert.True(t, ok)
	assert.Equal(t, RootFolderMyTokens, f)

	f, ok = RootFolderByName("D&D Beyond Tokens")
	assert.True(t, ok)
	assert.Equal(t, "/DDB", f.Path)

	f, ok = RootFolderByPath("/Area of Effects")
	assert.True(t, ok)
	assert.Equal(t, "aoeFolder", f.ID)

	f, ok = RootFolderByHTMLID("_My_Tokens")
	assert.True(t, ok)
	assert.Equal(t, RootFolderMyTokens, f)

	_, ok = RootFolderByID("nope")
	assert.False(t, ok)
	assert.False(t, IsRootFolderID("nope"))
	assert.True(t, IsRootFolderID("playersFolder"))
}

func TestIsValidCustomizationType(t *testing.T) {
	for _, typ := range CustomizationTypes {
		assert.True(t, IsValidCustomizationType(typ), typ)
	}
	for _, typ := range []ItemType{ItemTypeBuiltinToken, ItemTypeDDBToken, ItemTypeEncounter, ItemTypeScene, ItemTypeAoe, ""} {
		assert.False(t, IsValidCustomizationType(typ), typ)
	}
}

func TestHTMLID(t *testing.T) {
	assert.Equal(t, "_My_Tokens_Goblins", HTMLID("/My Tokens/Goblins"))
	assert.Equal(t, "_", HTMLID("/"))
}

func TestSanitizeFolderPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "/"},
		{in: "/", want: "/"},
		{in: "My Tokens/Goblins", want: "/My Tokens/Goblins"},
		{in: "//My Tokens///Goblins/", want: "/My Tokens/Goblins"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFolderPath(tt.in))
		})
	}
}
