package analysis

import (
	"testing"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch_NewFileLineNumbers(t *testing.T) {
	lines, err := ParsePatch(domain.FileChange{
		Filename: "internal/app.go",
		Status:   domain.FileModified,
		Patch:    "@@ -10,3 +10,5 @@ func main() {\n \ta := 1\n+\tb := 2\n \tc := 3\n+\td := 4\n \treturn\n",
	})

	require.NoError(t, err)
	assert.Equal(t, []AddedLine{
		{Number: 11, Text: "\tb := 2"},
		{Number: 13, Text: "\td := 4"},
	}, lines)
}

func TestParsePatch_MultipleFragmentsAndDeletions(t *testing.T) {
	lines, err := ParsePatch(domain.FileChange{
		Filename: "app.py",
		Status:   domain.FileModified,
		Patch: "@@ -1,3 +1,2 @@\n import os\n-import sys\n print(1)\n" +
			"@@ -20,2 +19,3 @@\n x = 1\n+y = 2\n z = 3\n",
	})

	require.NoError(t, err)
	assert.Equal(t, []AddedLine{{Number: 20, Text: "y = 2"}}, lines)
}

func TestParsePatch_AddedAndRemovedFiles(t *testing.T) {
	added, err := ParsePatch(domain.FileChange{
		Filename: "new.ts",
		Status:   domain.FileAdded,
		Patch:    "@@ -0,0 +1,2 @@\n+export const a = 1\n+export const b = 2",
	})
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.Equal(t, 2, added[1].Number)

	removed, err := ParsePatch(domain.FileChange{
		Filename: "old.ts",
		Status:   domain.FileRemoved,
		Patch:    "@@ -1,1 +0,0 @@\n-export const a = 1\n",
	})
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestParsePatch_EmptyAndMalformed(t *testing.T) {
	lines, err := ParsePatch(domain.FileChange{Filename: "bin.dat", Status: domain.FileModified})
	assert.NoError(t, err)
	assert.Nil(t, lines)

	_, err = ParsePatch(domain.FileChange{
		Filename: "broken.go",
		Status:   domain.FileModified,
		Patch:    "@@ -x,y +z @@\n+oops\n",
	})
	assert.Error(t, err)
}

func TestFileClassification(t *testing.T) {
	testCases := []struct {
		name   string
		isTest bool
		isDoc  bool
		stem   string
	}{
		{"internal/cart/cart.go", false, false, "cart"},
		{"internal/cart/cart_test.go", true, false, "cart"},
		{"src/cart.spec.ts", true, false, "cart"},
		{"src/__tests__/cart.js", true, false, "cart"},
		{"tests/test_cart.py", true, false, "cart"},
		{"docs/guide.md", false, true, "guide"},
		{"README.md", false, true, "readme"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.isTest, IsTestFile(tc.name))
			assert.Equal(t, tc.isDoc, IsDocFile(tc.name))
			assert.Equal(t, tc.stem, testStem(tc.name))
		})
	}
}
