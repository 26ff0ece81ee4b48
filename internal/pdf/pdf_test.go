package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/factura-tools/qrdetect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty selects all", pageRange: "", want: nil},
		{name: "whitespace selects all", pageRange: "  ", want: nil},
		{name: "single page", pageRange: "3", want: []int{3}},
		{name: "comma list", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "range", pageRange: "2-4", want: []int{2, 3, 4}},
		{name: "mixed", pageRange: "1,3-5,9", want: []int{1, 3, 4, 5, 9}},
		{name: "spaces tolerated", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "garbage", pageRange: "abc", expectError: true},
		{name: "bad start", pageRange: "x-5", expectError: true},
		{name: "bad end", pageRange: "1-y", expectError: true},
		{name: "double dash", pageRange: "1-2-3", expectError: true},
		{name: "inverted range", pageRange: "5-2", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseImageFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		page, index int
		expectError bool
	}{
		{name: "png", filename: "page_1_image_1.png", page: 1, index: 1},
		{name: "jpeg multi digit", filename: "page_12_image_3.jpg", page: 12, index: 3},
		{name: "missing prefix", filename: "image_1.png", expectError: true},
		{name: "truncated", filename: "page_2.png", expectError: true},
		{name: "non numeric page", filename: "page_x_image_1.png", expectError: true},
		{name: "non numeric index", filename: "page_1_image_x.png", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, index, err := parseImageFilename(tt.filename)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.index, index)
		})
	}
}

func TestCollectPageImagesOrdersAndSkips(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}

	qr := testutil.QRImageBytes(t, "page-fixture", 64)
	write("page_2_image_1.png", qr)
	write("page_1_image_2.png", qr)
	write("page_1_image_1.png", qr)
	write("notes.txt", []byte("not an image"))
	write("page_3_image_1.png", []byte("corrupt image data"))

	images, err := collectPageImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 3, "non-page files and corrupt images are skipped")

	assert.Equal(t, 1, images[0].Page)
	assert.Equal(t, 1, images[0].Index)
	assert.Equal(t, 1, images[1].Page)
	assert.Equal(t, 2, images[1].Index)
	assert.Equal(t, 2, images[2].Page)
}

func TestExtractPageImagesBadRange(t *testing.T) {
	_, err := ExtractPageImages("whatever.pdf", "not-a-range")
	assert.Error(t, err)
}
