// Package pdf extracts embedded page images from PDF documents and runs
// QR detection over each one.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageImage is one embedded image together with its position in the
// document. Index distinguishes multiple images on the same page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

// ExtractPageImages pulls the embedded images out of the PDF at path,
// restricted to pageRange ("" means all pages), ordered by page then by
// image index within the page.
func ExtractPageImages(path, pageRange string) ([]PageImage, error) {
	pages, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "qrdetect-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}
	if err := api.ExtractImagesFile(path, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("extract images from %s: %w", filepath.Base(path), err)
	}

	return collectPageImages(tempDir)
}

// collectPageImages loads every extracted image under dir. Files that do not
// follow pdfcpu's page_<n>_image_<i>.<ext> naming, or that fail to decode,
// are skipped.
func collectPageImages(dir string) ([]PageImage, error) {
	var out []PageImage

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		page, index, perr := parseImageFilename(info.Name())
		if perr != nil {
			return nil
		}
		img, derr := loadImageFile(path)
		if derr != nil {
			return nil
		}
		out = append(out, PageImage{Page: page, Index: index, Image: img})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // extraction output under our temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	return img, err
}

// parseImageFilename decodes pdfcpu's extraction naming, e.g.
// page_3_image_2.png yields (3, 2).
func parseImageFilename(name string) (page, index int, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 4 || parts[0] != "page" || parts[2] != "image" {
		return 0, 0, errors.New("not an extracted page image")
	}
	page, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad page number in %q", name)
	}
	index, err = strconv.Atoi(parts[3])
	if err != nil {
		return 0, 0, fmt.Errorf("bad image index in %q", name)
	}
	return page, index, nil
}

// parsePageRange understands "3", "1-5", and comma-separated mixes of both.
// An empty range selects every page.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, token := range strings.Split(pageRange, ",") {
		token = strings.TrimSpace(token)
		if before, after, found := strings.Cut(token, "-"); found {
			start, err := strconv.Atoi(strings.TrimSpace(before))
			if err != nil {
				return nil, fmt.Errorf("invalid start page %q", before)
			}
			end, err := strconv.Atoi(strings.TrimSpace(after))
			if err != nil {
				return nil, fmt.Errorf("invalid end page %q", after)
			}
			if start > end {
				return nil, fmt.Errorf("start page %d after end page %d", start, end)
			}
			for p := start; p <= end; p++ {
				pages = append(pages, p)
			}
			continue
		}
		p, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", token)
		}
		pages = append(pages, p)
	}
	return pages, nil
}
