package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/factura-tools/qrdetect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, images []PageImage, extractErr error) *Processor {
	t.Helper()

	det, err := pipeline.NewBuilder().WithCache(0, 0).Build()
	require.NoError(t, err)

	p := NewProcessor(det, nil)
	p.extract = func(string, string) ([]PageImage, error) {
		return images, extractErr
	}
	return p
}

func TestProcessDetectsAcrossPages(t *testing.T) {
	images := []PageImage{
		{Page: 1, Index: 1, Image: testutil.NoiseImage(64, 64, 3)},
		{Page: 2, Index: 1, Image: testutil.QRImage(t, "https://dgi.example/doc?p=2", 192)},
		{Page: 3, Index: 1, Image: testutil.QRImage(t, "https://dgi.example/doc?p=3", 192)},
	}
	p := newTestProcessor(t, images, nil)

	report, err := p.Process(context.Background(), "invoice.pdf", Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.ImageCount)
	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].Result.Success)
	assert.True(t, report.Results[1].Result.Success)
	assert.True(t, report.Results[2].Result.Success)
	assert.Equal(t, []string{
		"https://dgi.example/doc?p=2",
		"https://dgi.example/doc?p=3",
	}, report.Payloads)
}

func TestProcessStopOnFirst(t *testing.T) {
	images := []PageImage{
		{Page: 1, Index: 1, Image: testutil.QRImage(t, "first-hit", 192)},
		{Page: 2, Index: 1, Image: testutil.QRImage(t, "never-reached", 192)},
	}
	p := newTestProcessor(t, images, nil)

	report, err := p.Process(context.Background(), "invoice.pdf", Options{StopOnFirst: true})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, []string{"first-hit"}, report.Payloads)
}

func TestProcessExtractionFailureAborts(t *testing.T) {
	wantErr := errors.New("encrypted document")
	p := newTestProcessor(t, nil, wantErr)

	_, err := p.Process(context.Background(), "locked.pdf", Options{})
	assert.ErrorIs(t, err, wantErr)
}

func TestProcessEmptyDocument(t *testing.T) {
	p := newTestProcessor(t, nil, nil)

	report, err := p.Process(context.Background(), "blank.pdf", Options{})
	require.NoError(t, err)
	assert.Zero(t, report.ImageCount)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Payloads)
}

func TestProcessHonorsContext(t *testing.T) {
	images := []PageImage{
		{Page: 1, Index: 1, Image: testutil.QRImage(t, "x", 192)},
	}
	p := newTestProcessor(t, images, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Process(ctx, "invoice.pdf", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}
