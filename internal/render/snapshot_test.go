package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seccouser/hdmi-in-display/internal/capture"
)

func TestSnapshotMatchesLiveConversion(t *testing.T) {
	data, format := nv12Frame(4, 2)
	for i := range data {
		data[i] = byte(40 + i*13)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "display.png")
	done := make(chan string, 1)

	b := &Bridge{
		opts: Options{
			SnapshotPath: path,
			Matrix:       MatrixBT709,
			Range:        RangeLimited,
			OnSnapshot:   func(p string) { done <- p },
		},
		frame:     capture.Frame{Data: data, Format: format, Seq: 1},
		haveFrame: true,
	}
	b.snapshotAsync()

	select {
	case got := <-done:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot worker did not finish")
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	src, err := NewFrameImage(data, format)
	require.NoError(t, err)

	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			wr, wg, wb := src.RGBAt(x, y, MatrixBT709, RangeLimited)
			gr, gg, gb, _ := img.At(x, y).RGBA()
			assert.Equal(t, uint32(wr), gr>>8, "pixel (%d,%d) red", x, y)
			assert.Equal(t, uint32(wg), gg>>8, "pixel (%d,%d) green", x, y)
			assert.Equal(t, uint32(wb), gb>>8, "pixel (%d,%d) blue", x, y)
		}
	}
}

func TestSnapshotWithoutFrameIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "display.png")

	b := &Bridge{opts: Options{SnapshotPath: path}}
	b.snapshotAsync()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpStrings(t *testing.T) {
	assert.Equal(t, "reload", OpReload.String())
	assert.Equal(t, "snapshot", OpSnapshot.String())
	assert.Equal(t, "unknown", Op(99).String())
}
