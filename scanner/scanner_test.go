package scanner_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/entity"
	"qrmang/qr"
	"qrmang/scanner"
)

// fakeDecoder recognizes frames by identity.
type fakeDecoder map[image.Image]string

func (d fakeDecoder) DecodeFrame(frame image.Image) (string, bool) {
	raw, ok := d[frame]
	return raw, ok
}

func newFrame() image.Image {
	return image.NewGray(image.Rect(0, 0, 4, 4))
}

func TestScanner_pausesAfterDecode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	codec := qr.NewCodec(testSecret)
	first, err := codec.EncodeForDisplay("BR-FIRST")
	require.NoError(t, err)
	second, err := codec.EncodeForDisplay("BR-SECOND")
	require.NoError(t, err)

	blank, firstFrame, sameCodeAgain, secondFrame := newFrame(), newFrame(), newFrame(), newFrame()
	decoder := fakeDecoder{
		firstFrame:    first,
		sameCodeAgain: first,
		secondFrame:   second,
	}
	source := scanner.NewSliceSource(blank, firstFrame, sameCodeAgain, secondFrame)

	outcomes := make(chan scanner.Outcome, 10)
	s := scanner.NewScanner(
		source,
		decoder,
		scanner.NewPipeline(codec, &recordingVerifier{}),
		func(ctx context.Context, outcome scanner.Outcome) { outcomes <- outcome },
		scanner.Config{},
	)
	assert.False(t, s.Resume(), "nothing to resume while scanning")

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	outcome := <-outcomes
	assert.Equal(t, "BR-FIRST", outcome.Reference)
	assert.Equal(t, scanner.StateValid, outcome.State)

	// sampling stays halted while the outcome is displayed
	assert.Never(t, func() bool { return source.Pulled() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, scanner.StateValid, s.State())

	require.True(t, s.Resume())
	outcome = <-outcomes
	assert.Equal(t, "BR-FIRST", outcome.Reference, "same code still in view is scanned again after resume")

	require.True(t, s.Resume())
	outcome = <-outcomes
	assert.Equal(t, "BR-SECOND", outcome.Reference)

	require.True(t, s.Resume())
	require.NoError(t, <-done)
	assert.True(t, source.Closed())
}

func TestScanner_autoResume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	codec := qr.NewCodec(testSecret)
	decoder := fakeDecoder{}
	var frames []image.Image
	for _, raw := range []string{"garbage", "more garbage"} {
		frame := newFrame()
		decoder[frame] = raw
		frames = append(frames, frame)
	}
	source := scanner.NewSliceSource(frames...)

	var outcomes []scanner.Outcome
	s := scanner.NewScanner(
		source,
		decoder,
		scanner.NewPipeline(codec, &recordingVerifier{}),
		func(ctx context.Context, outcome scanner.Outcome) { outcomes = append(outcomes, outcome) },
		scanner.Config{AutoResume: true, FramesPerSecond: 100},
	)

	require.NoError(t, s.Run(ctx))

	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.Equal(t, scanner.StateInvalid, outcome.State)
		assert.Equal(t, scanner.ReasonUnreadable, outcome.Reason)
	}
	assert.Equal(t, scanner.StateScanning, s.State())
	assert.True(t, source.Closed())
}

func TestScanner_stopReleasesSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	codec := qr.NewCodec(testSecret)
	raw, err := codec.EncodeForDisplay("BR-1")
	require.NoError(t, err)

	frame := newFrame()
	source := scanner.NewSliceSource(frame)

	s := scanner.NewScanner(
		source,
		fakeDecoder{frame: raw},
		scanner.NewPipeline(codec, &recordingVerifier{}),
		func(ctx context.Context, outcome scanner.Outcome) { cancel() },
		scanner.Config{},
	)

	require.NoError(t, s.Run(ctx))
	assert.True(t, source.Closed())
}

func TestZXingDecoder_decodesRenderedTicket(t *testing.T) {
	codec := qr.NewCodec(testSecret)
	raw, err := codec.EncodeForDisplay("BR-AB12CD34")
	require.NoError(t, err)

	pngBytes, err := qr.NewRenderer(512).PNG(raw)
	require.NoError(t, err)

	frame, err := png.Decode(bytes.NewReader(pngBytes))
	require.NoError(t, err)

	decoded, ok := scanner.NewZXingDecoder().DecodeFrame(frame)
	require.True(t, ok)
	assert.Equal(t, raw, decoded)

	payload, err := codec.Decode(decoded)
	require.NoError(t, err)
	assert.Equal(t, "verify:BR-AB12CD34", payload.String())

	_, ok = scanner.NewZXingDecoder().DecodeFrame(newFrame())
	assert.False(t, ok)
}

func TestDirectorySource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	codec := qr.NewCodec(testSecret)
	raw, err := codec.EncodeForDisplay("BR-DIR")
	require.NoError(t, err)
	pngBytes, err := qr.NewRenderer(512).PNG(raw)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "002.png"), pngBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	var blank bytes.Buffer
	require.NoError(t, png.Encode(&blank, image.NewGray(image.Rect(0, 0, 64, 64))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.png"), blank.Bytes(), 0o644))

	var outcomes []scanner.Outcome
	s := scanner.NewScanner(
		scanner.NewDirectorySource(dir, 0),
		scanner.NewZXingDecoder(),
		scanner.NewPipeline(codec, &recordingVerifier{}),
		func(ctx context.Context, outcome scanner.Outcome) { outcomes = append(outcomes, outcome) },
		scanner.Config{AutoResume: true},
	)

	require.NoError(t, s.Run(ctx))

	require.Len(t, outcomes, 1)
	assert.Equal(t, scanner.StateValid, outcomes[0].State)
	assert.Equal(t, "BR-DIR", outcomes[0].Reference)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, entity.VerificationSuccess, outcomes[0].Result.Status)
}

func TestDirectorySource_skipsUnreadableFrame(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	codec := qr.NewCodec(testSecret)
	raw, err := codec.EncodeForDisplay("BR-AFTERBAD")
	require.NoError(t, err)
	pngBytes, err := qr.NewRenderer(512).PNG(raw)
	require.NoError(t, err)

	// a frame the camera has not finished writing
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.png"), pngBytes[:40], 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002.png"), pngBytes, 0o644))

	var outcomes []scanner.Outcome
	s := scanner.NewScanner(
		scanner.NewDirectorySource(dir, 0),
		scanner.NewZXingDecoder(),
		scanner.NewPipeline(codec, &recordingVerifier{}),
		func(ctx context.Context, outcome scanner.Outcome) { outcomes = append(outcomes, outcome) },
		scanner.Config{AutoResume: true},
	)

	require.NoError(t, s.Run(ctx))

	require.Len(t, outcomes, 1)
	assert.Equal(t, scanner.StateValid, outcomes[0].State)
	assert.Equal(t, "BR-AFTERBAD", outcomes[0].Reference)
}
