package encoder

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	options "github.com/richinsley/geezmosaic/options"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Encoder pipes raw RGBA frames into an ffmpeg process that writes a video
// file.
type Encoder struct {
	width      int
	height     int
	pipeWriter *io.PipeWriter
	errc       chan error
	frames     int64
	closed     bool
}

// getArgs builds the ffmpeg input and output arguments for options.
func getArgs(opts *options.MosaicOptions) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", *opts.Width, *opts.Height),
		"framerate": fmt.Sprintf("%d", *opts.FPS),
	}

	outputArgs = ffmpeg.KwArgs{
		"pix_fmt": "yuv420p",
	}

	hevc := *opts.Codec == "hevc"
	switch {
	case *opts.HWAccel && runtime.GOOS == "darwin":
		log.Println("Using macOS (VideoToolbox) hardware acceleration.")
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	case *opts.HWAccel:
		log.Println("Using NVENC hardware acceleration.")
		if hevc {
			outputArgs["c:v"] = "hevc_nvenc"
		} else {
			outputArgs["c:v"] = "h264_nvenc"
		}
		outputArgs["preset"] = "p2"
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
	}
	outputArgs["b:v"] = "25M"

	if hevc && strings.HasSuffix(strings.ToLower(*opts.OutputFile), ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// New starts ffmpeg writing to the output file named in opts.
func New(opts *options.MosaicOptions) (*Encoder, error) {
	if *opts.OutputFile == "" {
		return nil, fmt.Errorf("no output file specified")
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := getArgs(opts)

	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(*opts.OutputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).WithErrorOutput(log.Writer())

	if *opts.FFMPEGPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(*opts.FFMPEGPath)
	}

	e := &Encoder{
		width:      *opts.Width,
		height:     *opts.Height,
		pipeWriter: pipeWriter,
		errc:       make(chan error, 1),
	}

	go func() {
		err := ffmpegCmd.Run()
		// Unblocks WriteFrame if ffmpeg exits early.
		pipeReader.CloseWithError(io.ErrClosedPipe)
		e.errc <- err
	}()

	log.Printf("Encoding %dx%d video to %s", e.width, e.height, *opts.OutputFile)
	return e, nil
}

// WriteFrame sends one frame, top row first. Its size must match the
// encoder's.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	if e.closed {
		return fmt.Errorf("encoder is closed")
	}
	b := img.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame size %dx%d does not match encoder size %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	rowSize := e.width * 4
	if img.Stride == rowSize {
		if _, err := e.pipeWriter.Write(img.Pix[:rowSize*e.height]); err != nil {
			return fmt.Errorf("failed to write frame %d to FFmpeg: %w", e.frames, err)
		}
	} else {
		for y := 0; y < e.height; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+rowSize]
			if _, err := e.pipeWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write frame %d to FFmpeg: %w", e.frames, err)
			}
		}
	}
	e.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int64 {
	return e.frames
}

// Close flushes the stream and waits for ffmpeg to finish.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.pipeWriter.Close()
	if err := <-e.errc; err != nil {
		return fmt.Errorf("ffmpeg finished with error: %w", err)
	}
	log.Printf("Encoded %d frames", e.frames)
	return nil
}

// WritePNG saves img as a PNG file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	log.Printf("Wrote %s", path)
	return nil
}
