package inputs

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoSource decodes a looping video through an ffmpeg subprocess. A reader
// goroutine keeps the most recent frame; Update swaps it in.
type VideoSource struct {
	path   string
	width  int
	height int

	cmd    *exec.Cmd
	reader *io.PipeReader
	done   chan struct{}

	mu      sync.Mutex
	pending *image.RGBA // Latest complete frame, guarded by mu.
	fresh   bool

	frame *image.RGBA // Owned by the render loop.
	once  sync.Once
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// probeSize returns the dimensions of the first video stream in path.
func probeSize(path string) (int, int, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (int, int, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, 0, fmt.Errorf("failed to parse probe output: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream found")
}

// decodeStream builds the ffmpeg command decoding path to rgba frames on out.
// Diagnostics go to the log writer; the terminal preview owns stdout.
func decodeStream(path string, w, h int, opts Options, out io.Writer) *ffmpeg.Stream {
	stream := ffmpeg.Input(path, ffmpeg.KwArgs{
		"loglevel":    "error",
		"nostats":     "",
		"stream_loop": -1,
		"re":          "",
	}).Output("pipe:", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"vf":      fmt.Sprintf("scale=%d:%d", w, h),
		"an":      "",
	}).WithOutput(out).WithErrorOutput(log.Writer())

	if opts.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(opts.FFmpegPath)
	}
	return stream
}

// OpenVideo starts decoding path in real time, looping at the end.
func OpenVideo(path string, opts Options) (*VideoSource, error) {
	nativeW, nativeH, err := probeSize(path)
	if err != nil {
		return nil, err
	}
	w, h := fitSize(nativeW, nativeH, opts.MaxSize)

	pipeReader, pipeWriter := io.Pipe()

	v := &VideoSource{
		path:    path,
		width:   w,
		height:  h,
		cmd:     decodeStream(path, w, h, opts, pipeWriter).Compile(),
		reader:  pipeReader,
		done:    make(chan struct{}),
		pending: image.NewRGBA(image.Rect(0, 0, w, h)),
		frame:   image.NewRGBA(image.Rect(0, 0, w, h)),
	}

	if err := v.cmd.Start(); err != nil {
		pipeWriter.Close()
		return nil, fmt.Errorf("failed to start ffmpeg for %s: %w", path, err)
	}
	log.Printf("Playing video %s (%dx%d scaled to %dx%d)", path, nativeW, nativeH, w, h)

	go func() {
		err := v.cmd.Wait()
		if err != nil {
			log.Printf("FFmpeg video decoder for %s finished with error: %v", path, err)
		}
		// Unblocks the reader once ffmpeg exits.
		pipeWriter.Close()
	}()

	go v.readFrames()

	return v, nil
}

// readFrames fills a scratch buffer with one frame at a time and publishes
// it as the pending frame.
func (v *VideoSource) readFrames() {
	defer close(v.done)

	scratch := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	for {
		if _, err := io.ReadFull(v.reader, scratch.Pix); err != nil {
			if err != io.EOF && err != io.ErrClosedPipe {
				log.Printf("Video %s stopped: %v", v.path, err)
			}
			return
		}
		v.mu.Lock()
		v.pending, scratch = scratch, v.pending
		v.fresh = true
		v.mu.Unlock()
	}
}

func (v *VideoSource) Kind() Kind { return KindVideo }

// Update swaps in the pending frame when the reader produced a new one
// since the last call.
func (v *VideoSource) Update() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fresh {
		return false
	}
	v.frame, v.pending = v.pending, v.frame
	v.fresh = false
	return true
}

func (v *VideoSource) Frame() *image.RGBA { return v.frame }

func (v *VideoSource) Sample(u, y float64) float64 { return sampleRed(v.frame, u, y) }

// Destroy kills ffmpeg and waits for the reader goroutine to exit.
func (v *VideoSource) Destroy() {
	v.once.Do(func() {
		if v.cmd != nil && v.cmd.Process != nil {
			v.cmd.Process.Kill()
		}
		v.reader.Close()
		<-v.done
		log.Printf("Stopped video %s", v.path)
	})
}
