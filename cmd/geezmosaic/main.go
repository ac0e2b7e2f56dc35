package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/geezmosaic/controls"
	"github.com/richinsley/geezmosaic/encoder"
	"github.com/richinsley/geezmosaic/glfwcontext"
	"github.com/richinsley/geezmosaic/graphics"
	"github.com/richinsley/geezmosaic/headless"
	"github.com/richinsley/geezmosaic/inputs"
	"github.com/richinsley/geezmosaic/options"
	"github.com/richinsley/geezmosaic/pipeline"
	"github.com/richinsley/geezmosaic/renderer"
	"github.com/richinsley/geezmosaic/software"
	"github.com/richinsley/geezmosaic/terminal"
)

// firstFrameTimeout bounds the wait for a video's first decoded frame.
const firstFrameTimeout = 5 * time.Second

func init() {
	runtime.LockOSThread()
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: geezmosaic [flags] [image or video]\n\n")
	fmt.Fprintf(out, "Presets: %s\n", strings.Join(options.Presets(), ", "))
	fmt.Fprintf(out, "Keys: %s\n\n", controls.Help)
	flag.PrintDefaults()
}

func main() {
	opts := options.Register(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	if *opts.Help {
		usage()
		return
	}
	if err := options.ApplyPreset(flag.CommandLine, *opts.Preset); err != nil {
		log.Fatalf("Error applying preset: %v", err)
	}
	if err := opts.Normalize(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	opts.Source = flag.Arg(0)

	if err := run(opts); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(opts *options.MosaicOptions) error {
	logFile, err := setupLogging(opts)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := pipeline.ConfigFromOptions(opts)
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer pipe.Destroy()

	if opts.Source != "" {
		if err := pipe.Load(opts.Source); err != nil {
			interactive := *opts.Mode == options.ModeWindow || *opts.Mode == options.ModeTerm
			if !interactive {
				return fmt.Errorf("failed to load source: %w", err)
			}
			log.Println("Showing the placeholder source instead.")
		}
	}
	ctrl := controls.New(pipe.Uniforms, cfg.Params)

	switch *opts.Mode {
	case options.ModeWindow:
		return runWindow(opts, pipe, ctrl)
	case options.ModeRecord:
		return runRecord(opts, pipe)
	case options.ModePNG:
		return runPNG(opts, pipe)
	case options.ModeTerm:
		return runTerm(opts, pipe, ctrl)
	}
	return fmt.Errorf("unknown mode %q", *opts.Mode)
}

// setupLogging sends log output to the -log file. Terminal mode discards it
// otherwise so it does not scribble over the screen.
func setupLogging(opts *options.MosaicOptions) (*os.File, error) {
	if *opts.LogFile != "" {
		f, err := os.OpenFile(*opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
		return f, nil
	}
	if *opts.Mode == options.ModeTerm {
		log.SetOutput(io.Discard)
	}
	return nil, nil
}

func runWindow(opts *options.MosaicOptions, pipe *pipeline.Pipeline, ctrl *controls.Controls) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize graphics: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	ctx, err := glfwcontext.New(opts, true, "geezmosaic")
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer ctx.Shutdown()

	keys := map[glfw.Key]controls.Action{
		glfw.KeyLeft:       controls.HueDown,
		glfw.KeyRight:      controls.HueUp,
		glfw.KeyDown:       controls.ColorsDown,
		glfw.KeyUp:         controls.ColorsUp,
		glfw.KeyMinus:      controls.GammaDown,
		glfw.KeyKPSubtract: controls.GammaDown,
		glfw.KeyEqual:      controls.GammaUp,
		glfw.KeyKPAdd:      controls.GammaUp,
		glfw.KeyR:          controls.Reset,
	}
	for key, action := range keys {
		ctx.RegisterKeyCallback(key, func() { ctrl.Apply(action) })
	}
	ctx.RegisterDropCallback(func(paths []string) {
		pipe.Load(paths[0])
	})

	r, err := renderer.NewRenderer(*opts.Width, *opts.Height, false, *opts.Fit, pipe, ctx)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	defer r.Shutdown()
	if err := r.InitScene(); err != nil {
		return fmt.Errorf("failed to initialize scene: %w", err)
	}

	log.Printf("Starting interactive render loop. %s", controls.Help)
	r.Run()
	return nil
}

// newOffscreenContext prefers an EGL pbuffer and falls back to a hidden
// GLFW window.
func newOffscreenContext(opts *options.MosaicOptions) (graphics.Context, func(), error) {
	h, err := headless.NewHeadless(*opts.Width, *opts.Height)
	if err == nil {
		log.Println("Using EGL headless context.")
		return h, h.Shutdown, nil
	}
	log.Printf("Headless context unavailable (%v); using a hidden window.", err)

	if err := glfwcontext.InitGraphics(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize graphics: %w", err)
	}
	ctx, err := glfwcontext.New(opts, false, "geezmosaic")
	if err != nil {
		glfwcontext.TerminateGraphics()
		return nil, nil, fmt.Errorf("failed to create hidden window: %w", err)
	}
	return ctx, func() {
		ctx.Shutdown()
		glfwcontext.TerminateGraphics()
	}, nil
}

// newGPURenderer creates a fixed size renderer on an offscreen context.
func newGPURenderer(opts *options.MosaicOptions, pipe *pipeline.Pipeline) (*renderer.Renderer, func(), error) {
	ctx, release, err := newOffscreenContext(opts)
	if err != nil {
		return nil, nil, err
	}
	r, err := renderer.NewRenderer(*opts.Width, *opts.Height, true, *opts.Fit, pipe, ctx)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := r.InitScene(); err != nil {
		r.Shutdown()
		release()
		return nil, nil, fmt.Errorf("failed to initialize scene: %w", err)
	}
	return r, func() {
		r.Shutdown()
		release()
	}, nil
}

// waitForFrame blocks until a video source has decoded its first frame.
func waitForFrame(pipe *pipeline.Pipeline) {
	src := pipe.Source()
	if src == nil || src.Kind() != inputs.KindVideo {
		return
	}
	deadline := time.Now().Add(firstFrameTimeout)
	for time.Now().Before(deadline) {
		if pipe.Poll() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Println("Warning: no video frame decoded yet; rendering a black source.")
}

func runRecord(opts *options.MosaicOptions, pipe *pipeline.Pipeline) error {
	waitForFrame(pipe)

	enc, err := encoder.New(opts)
	if err != nil {
		return err
	}

	frames := opts.Frames()
	if *opts.Software {
		err = recordSoftware(opts, pipe, enc, frames)
	} else {
		var r *renderer.Renderer
		var release func()
		r, release, err = newGPURenderer(opts, pipe)
		if err == nil {
			err = r.RunOffscreen(enc, frames, *opts.FPS)
			release()
		}
	}

	if closeErr := enc.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	log.Printf("Successfully rendered to %s", *opts.OutputFile)
	return nil
}

// recordSoftware renders frames on the CPU, paced like the GPU loop.
func recordSoftware(opts *options.MosaicOptions, pipe *pipeline.Pipeline, w renderer.FrameWriter, frames int) error {
	width, height := *opts.Width, *opts.Height
	sr := software.New(width, height, pipe.Camera(width, height, *opts.Fit))
	img := image.NewRGBA(sr.Bounds())

	var ticker *time.Ticker
	if pipe.Source().Kind() == inputs.KindVideo {
		ticker = time.NewTicker(time.Second / time.Duration(*opts.FPS))
		defer ticker.Stop()
	}

	for i := 0; i < frames; i++ {
		if ticker != nil {
			<-ticker.C
		}
		pipe.Poll()
		sr.Render(img, pipe.Instances, pipe.Atlas, pipe, pipe.Snapshot())
		if err := w.WriteFrame(img); err != nil {
			return err
		}
		if (i+1)%*opts.FPS == 0 {
			log.Printf("Rendered %d/%d frames", i+1, frames)
		}
	}
	return nil
}

func runPNG(opts *options.MosaicOptions, pipe *pipeline.Pipeline) error {
	waitForFrame(pipe)

	var img *image.RGBA
	if *opts.Software {
		width, height := *opts.Width, *opts.Height
		sr := software.New(width, height, pipe.Camera(width, height, *opts.Fit))
		img = image.NewRGBA(sr.Bounds())
		pipe.Poll()
		sr.Render(img, pipe.Instances, pipe.Atlas, pipe, pipe.Snapshot())
	} else {
		r, release, err := newGPURenderer(opts, pipe)
		if err != nil {
			return err
		}
		img = r.Snapshot()
		release()
	}
	return encoder.WritePNG(*opts.OutputFile, img)
}

func runTerm(opts *options.MosaicOptions, pipe *pipeline.Pipeline, ctrl *controls.Controls) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	terminal.New(screen, pipe, ctrl, *opts.FPS).Run()
	return nil
}
