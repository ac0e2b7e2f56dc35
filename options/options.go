package options

import (
	"flag"
	"fmt"

	"github.com/richinsley/geezmosaic/shading"
)

// Modes selectable with -mode.
const (
	ModeWindow = "window"
	ModeRecord = "record"
	ModePNG    = "png"
	ModeTerm   = "term"
)

// MosaicOptions holds every command line setting. Fields are bound to flags
// by Register.
type MosaicOptions struct {
	Mode     *string
	Preset   *string
	Help     *bool
	Software *bool // Render record/png output on the CPU instead of the GPU.
	LogFile  *string

	// Output
	Width      *int
	Height     *int
	FPS        *int
	Duration   *float64
	OutputFile *string
	Codec      *string
	HWAccel    *bool
	FFMPEGPath *string
	Fit        *bool // Move the camera so the grid fills the frame.

	// Grid
	Rows     *int
	Columns  *int
	QuadSize *float64

	// Atlas
	Dictionary *string // "ascii", "geez" or a literal glyph ramp.
	CellSize   *int
	FontFile   *string
	Glow       *bool
	GlowFrom   *int
	Jitter     *bool
	Noise      *float64
	Seed       *int64

	// Shading parameters
	BaseHue     *float64
	PaletteSize *int
	Gamma       *float64

	// Source
	MaxSourceSize *int
	Source        string // Positional argument.
}

// Register binds a new MosaicOptions to fs.
func Register(fs *flag.FlagSet) *MosaicOptions {
	o := &MosaicOptions{}
	o.Mode = fs.String("mode", ModeWindow, "Run mode: window, record, png or term")
	o.Preset = fs.String("preset", "", "Preset configuration: portrait or geez")
	o.Help = fs.Bool("help", false, "Show help message")
	o.Software = fs.Bool("software", false, "Render record and png output on the CPU")
	o.LogFile = fs.String("log", "", "Write log output to this file (term mode discards it otherwise)")

	o.Width = fs.Int("width", 1280, "Width of the window or output")
	o.Height = fs.Int("height", 720, "Height of the window or output")
	o.FPS = fs.Int("fps", 30, "Frames per second for recording")
	o.Duration = fs.Float64("duration", 10.0, "Duration to record in seconds")
	o.OutputFile = fs.String("output", "", "Output file (defaults to mosaic.mp4 or mosaic.png)")
	o.Codec = fs.String("codec", "h264", "Video codec: h264 or hevc")
	o.HWAccel = fs.Bool("hwaccel", false, "Use the platform's hardware video encoder")
	o.FFMPEGPath = fs.String("ffmpeg", "", "Path to ffmpeg executable")
	o.Fit = fs.Bool("fit", false, "Frame the camera so the grid fills the output")

	o.Rows = fs.Int("rows", 50, "Number of grid rows")
	o.Columns = fs.Int("columns", 50, "Number of grid columns")
	o.QuadSize = fs.Float64("size", 0.09, "Edge length of one quad in world units")

	o.Dictionary = fs.String("dict", "ascii", "Glyph dictionary: ascii, geez or a literal ramp from empty to dense")
	o.CellSize = fs.Int("cell", 64, "Atlas cell size in pixels")
	o.FontFile = fs.String("font", "", "TrueType/OpenType font file (defaults to Go Mono Bold)")
	o.Glow = fs.Bool("glow", false, "Blur glow under dense glyphs")
	o.GlowFrom = fs.Int("glow-from", 50, "Glyph index above which glow applies")
	o.Jitter = fs.Bool("jitter", false, "Random glyph rotation and intensity")
	o.Noise = fs.Float64("noise", 0, "Atlas noise amplitude in [0,1]")
	o.Seed = fs.Int64("seed", 1, "Seed for atlas jitter and noise")

	o.BaseHue = fs.Float64("hue", shading.DefaultParams.BaseHue, "Base hue in degrees [0,360]")
	o.PaletteSize = fs.Int("colors", shading.DefaultParams.PaletteSize, "Palette size [1,10]")
	o.Gamma = fs.Float64("gamma", shading.DefaultParams.Gamma, "Gamma applied to source brightness [0.1,20]")

	o.MaxSourceSize = fs.Int("source-size", 512, "Longest side of decoded source frames (0 keeps native size)")
	return o
}

// preset lists flag values by flag name.
type preset map[string]string

var presets = map[string]preset{
	"portrait": {
		"rows":    "50",
		"columns": "50",
		"size":    "0.09",
		"dict":    "ascii",
		"glow":    "false",
		"jitter":  "false",
		"noise":   "0",
		"hue":     "0",
		"colors":  "5",
		"gamma":   "0.9",
	},
	"geez": {
		"rows":      "50",
		"columns":   "50",
		"size":      "0.09",
		"dict":      "geez",
		"glow":      "true",
		"glow-from": "50",
		"jitter":    "true",
		"noise":     "0.04",
		"hue":       "0",
		"colors":    "5",
		"gamma":     "0.9",
	},
}

// Presets returns the names of the known presets.
func Presets() []string {
	return []string{"portrait", "geez"}
}

// ApplyPreset sets the values of the named preset on fs, leaving flags the
// user set explicitly untouched. An empty name is a no-op.
func ApplyPreset(fs *flag.FlagSet, name string) error {
	if name == "" {
		return nil
	}
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	for key, value := range p {
		if explicit[key] {
			continue
		}
		if err := fs.Set(key, value); err != nil {
			return fmt.Errorf("preset %s: failed to set %s: %w", name, key, err)
		}
	}
	return nil
}

// Normalize validates the mode and clamps numeric settings into range.
func (o *MosaicOptions) Normalize() error {
	switch *o.Mode {
	case ModeWindow, ModeRecord, ModePNG, ModeTerm:
	default:
		return fmt.Errorf("unknown mode %q", *o.Mode)
	}
	switch *o.Codec {
	case "h264", "hevc":
	default:
		return fmt.Errorf("unknown codec %q", *o.Codec)
	}

	if *o.Width < 1 || *o.Height < 1 {
		return fmt.Errorf("invalid output size %dx%d", *o.Width, *o.Height)
	}
	if *o.FPS < 1 {
		*o.FPS = 1
	}
	if *o.Duration < 0 {
		*o.Duration = 0
	}
	if *o.OutputFile == "" {
		switch *o.Mode {
		case ModePNG:
			*o.OutputFile = "mosaic.png"
		case ModeRecord:
			*o.OutputFile = "mosaic.mp4"
		}
	}

	p := o.Params()
	*o.BaseHue, *o.PaletteSize, *o.Gamma = p.BaseHue, p.PaletteSize, p.Gamma

	if *o.Noise < 0 {
		*o.Noise = 0
	} else if *o.Noise > 1 {
		*o.Noise = 1
	}
	if *o.MaxSourceSize < 0 {
		*o.MaxSourceSize = 0
	}
	return nil
}

// Params returns the initial shading parameters, clamped.
func (o *MosaicOptions) Params() shading.Params {
	return shading.Params{
		BaseHue:     *o.BaseHue,
		PaletteSize: *o.PaletteSize,
		Gamma:       *o.Gamma,
	}.Clamp()
}

// Frames returns the number of frames to record.
func (o *MosaicOptions) Frames() int {
	return int(*o.Duration * float64(*o.FPS))
}
