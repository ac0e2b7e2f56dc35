// Package renderer draws the mosaic with OpenGL: one instanced quad per grid
// cell, shaded by the translated glyph program.
package renderer

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"
	"github.com/richinsley/geezmosaic/graphics"
	"github.com/richinsley/geezmosaic/pipeline"
	"github.com/richinsley/geezmosaic/shader"
	"github.com/richinsley/geezmosaic/shading"
)

var glInitOnce sync.Once

// Texture units of the glyph program.
const (
	sourceUnit = 0
	atlasUnit  = 1
)

// sizer is implemented by contexts whose render size differs from their
// framebuffer size, such as a window capped to a pixel ratio.
type sizer interface {
	RenderSize() (int, int)
}

// titler is implemented by contexts that can show the live parameters.
type titler interface {
	SetTitle(title string)
}

type Renderer struct {
	context           graphics.Context
	pipe              *pipeline.Pipeline
	fit               bool
	glyph             *glyphProgram
	scene             *scene
	offscreenRenderer *OffscreenRenderer
	quadVAO           uint32
	quadVBO           uint32
	blitProgram       uint32
	blitTextureLoc    int32
	width             int
	height            int
	recordMode        bool
	dirty             atomic.Bool
	title             string
}

// NewRenderer makes ctx current, loads the GL entry points and allocates the
// offscreen target. In record mode frames are always width×height; otherwise
// they follow the context's size.
func NewRenderer(width, height int, recordMode, fit bool, p *pipeline.Pipeline, ctx graphics.Context) (*Renderer, error) {
	r := &Renderer{
		context:    ctx,
		pipe:       p,
		fit:        fit,
		width:      width,
		height:     height,
		recordMode: recordMode,
		title:      "geezmosaic",
	}

	r.context.MakeCurrent()

	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "failed to initialize OpenGL")
	}
	log.Printf("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))

	if !recordMode {
		r.width, r.height = r.renderSize()
	}

	var err error
	r.offscreenRenderer, err = NewOffscreenRenderer(r.width, r.height, numPBOs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create offscreen renderer")
	}

	// Uniform uploads happen on the GL thread; observers only flag them.
	r.dirty.Store(true)
	p.Uniforms.Subscribe(func(shading.Snapshot) {
		r.dirty.Store(true)
	})
	return r, nil
}

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

// InitScene compiles the programs and uploads the atlas and instance data.
func (r *Renderer) InitScene() error {
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	isGLES := r.context.IsGLES()
	var err error
	r.blitProgram, err = newProgram(shader.BlitVertexShader(isGLES), shader.BlitFragmentShader(isGLES))
	if err != nil {
		return errors.Wrap(err, "failed to create blit program")
	}
	r.blitTextureLoc = gl.GetUniformLocation(r.blitProgram, gl.Str("u_texture\x00"))

	r.glyph, err = newGlyphProgram(isGLES)
	if err != nil {
		return err
	}

	r.scene, err = newScene(r.pipe)
	if err != nil {
		return err
	}

	gl.UseProgram(r.glyph.program)
	gl.Uniform1i(r.glyph.sourceLoc, sourceUnit)
	gl.Uniform1i(r.glyph.atlasLoc, atlasUnit)
	gl.Uniform1f(r.glyph.glyphCountLoc, float32(r.pipe.Atlas.Count()))
	gl.Uniform1f(r.glyph.quadSizeLoc, r.pipe.Instances.Grid.Size)
	gl.UseProgram(0)
	return nil
}

// renderSize is the size frames are drawn at outside record mode.
func (r *Renderer) renderSize() (int, int) {
	if s, ok := r.context.(sizer); ok {
		return s.RenderSize()
	}
	return r.context.GetFramebufferSize()
}

// updateUniforms uploads the palette and gamma when they have changed since
// the last frame. The glyph program must be in use.
func (r *Renderer) updateUniforms() {
	if !r.dirty.Swap(false) {
		return
	}
	snap := r.pipe.Snapshot()
	r.glyph.setParams(snap)

	if t, ok := r.context.(titler); ok {
		t.SetTitle(fmt.Sprintf("%s  hue %.0f°  colors %d  gamma %.1f", r.title, snap.BaseHue, snap.PaletteSize, snap.Gamma))
	}
}

// RenderFrame draws the mosaic into the offscreen target.
func (r *Renderer) RenderFrame() {
	var renderWidth, renderHeight int

	if r.recordMode {
		renderWidth = r.width
		renderHeight = r.height
	} else {
		renderWidth, renderHeight = r.renderSize()
		if renderWidth != r.offscreenRenderer.width || renderHeight != r.offscreenRenderer.height {
			if err := r.offscreenRenderer.Resize(renderWidth, renderHeight); err != nil {
				log.Printf("Failed to resize offscreen target to %dx%d: %v", renderWidth, renderHeight, err)
				return
			}
			r.width, r.height = renderWidth, renderHeight
		}
	}

	r.scene.updateSource(r.pipe)

	gl.BindFramebuffer(gl.FRAMEBUFFER, r.offscreenRenderer.fbo)
	gl.Viewport(0, 0, int32(renderWidth), int32(renderHeight))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.glyph.program)
	r.updateUniforms()

	camera := r.pipe.Camera(renderWidth, renderHeight, r.fit)
	viewProj := camera.ViewProj(float32(renderWidth) / float32(renderHeight))
	gl.UniformMatrix4fv(r.glyph.viewProjLoc, 1, false, &viewProj[0])

	r.scene.draw()

	gl.UseProgram(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// blit copies the offscreen target to the default framebuffer.
func (r *Renderer) blit() {
	fbWidth, fbHeight := r.context.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(r.blitProgram)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.offscreenRenderer.textureID)
	gl.Uniform1i(r.blitTextureLoc, 0)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Run is the interactive loop. It returns when the context is closed.
func (r *Renderer) Run() {
	var frameCount int64
	startTime := r.context.Time()

	for !r.context.ShouldClose() {
		r.RenderFrame()
		r.blit()
		r.context.EndFrame()
		frameCount++
	}

	if elapsed := r.context.Time() - startTime; elapsed > 0 {
		log.Printf("Rendered %d frames at %.1f fps", frameCount, float64(frameCount)/elapsed)
	}
}

func (r *Renderer) Shutdown() {
	if r.scene != nil {
		r.scene.destroy()
	}
	if r.glyph != nil {
		gl.DeleteProgram(r.glyph.program)
	}
	gl.DeleteProgram(r.blitProgram)
	if r.offscreenRenderer != nil {
		r.offscreenRenderer.Destroy()
	}
	gl.DeleteBuffers(1, &r.quadVBO)
	gl.DeleteVertexArrays(1, &r.quadVAO)
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, errors.Errorf("failed to link program: %v", log)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, errors.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}
