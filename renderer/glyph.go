package renderer

import (
	"image"
	"log"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"
	"github.com/richinsley/geezmosaic/inputs"
	"github.com/richinsley/geezmosaic/pipeline"
	"github.com/richinsley/geezmosaic/shader"
	"github.com/richinsley/geezmosaic/shading"
	"github.com/richinsley/geezmosaic/translator"
)

// glyphProgram is the linked instanced glyph program and its uniform
// locations.
type glyphProgram struct {
	program       uint32
	viewProjLoc   int32
	quadSizeLoc   int32
	sourceLoc     int32
	atlasLoc      int32
	gammaLoc      int32
	glyphCountLoc int32
	colorCountLoc int32
	paletteLoc    int32
}

// newGlyphProgram translates both stages of the glyph program for the
// current context and links them.
func newGlyphProgram(isGLES bool) (*glyphProgram, error) {
	vs, err := translator.Translate(shader.GlyphVertexShader(), "vertex", isGLES)
	if err != nil {
		return nil, err
	}
	fs, err := translator.Translate(shader.GlyphFragmentShader(shading.MaxPaletteSize), "fragment", isGLES)
	if err != nil {
		return nil, err
	}

	program, err := newProgram(vs.Code, fs.Code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create glyph program")
	}

	gp := &glyphProgram{program: program}
	gp.viewProjLoc = uniformLocation(program, vs.MappedName(shader.UniformViewProj))
	gp.quadSizeLoc = uniformLocation(program, vs.MappedName(shader.UniformQuadSize))
	gp.sourceLoc = uniformLocation(program, fs.MappedName(shader.UniformSource))
	gp.atlasLoc = uniformLocation(program, fs.MappedName(shader.UniformAtlas))
	gp.gammaLoc = uniformLocation(program, fs.MappedName(shader.UniformGamma))
	gp.glyphCountLoc = uniformLocation(program, fs.MappedName(shader.UniformGlyphCount))
	gp.colorCountLoc = uniformLocation(program, fs.MappedName(shader.UniformColorCount))
	gp.paletteLoc = uniformLocation(program, fs.MappedName(shader.UniformPalette))

	if gp.viewProjLoc < 0 || gp.paletteLoc < 0 {
		log.Printf("Warning: glyph program is missing uniforms (viewProj %d, palette %d)", gp.viewProjLoc, gp.paletteLoc)
	}
	return gp, nil
}

// uniformLocation looks up name, falling back to its first array element.
func uniformLocation(program uint32, name string) int32 {
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	if loc < 0 {
		loc = gl.GetUniformLocation(program, gl.Str(name+"[0]\x00"))
	}
	return loc
}

// setParams uploads gamma and the active palette entries.
func (gp *glyphProgram) setParams(snap shading.Snapshot) {
	gl.Uniform1f(gp.gammaLoc, float32(snap.Gamma))
	gl.Uniform1i(gp.colorCountLoc, int32(len(snap.Palette)))
	if len(snap.Palette) > 0 {
		colors := snap.Palette.Floats()
		gl.Uniform3fv(gp.paletteLoc, int32(len(snap.Palette)), &colors[0])
	}
}

// Quad corners in instance space, two triangles.
var cornerVertices = []float32{
	-0.5, -0.5, 0.5, -0.5, 0.5, 0.5,
	-0.5, -0.5, 0.5, 0.5, -0.5, 0.5,
}

// scene holds the GPU copies of the pipeline's instance layout, atlas and
// source frame.
type scene struct {
	vao          uint32
	cornerVBO    uint32
	sampleVBO    uint32
	transformVBO uint32
	instances    int32

	atlasTex  uint32
	sourceTex uint32
	sourceGen uint64
	sourceW   int
	sourceH   int
}

func newScene(p *pipeline.Pipeline) (*scene, error) {
	inst := p.Instances
	if inst.Len() == 0 {
		return nil, errors.New("pipeline has no instances")
	}
	s := &scene{instances: int32(inst.Len())}

	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)

	gl.GenBuffers(1, &s.cornerVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.cornerVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(cornerVertices)*4, gl.Ptr(cornerVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(shader.AttribCorner)
	gl.VertexAttribPointer(shader.AttribCorner, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	gl.GenBuffers(1, &s.sampleVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.sampleVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(inst.SampleUVs)*4, gl.Ptr(inst.SampleUVs), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(shader.AttribSampleUV)
	gl.VertexAttribPointer(shader.AttribSampleUV, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.VertexAttribDivisor(shader.AttribSampleUV, 1)

	// A mat4 attribute is four vec4 columns.
	transforms := inst.TransformFloats()
	gl.GenBuffers(1, &s.transformVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.transformVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(transforms)*4, gl.Ptr(transforms), gl.STATIC_DRAW)
	for col := uint32(0); col < 4; col++ {
		loc := shader.AttribTransform + col
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, 4, gl.FLOAT, false, 16*4, gl.PtrOffset(int(col)*4*4))
		gl.VertexAttribDivisor(loc, 1)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	s.atlasTex = newTexture(p.Atlas.Image)
	log.Printf("Uploaded %d instances and %dx%d atlas", inst.Len(), p.Atlas.Image.Bounds().Dx(), p.Atlas.Image.Bounds().Dy())
	return s, nil
}

// newTexture uploads img, top row first, as a nearest-filtered RGBA texture.
func newTexture(img *image.RGBA) uint32 {
	flipped := inputs.VFlip(img)
	b := flipped.Bounds()

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(flipped.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// updateSource uploads the current source frame. A newly attached source or
// a size change reallocates the texture; a fresh frame of the same size is
// copied in place.
func (s *scene) updateSource(p *pipeline.Pipeline) {
	gen := p.Generation()
	src := p.Source()
	if src == nil {
		return
	}
	fresh := src.Update()
	frame := src.Frame()
	if frame == nil {
		return
	}
	b := frame.Bounds()

	if s.sourceTex == 0 || gen != s.sourceGen || b.Dx() != s.sourceW || b.Dy() != s.sourceH {
		if s.sourceTex != 0 {
			gl.DeleteTextures(1, &s.sourceTex)
		}
		s.sourceTex = newTexture(frame)
		s.sourceGen = gen
		s.sourceW, s.sourceH = b.Dx(), b.Dy()
		return
	}
	if !fresh {
		return
	}

	flipped := inputs.VFlip(frame)
	gl.BindTexture(gl.TEXTURE_2D, s.sourceTex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(s.sourceW), int32(s.sourceH), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(flipped.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// draw issues the instanced draw. The glyph program must be in use.
func (s *scene) draw() {
	gl.ActiveTexture(gl.TEXTURE0 + sourceUnit)
	gl.BindTexture(gl.TEXTURE_2D, s.sourceTex)
	gl.ActiveTexture(gl.TEXTURE0 + atlasUnit)
	gl.BindTexture(gl.TEXTURE_2D, s.atlasTex)

	gl.BindVertexArray(s.vao)
	gl.DrawArraysInstanced(gl.TRIANGLES, 0, 6, s.instances)
	gl.BindVertexArray(0)

	gl.ActiveTexture(gl.TEXTURE0 + atlasUnit)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.ActiveTexture(gl.TEXTURE0 + sourceUnit)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (s *scene) destroy() {
	gl.DeleteTextures(1, &s.atlasTex)
	if s.sourceTex != 0 {
		gl.DeleteTextures(1, &s.sourceTex)
	}
	buffers := []uint32{s.cornerVBO, s.sampleVBO, s.transformVBO}
	gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	gl.DeleteVertexArrays(1, &s.vao)
}
