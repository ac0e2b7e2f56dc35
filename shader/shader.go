package shader

import (
	"fmt"
	"strconv"

	"github.com/richinsley/geezmosaic/shading"
)

// Uniform names of the glyph program. The translator may rename them; look
// the mapped names up in its variable table.
const (
	UniformViewProj   = "uViewProj"
	UniformQuadSize   = "uQuadSize"
	UniformSource     = "uSource"
	UniformAtlas      = "uAtlas"
	UniformGamma      = "uGamma"
	UniformGlyphCount = "uGlyphCount"
	UniformColorCount = "uColorCount"
	UniformPalette    = "uPalette"
)

// Attribute locations of the glyph program. The transform is a mat4 and
// occupies four consecutive locations.
const (
	AttribCorner    = 0
	AttribSampleUV  = 1
	AttribTransform = 2
)

// ─────────────────────────────── Glyph program ────────────────────────────────

const glyphVertexShaderSource = `#version 300 es
precision highp float;

layout(location = 0) in vec2 aCorner;
layout(location = 1) in vec2 aSampleUV;
layout(location = 2) in mat4 aTransform;

uniform mat4  uViewProj;
uniform float uQuadSize;

out vec2 vLocalUV;
out vec2 vSampleUV;

void main() {
    vLocalUV  = aCorner + 0.5;
    vSampleUV = aSampleUV;
    gl_Position = uViewProj * aTransform * vec4(aCorner * uQuadSize, 0.0, 1.0);
}
`

const glyphFragmentShaderTemplate = `#version 300 es
precision highp float;
precision highp int;

#define MAX_COLORS %d
#define BAND_WIDTH %s

uniform sampler2D uSource;
uniform sampler2D uAtlas;
uniform float     uGamma;
uniform float     uGlyphCount;
uniform int       uColorCount;
uniform vec3      uPalette[MAX_COLORS];

in vec2 vLocalUV;
in vec2 vSampleUV;
out vec4 fragColor;

void main() {
    float raw = clamp(texture(uSource, vSampleUV).r, 0.0, 1.0);
    float brightness = pow(raw, uGamma);

    float cell = clamp(floor(brightness * uGlyphCount), 0.0, uGlyphCount - 1.0);
    vec2 local = clamp(vLocalUV, 0.0, 0.99999);
    vec2 atlasUV = vec2(local.x / uGlyphCount + cell / uGlyphCount, local.y);
    float mask = texture(uAtlas, atlasUV).r;

    vec3 color = uPalette[0];
    for (int i = 1; i < MAX_COLORS; i++) {
        if (i >= uColorCount) {
            break;
        }
        color = mix(color, uPalette[i], step(BAND_WIDTH * float(i), brightness));
    }

    fragColor = vec4(color * mask, 1.0);
}
`

// GlyphVertexShader returns the WebGL2 vertex stage of the instanced glyph
// program.
func GlyphVertexShader() string {
	return glyphVertexShaderSource
}

// GlyphFragmentShader returns the WebGL2 fragment stage with room for
// maxColors palette entries.
func GlyphFragmentShader(maxColors int) string {
	if maxColors < 1 {
		maxColors = 1
	}
	return fmt.Sprintf(glyphFragmentShaderTemplate, maxColors, glslFloat(shading.BandWidth))
}

// glslFloat formats f as a GLSL float literal.
func glslFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}

// ──────────────────────────────── Blit program ────────────────────────────────

const vertexShaderSourceGL = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const blitFragmentShaderSourceGL = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;
void main() { fragColor = texture(u_texture, frag_uv); }
`

const vertexShaderSourceGLES = `#version 300 es
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const blitFragmentShaderSourceGLES = `#version 300 es
precision mediump float;
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;
void main() { fragColor = texture(u_texture, frag_uv); }
`

// BlitVertexShader returns the fullscreen quad vertex stage.
func BlitVertexShader(isGLES bool) string {
	if isGLES {
		return vertexShaderSourceGLES
	}
	return vertexShaderSourceGL
}

// BlitFragmentShader copies u_texture to the bound framebuffer.
func BlitFragmentShader(isGLES bool) string {
	if isGLES {
		return blitFragmentShaderSourceGLES
	}
	return blitFragmentShaderSourceGL
}
