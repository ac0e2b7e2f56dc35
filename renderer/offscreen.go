package renderer

import (
	"image"
	"log"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"
)

// numPBOs is the depth of the readback ring. Frames come back numPBOs-1
// frames after they are drawn.
const numPBOs = 3

// OffscreenRenderer is the framebuffer every frame is drawn into, plus a ring
// of pixel buffers for asynchronous readback.
type OffscreenRenderer struct {
	fbo               uint32
	textureID         uint32
	depthRenderbuffer uint32
	width             int
	height            int
	pbos              []uint32
	pboIndex          int // Next PBO to read into.
	pending           int // PBOs holding frames not yet mapped.
}

func NewOffscreenRenderer(width, height, numPBOs int) (*OffscreenRenderer, error) {
	if numPBOs < 2 {
		return nil, errors.New("number of PBOs must be at least 2")
	}
	or := &OffscreenRenderer{pbos: make([]uint32, numPBOs)}

	gl.GenFramebuffers(1, &or.fbo)
	gl.GenTextures(1, &or.textureID)
	gl.GenRenderbuffers(1, &or.depthRenderbuffer)
	gl.GenBuffers(int32(len(or.pbos)), &or.pbos[0])

	if err := or.Resize(width, height); err != nil {
		or.Destroy()
		return nil, err
	}
	return or, nil
}

// Resize reallocates the color, depth and readback storage. Queued frames
// are discarded.
func (or *OffscreenRenderer) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return errors.Errorf("invalid offscreen size %dx%d", width, height)
	}
	or.width, or.height = width, height
	or.pboIndex, or.pending = 0, 0

	gl.BindFramebuffer(gl.FRAMEBUFFER, or.fbo)
	gl.BindTexture(gl.TEXTURE_2D, or.textureID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, or.textureID, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, or.depthRenderbuffer)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(width), int32(height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, or.depthRenderbuffer)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return errors.Errorf("offscreen fbo is not complete: 0x%x", status)
	}

	bufferSize := or.frameSize()
	for _, pbo := range or.pbos {
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, pbo)
		gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	}
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	log.Printf("Offscreen target %dx%d", width, height)
	return nil
}

func (or *OffscreenRenderer) frameSize() int {
	return or.width * or.height * 4
}

func (or *OffscreenRenderer) Destroy() {
	gl.DeleteFramebuffers(1, &or.fbo)
	gl.DeleteTextures(1, &or.textureID)
	gl.DeleteRenderbuffers(1, &or.depthRenderbuffer)
	gl.DeleteBuffers(int32(len(or.pbos)), &or.pbos[0])
}

// ReadPixelsAsync queues a read of the current frame and returns the oldest
// queued frame once the ring is full, or nil while it is still filling.
func (or *OffscreenRenderer) ReadPixelsAsync() (*image.RGBA, error) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, or.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[or.pboIndex])
	gl.ReadPixels(0, 0, int32(or.width), int32(or.height), gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	or.pboIndex = (or.pboIndex + 1) % len(or.pbos)
	or.pending++
	if or.pending < len(or.pbos) {
		return nil, nil
	}

	// The oldest frame sits in the PBO the next read will overwrite.
	img, err := or.mapPBO(or.pboIndex)
	or.pending--
	return img, err
}

// Drain returns the frames still queued, oldest first.
func (or *OffscreenRenderer) Drain() ([]*image.RGBA, error) {
	var frames []*image.RGBA
	n := len(or.pbos)
	for or.pending > 0 {
		oldest := (or.pboIndex - or.pending + n) % n
		img, err := or.mapPBO(oldest)
		or.pending--
		if err != nil {
			return frames, err
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// ReadPixels reads the current frame synchronously.
func (or *OffscreenRenderer) ReadPixels() *image.RGBA {
	pixels := make([]byte, or.frameSize())
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, or.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(or.width), int32(or.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return flipRows(pixels, or.width, or.height)
}

func (or *OffscreenRenderer) mapPBO(index int) (*image.RGBA, error) {
	bufferSize := or.frameSize()
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[index])
	defer gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, bufferSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return nil, errors.Errorf("failed to map PBO %d", index)
	}
	img := flipRows(unsafe.Slice((*byte)(ptr), bufferSize), or.width, or.height)
	gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)
	return img, nil
}

// flipRows copies bottom-up GL pixels into a top-down image.
func flipRows(pixels []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := pixels[(height-1-y)*rowSize : (height-y)*rowSize]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}
