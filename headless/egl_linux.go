//go:build linux

package headless

import (
	"fmt"
	"log"
	"time"
)

/*
#cgo LDFLAGS: -lEGL -lGLESv2
#include <EGL/egl.h>
#include <EGL/eglext.h>

// Device enumeration is an extension; its entry points are resolved at run
// time and the wrappers fail cleanly when the driver lacks them.
static PFNEGLQUERYDEVICESEXTPROC query_devices_ext = NULL;
static PFNEGLGETPLATFORMDISPLAYEXTPROC platform_display_ext = NULL;

static int load_device_extensions() {
    query_devices_ext = (PFNEGLQUERYDEVICESEXTPROC) eglGetProcAddress("eglQueryDevicesEXT");
    platform_display_ext = (PFNEGLGETPLATFORMDISPLAYEXTPROC) eglGetProcAddress("eglGetPlatformDisplayEXT");
    return query_devices_ext != NULL && platform_display_ext != NULL;
}

static EGLBoolean query_devices(EGLint max, EGLDeviceEXT *devices, EGLint *count) {
    return query_devices_ext ? query_devices_ext(max, devices, count) : EGL_FALSE;
}

static EGLDisplay device_display(EGLDeviceEXT device) {
    return platform_display_ext(EGL_PLATFORM_DEVICE_EXT, device, NULL);
}
*/
import "C"

// Headless is an EGL pbuffer context for the offscreen renderer. Frames are
// drawn into the renderer's own framebuffer, so the pbuffer only has to
// keep the context current.
type Headless struct {
	display C.EGLDisplay
	context C.EGLContext
	surface C.EGLSurface
	width   int
	height  int
	start   time.Time
}

// eglError wraps the thread's last EGL error code.
func eglError(call string) error {
	return fmt.Errorf("%s failed: EGL error 0x%x", call, uint32(C.eglGetError()))
}

// openDisplay returns a display on the first GPU that exposes one, or the
// default display when the driver cannot enumerate devices.
func openDisplay() (C.EGLDisplay, error) {
	noDisplay := C.EGLDisplay(C.EGL_NO_DISPLAY)

	var count C.EGLint
	if C.load_device_extensions() != 0 && C.query_devices(0, nil, &count) == C.EGL_TRUE && count > 0 {
		devices := make([]C.EGLDeviceEXT, count)
		if C.query_devices(count, &devices[0], &count) == C.EGL_FALSE {
			return noDisplay, eglError("eglQueryDevicesEXT")
		}
		for i := 0; i < int(count); i++ {
			if display := C.device_display(devices[i]); display != noDisplay {
				log.Printf("Using EGL device %d of %d.", i, count)
				return display, nil
			}
		}
		log.Println("No EGL device exposes a display; trying the default display.")
	}

	display := C.eglGetDisplay(C.EGLNativeDisplayType(C.EGL_DEFAULT_DISPLAY))
	if display == noDisplay {
		return noDisplay, eglError("eglGetDisplay")
	}
	return display, nil
}

// NewHeadless creates an OpenGL ES 3 context on a width×height pbuffer and
// makes it current. The size is what GetFramebufferSize reports.
func NewHeadless(width, height int) (*Headless, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid headless size %dx%d", width, height)
	}
	h := &Headless{
		display: C.EGLDisplay(C.EGL_NO_DISPLAY),
		context: C.EGLContext(C.EGL_NO_CONTEXT),
		surface: C.EGLSurface(C.EGL_NO_SURFACE),
		width:   width,
		height:  height,
		start:   time.Now(),
	}
	if err := h.init(); err != nil {
		h.Shutdown()
		return nil, err
	}
	return h, nil
}

func (h *Headless) init() error {
	display, err := openDisplay()
	if err != nil {
		return fmt.Errorf("failed to get EGL display: %w", err)
	}
	var major, minor C.EGLint
	if C.eglInitialize(display, &major, &minor) == C.EGL_FALSE {
		return eglError("eglInitialize")
	}
	h.display = display
	log.Printf("EGL %d.%d initialized.", major, minor)

	if C.eglBindAPI(C.EGL_OPENGL_ES_API) == C.EGL_FALSE {
		return eglError("eglBindAPI")
	}

	// Depth and alpha live on the renderer's framebuffer, not here.
	configAttribs := []C.EGLint{
		C.EGL_SURFACE_TYPE, C.EGL_PBUFFER_BIT,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES3_BIT,
		C.EGL_RED_SIZE, 8,
		C.EGL_GREEN_SIZE, 8,
		C.EGL_BLUE_SIZE, 8,
		C.EGL_NONE,
	}
	var config C.EGLConfig
	var numConfig C.EGLint
	if C.eglChooseConfig(h.display, &configAttribs[0], &config, 1, &numConfig) == C.EGL_FALSE {
		return eglError("eglChooseConfig")
	}
	if numConfig == 0 {
		return fmt.Errorf("no EGL config supports OpenGL ES 3 pbuffers")
	}

	surfaceAttribs := []C.EGLint{
		C.EGL_WIDTH, C.EGLint(h.width),
		C.EGL_HEIGHT, C.EGLint(h.height),
		C.EGL_NONE,
	}
	h.surface = C.eglCreatePbufferSurface(h.display, config, &surfaceAttribs[0])
	if h.surface == C.EGLSurface(C.EGL_NO_SURFACE) {
		return eglError("eglCreatePbufferSurface")
	}

	contextAttribs := []C.EGLint{
		C.EGL_CONTEXT_CLIENT_VERSION, 3,
		C.EGL_NONE,
	}
	h.context = C.eglCreateContext(h.display, config, C.EGLContext(C.EGL_NO_CONTEXT), &contextAttribs[0])
	if h.context == C.EGLContext(C.EGL_NO_CONTEXT) {
		return eglError("eglCreateContext")
	}

	if C.eglMakeCurrent(h.display, h.surface, h.surface, h.context) == C.EGL_FALSE {
		return eglError("eglMakeCurrent")
	}
	return nil
}

// Shutdown releases whatever init managed to create.
func (h *Headless) Shutdown() {
	if h.display == C.EGLDisplay(C.EGL_NO_DISPLAY) {
		return
	}
	C.eglMakeCurrent(h.display, C.EGLSurface(C.EGL_NO_SURFACE), C.EGLSurface(C.EGL_NO_SURFACE), C.EGLContext(C.EGL_NO_CONTEXT))
	if h.context != C.EGLContext(C.EGL_NO_CONTEXT) {
		C.eglDestroyContext(h.display, h.context)
		h.context = C.EGLContext(C.EGL_NO_CONTEXT)
	}
	if h.surface != C.EGLSurface(C.EGL_NO_SURFACE) {
		C.eglDestroySurface(h.display, h.surface)
		h.surface = C.EGLSurface(C.EGL_NO_SURFACE)
	}
	C.eglTerminate(h.display)
	h.display = C.EGLDisplay(C.EGL_NO_DISPLAY)
}

func (h *Headless) MakeCurrent() {
	C.eglMakeCurrent(h.display, h.surface, h.surface, h.context)
}

// ShouldClose is always false; offscreen loops end after a frame count.
func (h *Headless) ShouldClose() bool {
	return false
}

// EndFrame flushes queued commands. Nothing is presented.
func (h *Headless) EndFrame() {
	C.eglSwapBuffers(h.display, h.surface)
}

func (h *Headless) GetFramebufferSize() (int, int) {
	return h.width, h.height
}

func (h *Headless) Time() float64 {
	return time.Since(h.start).Seconds()
}

func (h *Headless) IsGLES() bool {
	return true
}
