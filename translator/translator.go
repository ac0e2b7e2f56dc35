package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translator *gst.ShaderTranslator
	initErr    error
	once       sync.Once
)

// GetTranslator returns the process-wide shader translator, creating it on
// first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, initErr
}

// Stage is a translated shader stage.
type Stage struct {
	Code  string
	names map[string]string
}

// MappedName returns the name the translator gave to a declared variable.
// Unknown names are returned unchanged.
func (s *Stage) MappedName(name string) string {
	if mapped, ok := s.names[name]; ok && mapped != "" {
		return mapped
	}
	return name
}

// Translate converts a WebGL2 shader stage ("vertex" or "fragment") into
// GLSL 4.10, or ESSL when isGLES is set.
func Translate(source, stage string, isGLES bool) (*Stage, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", err)
	}

	outputFormat := gst.OutputFormatGLSL410
	if isGLES {
		outputFormat = gst.OutputFormatESSL
	}
	res, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}

	st := &Stage{Code: res.Code, names: make(map[string]string, len(res.Variables))}
	for name, v := range res.Variables {
		st.names[name] = v.MappedName
	}
	return st, nil
}
