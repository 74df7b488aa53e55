package main

import (
	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices/fffe/display"
)

// Default display colors as RGBA.
var (
	colorOff = [4]float32{0.07, 0.09, 0.06, 1}
	colorOn  = [4]float32{0.62, 0.81, 0.44, 1}
)

// Renderer draws framebuffer snapshots onto the current OpenGL context.
// The physical framebuffer is uploaded as-is, so both resolution modes
// render through the same 128x64 texture.
type Renderer struct {
	pixels      [display.BufferSize]byte
	shader      uint32
	vao         uint32
	vbo         uint32
	tex         uint32
	dirty       bool
	initialized bool
}

// NewRenderer creates a new renderer. Init must be called once a GL
// context is current.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Init allocates GL resources.
func (r *Renderer) Init() error {
	var err error

	r.shader, err = compileProgram(vertex, fragment)
	if err != nil {
		return errors.Wrapf(err, "failed to compile shaders")
	}

	gl.UseProgram(r.shader)
	gl.Uniform4fv(gl.GetUniformLocation(r.shader, glStr("colorOff")), 1, &colorOff[0])
	gl.Uniform4fv(gl.GetUniformLocation(r.shader, glStr("colorOn")), 1, &colorOn[0])

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	vertAttrib := uint32(gl.GetAttribLocation(r.shader, glStr("vertPos")))
	texCoordAttrib := uint32(gl.GetAttribLocation(r.shader, glStr("vertTexCoord")))

	gl.EnableVertexAttribArray(vertAttrib)
	gl.VertexAttribPointer(vertAttrib, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))

	gl.EnableVertexAttribArray(texCoordAttrib)
	gl.VertexAttribPointer(texCoordAttrib, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))

	r.tex = makeTexture()
	r.dirty = true
	r.initialized = true
	return nil
}

// Dispose releases GL resources.
func (r *Renderer) Dispose() {
	if !r.initialized {
		return
	}

	r.initialized = false
	gl.DeleteTextures(1, &r.tex)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteProgram(r.shader)
}

// Update copies the given framebuffer contents into the texture buffer.
func (r *Renderer) Update(buf *display.Buffer) {
	for i, lit := range buf {
		var v byte
		if lit {
			v = 0xff
		}

		if r.pixels[i] != v {
			r.pixels[i] = v
			r.dirty = true
		}
	}
}

// Draw renders the most recent framebuffer contents.
func (r *Renderer) Draw() {
	if !r.initialized {
		return
	}

	if r.dirty {
		uploadTexture(r.tex, display.Width, display.Height, r.pixels[:])
		r.dirty = false
	}

	gl.UseProgram(r.shader)
	gl.BindVertexArray(r.vao)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.tex)

	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

var quadVertices = []float32{
	//  X, Y, Z, U, V
	-1.0, -1.0, 0.0, 0.0, 1.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	1.0, 1.0, 0.0, 1.0, 0.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
}
