//go:build !tinygo && cgo

package engraveaux

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

func ui(s glbuild.Shader3D, cfg UIConfig) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	log := engrave.Logger()
	bb := s.Bounds()
	diag := bb.Diagonal()
	center := bb.Center()
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	var sdfDecl bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	err = glbuild.ShortenNames3D(&s, 8)
	if err != nil {
		return err
	}
	root, _, objs, err := programmer.WriteSDFDecl(&sdfDecl, s)
	if err != nil {
		return err
	}
	var samplers []glbuild.ShaderObject
	for _, obj := range objs {
		if obj.IsSampler() {
			samplers = append(samplers, obj)
		}
	}
	if len(samplers) > 1 {
		return fmt.Errorf("preview supports a single atlas texture, scene uses %d", len(samplers))
	}
	fragSrc := makeFragSource(root, sdfDecl.String())
	log.Debug("preview fragment shader", "source", fragSrc)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex: `#version 460
in vec2 aPos;
out vec2 vTexCoord;
void main() {
    vTexCoord = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00",
		Fragment: fragSrc,
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	prog.Bind()
	if len(samplers) == 1 {
		err = bindAtlasTexture(prog, samplers[0], cfg.Atlas)
		if err != nil {
			return err
		}
	}
	// Quad covering the screen.
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	uniform := func(name string) int32 {
		if err != nil {
			return -1
		}
		var loc int32
		loc, err = prog.UniformLocation(name + "\x00")
		return loc
	}
	antialiasingUniform := uniform("uAA")
	camDistUniform := uniform("uCamDist")
	maxDistUniform := uniform("uMaxDist")
	resUniform := uniform("uResolution")
	yawUniform := uniform("uYaw")
	pitchUniform := uniform("uPitch")
	targetUniform := uniform("uTarget")
	if err != nil {
		return err
	}
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.Enable(gl.DEPTH_TEST)

	minZoom := float64(diag * 0.01)
	maxZoom := float64(diag * 10)
	var (
		yaw              = math.Pi / 2 // Look along the ring axis.
		pitch            float64
		lastMouseX       float64
		lastMouseY       float64
		camDist          = float64(diag)
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
		refresh          = true
		lastEdit         = time.Now()
	)
	if cfg.CameraDistance > 0 {
		camDist = float64(cfg.CameraDistance)
	}
	flagEdit := func() {
		refresh = true
		lastEdit = time.Now()
		gl.Uniform1i(antialiasingUniform, 1)
	}
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		flagEdit()
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastMouseX) * yawSensitivity
		pitch -= (ypos - lastMouseY) * pitchSensitivity
		const maxPitch = math.Pi/2 - 0.01
		pitch = max(-maxPitch, min(maxPitch, pitch))
		lastMouseX = xpos
		lastMouseY = ypos
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		flagEdit()
		camDist -= yoff * (camDist*.1 + .01)
		camDist = max(minZoom, min(maxZoom, camDist))
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		flagEdit()
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	ctx := cfg.Context
	gl.Uniform1i(antialiasingUniform, 3)
	gl.Uniform3f(targetUniform, center.X, center.Y, center.Z)
	log.Info("preview started", "root", root, "samplers", len(samplers))
OUTER:
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetSize()
		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		prog.Bind()
		gl.Uniform1f(camDistUniform, float32(camDist))
		gl.Uniform1f(maxDistUniform, float32(camDist)+2*diag)
		gl.Uniform2f(resUniform, float32(width), float32(height))
		gl.Uniform1f(yawUniform, float32(yaw))
		gl.Uniform1f(pitchUniform, float32(pitch))

		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()

		// Redraw only on input. Once idle, redraw a last time with full antialiasing.
		for {
			time.Sleep(time.Second / 60)
			glfw.PollEvents()
			if refresh || window.ShouldClose() {
				refresh = false
				break
			} else if !isMousePressed && time.Since(lastEdit) > 300*time.Millisecond {
				gl.Uniform1i(antialiasingUniform, 3)
				lastEdit = lastEdit.Add(time.Hour)
				continue OUTER
			}
		}
	}
	return nil
}

// bindAtlasTexture uploads the atlas texture to the sampler's texture unit and binds it.
// Rows are uploaded in decoded order so v=0 addresses the first image row.
func bindAtlasTexture(prog glgl.Program, sampler glbuild.ShaderObject, atlas *textsdf.Atlas) error {
	if atlas == nil || !atlas.HasTexture() {
		return fmt.Errorf("scene samples %s: %w", sampler.NamePtr, textsdf.ErrNoTexture)
	}
	unit := max(sampler.Binding, 0)
	img := atlas.Texture()
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride != 4*w {
		return errors.New("atlas texture is not tightly packed")
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	loc, err := prog.UniformLocation(string(sampler.NamePtr) + "\x00")
	if err != nil {
		return err
	}
	gl.Uniform1i(loc, int32(unit))
	return nil
}

func makeFragSource(rootSDFName, sdfDecl string) string {
	var buf bytes.Buffer
	buf.WriteString("#version 460\n")
	// Text fields sample with the GLSL ES 1.00 builtin.
	buf.WriteString("#define texture2D texture\n")
	buf.WriteString(sdfDecl + "\n")
	buf.WriteString("float sdf(vec3 p) {\n\treturn " + rootSDFName + "(p); \n};\n")
	buf.WriteString(`in vec2 vTexCoord;
out vec4 fragColor;

uniform float uMaxDist;
uniform vec2 uResolution;
uniform float uYaw;
uniform float uPitch;
uniform vec3 uTarget;
uniform float uCamDist;
uniform int uAA;

vec3 calcNormal(vec3 pos) {
    const float eps = 0.002;
    vec2 e = vec2(1.0, -1.0) * 0.5773;
    return normalize(
        e.xyy * sdf(pos + e.xyy * eps) +
        e.yyx * sdf(pos + e.yyx * eps) +
        e.yxy * sdf(pos + e.yxy * eps) +
        e.xxx * sdf(pos + e.xxx * eps)
    );
}

vec3 shade(vec3 n, vec3 rd) {
    vec3 l1 = normalize(vec3(1.0, 1.0, 1.0));
    vec3 l2 = normalize(vec3(-1.0, 0.5, 0.5));
    vec3 albedo = vec3(0.9, 0.85, 0.8);
    vec3 col = vec3(0.15, 0.15, 0.2);
    col += albedo * (0.7*max(dot(n, l1), 0.0) + 0.3*max(dot(n, l2), 0.0));
    vec3 v = -rd;
    col += vec3(pow(max(dot(v, reflect(-l1, n)), 0.0), 32.0) * 0.5);
    col += pow(1.0 - max(dot(n, v), 0.0), 3.0) * 0.3 * vec3(0.3, 0.4, 0.5);
    return col;
}

void main() {
    vec2 fragCoord = vTexCoord * uResolution;
    vec3 dir;
    dir.x = cos(uPitch) * sin(uYaw);
    dir.y = sin(uPitch);
    dir.z = cos(uPitch) * cos(uYaw);
    vec3 ro = uTarget - dir * uCamDist;
    vec3 ww = normalize(uTarget - ro);
    vec3 uu = normalize(cross(ww, vec3(0.0, 1.0, 0.0)));
    vec3 vv = cross(uu, ww);

    vec3 tot = vec3(0.0);
    for (int m = 0; m < uAA; m++)
    for (int n = 0; n < uAA; n++) {
        vec2 o = vec2(float(m), float(n)) / float(uAA) - 0.5;
        vec2 p = (2.0 * (fragCoord+o) - uResolution) / uResolution.y;
        vec3 rd = normalize(p.x * uu + p.y * vv + 1.5 * ww);
        const float tol = 0.001;
        float t = 0.0;
        bool hit = false;
        for (int i = 0; i < 256; i++) {
            float h = sdf(ro + t * rd);
            if (h < tol || t > uMaxDist) {
                hit = h < tol;
                break;
            }
            t += 0.9*h;
        }
        vec3 col;
        if (hit) {
            col = shade(calcNormal(ro + t*rd), rd);
        } else {
            col = mix(vec3(0.1, 0.1, 0.15), vec3(0.2, 0.2, 0.25), p.y*0.5 + 0.5);
        }
        tot += pow(clamp(col, 0.0, 1.0), vec3(0.4545));
    }
    tot /= float(uAA*uAA);
    fragColor = vec4(tot, 1.0);
}
`)
	buf.WriteByte(0)
	return buf.String()
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "engrave preview", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
