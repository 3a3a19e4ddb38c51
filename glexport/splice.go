package glexport

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// ParamMode selects how the date parameter reaches the host scene.
type ParamMode int

const (
	// ParamLiteral bakes the date into the source as a constant.
	ParamLiteral ParamMode = iota
	// ParamUniform reads the date from a uniform set by the mesher.
	ParamUniform
)

// Parameter is the value substituted for the host's date assignment
//
//	float targetDate = 1735128000.0;
type Parameter struct {
	Mode ParamMode
	// Value is the unix time written in ParamLiteral mode.
	Value float64
	// Uniform names the uniform in ParamUniform mode. Defaults to uTargetDate.
	Uniform string
}

// LiteralParam returns a parameter baking unixTime into the source.
func LiteralParam(unixTime int64) Parameter {
	return Parameter{Mode: ParamLiteral, Value: float64(unixTime)}
}

// UniformParam returns a parameter read from the uTargetDate uniform.
func UniformParam() Parameter {
	return Parameter{Mode: ParamUniform, Uniform: "uTargetDate"}
}

func (param Parameter) uniformName() string {
	if param.Uniform == "" {
		return "uTargetDate"
	}
	return param.Uniform
}

func (param Parameter) appendValue(b []byte) ([]byte, error) {
	switch param.Mode {
	case ParamLiteral:
		b = strconv.AppendFloat(b, param.Value, 'f', 1, 64)
	case ParamUniform:
		b = append(b, param.uniformName()...)
	default:
		return b, fmt.Errorf("unknown parameter mode %d", param.Mode)
	}
	return b, nil
}

const (
	markerBegin = "// engrave:text-begin\n"
	markerEnd   = "// engrave:text-end\n"
	sceneEntry  = "float mapScene("
)

var (
	rxTargetDate = regexp.MustCompile(`\b(\w+\s+)?float targetDate = ([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?);`)
	// Assignment left by a previous uniform splice, valid only when its uniform is declared in the text block.
	rxSplicedDate = regexp.MustCompile(`\b(\w+\s+)?float targetDate = ([A-Za-z_]\w*);`)
	rxWrapper     = regexp.MustCompile(`float mapDistance\(vec3 p\)\s*\{\s*return mapScene\(p\);\s*\}`)
	rxEngraved    = regexp.MustCompile(`float mapDistance\(vec3 p\) \{\n(?:\tp\.y -= [-+\d.eE]+;\n)?\tfloat dRing = mapScene\(p\);\n\tfloat dText = ` + EngravingName + `\(p\);\n\treturn max\(dRing, -dText\);\n\}`)
)

// appendWrapper appends the mapDistance function subtracting the engraving from the scene.
// A non zero shiftY moves the scene down by shiftY before evaluating both fields.
func appendWrapper(b []byte, shiftY float32) []byte {
	b = append(b, "float mapDistance(vec3 p) {\n"...)
	if shiftY != 0 {
		b = append(b, "\tp.y -= "...)
		b = strconv.AppendFloat(b, float64(shiftY), 'f', -1, 32)
		if shiftY == float32(int(shiftY)) {
			b = append(b, ".0"...)
		}
		b = append(b, ";\n"...)
	}
	b = append(b, "\tfloat dRing = mapScene(p);\n\tfloat dText = "...)
	b = append(b, EngravingName...)
	return append(b, "(p);\n\treturn max(dRing, -dText);\n}"...)
}

// findTargetDate returns the range of the date value in src. Substituted uniforms are
// only recognized when declared between the text markers.
func findTargetDate(src []byte) (start, end int, ok bool) {
	for _, m := range rxTargetDate.FindAllSubmatchIndex(src, -1) {
		if !isConst(src, m) {
			return m[4], m[5], true
		}
	}
	blockStart := bytes.Index(src, []byte(markerBegin))
	if blockStart < 0 {
		return 0, 0, false
	}
	blockEnd := bytes.Index(src[blockStart:], []byte(markerEnd))
	if blockEnd < 0 {
		return 0, 0, false
	}
	block := src[blockStart : blockStart+blockEnd]
	for _, m := range rxSplicedDate.FindAllSubmatchIndex(src, -1) {
		decl := "uniform float " + string(src[m[4]:m[5]]) + ";"
		if !isConst(src, m) && bytes.Contains(block, []byte(decl)) {
			return m[4], m[5], true
		}
	}
	return 0, 0, false
}

// isConst reports whether the qualifier group of match m is const.
func isConst(src []byte, m []int) bool {
	return m[2] >= 0 && string(bytes.TrimSpace(src[m[2]:m[3]])) == "const"
}

// Splice engraves text into the host scene source. text must define textSdf3D.
// The date assignment is replaced according to param, text is inserted before the
// mapScene function between marker comments and the mapDistance wrapper is rewritten
// to subtract the engraving:
//
//	float mapDistance(vec3 p) {
//		float dRing = mapScene(p);
//		float dText = textSdf3D(p);
//		return max(dRing, -dText);
//	}
//
// Splicing already spliced source replaces the previous text instead of adding a second copy.
// Splice fails with [ErrParamNotFound] or [ErrSpliceTargetNotFound] if the host lacks
// the assignment, the entry point or the wrapper. The date assignment must hold a
// numeric literal.
func Splice(host, text []byte, param Parameter) ([]byte, error) {
	return SpliceShifted(host, text, param, 0)
}

// SpliceShifted is like [Splice] with a wrapper that first moves the scene down by shiftY:
//
//	float mapDistance(vec3 p) {
//		p.y -= 4.0;
//		float dRing = mapScene(p);
//		...
func SpliceShifted(host, text []byte, param Parameter, shiftY float32) ([]byte, error) {
	vstart, vend, ok := findTargetDate(host)
	if !ok {
		return nil, ErrParamNotFound
	}
	value, err := param.appendValue(nil)
	if err != nil {
		return nil, err
	}
	src := make([]byte, 0, len(host)+len(text)+len(markerBegin)+len(markerEnd)+256)
	src = append(src, host[:vstart]...)
	src = append(src, value...)
	src = append(src, host[vend:]...)

	block := append([]byte(markerBegin), "\n"...)
	if param.Mode == ParamUniform {
		block = append(block, "uniform float "...)
		block = append(block, param.uniformName()...)
		block = append(block, ";\n"...)
	}
	block = append(block, text...)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		block = append(block, '\n')
	}
	block = append(block, markerEnd...)

	start := bytes.Index(src, []byte(markerBegin))
	if start >= 0 {
		end := bytes.Index(src[start:], []byte(markerEnd))
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated %q", ErrSpliceTargetNotFound, markerBegin)
		}
		end += start + len(markerEnd)
		src = replaceRange(src, start, end, block)
	} else {
		entry := bytes.Index(src, []byte(sceneEntry))
		if entry < 0 {
			return nil, fmt.Errorf("%w: no %q", ErrSpliceTargetNotFound, sceneEntry)
		}
		src = replaceRange(src, entry, entry, block)
	}

	wloc := rxWrapper.FindIndex(src)
	if wloc == nil {
		// Spliced before, possibly with another shift.
		wloc = rxEngraved.FindIndex(src)
	}
	if wloc == nil {
		return nil, fmt.Errorf("%w: no mapDistance wrapper delegating to mapScene", ErrSpliceTargetNotFound)
	}
	src = replaceRange(src, wloc[0], wloc[1], appendWrapper(nil, shiftY))
	return src, nil
}

func replaceRange(b []byte, start, end int, with []byte) []byte {
	out := make([]byte, 0, len(b)-(end-start)+len(with))
	out = append(out, b[:start]...)
	out = append(out, with...)
	return append(out, b[end:]...)
}
