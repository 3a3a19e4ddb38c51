//go:build tinygo || !cgo

package engraveaux

import (
	"errors"

	"github.com/soypat/engrave/glbuild"
)

func ui(s glbuild.Shader3D, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
