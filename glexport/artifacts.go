package glexport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/soypat/engrave"
)

// Artifact file names written by [WriteArtifacts].
const (
	SourceFile       = "sdf.txt"
	DeclarationsFile = "texture-declarations.txt"
	ParamsFile       = "params.json"
	TextureFile      = "msdf.png"
)

// DefaultDeclarations is the declarations file content of sources sampling the default texture.
const DefaultDeclarations = "uniform sampler2D uMsdfTexture;\n"

// Artifacts is the set of files consumed by the mesher.
type Artifacts struct {
	// Source is the scene GLSL with uniform declarations omitted.
	Source []byte
	// Declarations are the uniform declarations injected by the mesher.
	// Empty selects [DefaultDeclarations].
	Declarations []byte
	Params       Params
	// Texture is encoded as the atlas PNG. If nil the file at TexturePath is copied.
	Texture     image.Image
	TexturePath string
}

// WriteArtifacts writes a's files into dir, creating it if needed. All contents are
// produced before the first file is written; if writing fails files already written are removed
// along with any directories created for them.
func WriteArtifacts(dir string, a Artifacts) error {
	start := time.Now()
	if len(a.Source) == 0 {
		return errors.New("empty shader source")
	}
	decls := a.Declarations
	if len(decls) == 0 {
		decls = []byte(DefaultDeclarations)
	}
	params, err := a.Params.MarshalIndent()
	if err != nil {
		return err
	}
	var tex []byte
	switch {
	case a.Texture != nil:
		var buf bytes.Buffer
		err = png.Encode(&buf, a.Texture)
		if err != nil {
			return fmt.Errorf("encoding texture: %w", err)
		}
		tex = buf.Bytes()
	case a.TexturePath != "":
		tex, err = os.ReadFile(a.TexturePath)
		if err != nil {
			return err
		}
	case a.Params.HasTexture:
		return errors.New("params require a texture but none given")
	}

	created, err := firstMissingDir(dir)
	if err != nil {
		return err
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}
	files := []struct {
		name string
		data []byte
	}{
		{SourceFile, a.Source},
		{DeclarationsFile, decls},
		{ParamsFile, params},
		{TextureFile, tex},
	}
	var written []string
	for _, f := range files {
		if f.data == nil {
			continue
		}
		path := filepath.Join(dir, f.name)
		err = writeFile(path, f.data, 0o644)
		if err != nil {
			for _, w := range written {
				os.Remove(w)
			}
			if created != "" {
				os.RemoveAll(created)
			}
			return err
		}
		written = append(written, path)
	}
	engrave.Logger().Info("wrote artifacts", "dir", dir, "files", len(written), "elapsed", time.Since(start))
	return nil
}

var writeFile = os.WriteFile

// firstMissingDir returns the outermost directory of dir's path that does not exist,
// or the empty string if dir exists.
func firstMissingDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	missing := ""
	for {
		_, err := os.Stat(dir)
		if err == nil {
			return missing, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		missing = dir
		parent := filepath.Dir(dir)
		if parent == dir {
			return missing, nil
		}
		dir = parent
	}
}
