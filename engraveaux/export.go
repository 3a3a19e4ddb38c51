package engraveaux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glexport"
)

// Export builds the mesher artifacts of the configured scene. Ring exports splice the
// engraving into host, flat exports ignore it. Nothing is written, see [WriteExport].
func Export(sc SceneConfig, host []byte) (glexport.Artifacts, error) {
	err := sc.Validate()
	if err != nil {
		return glexport.Artifacts{}, err
	}
	atlas, err := sc.Atlas.LoadAtlas()
	if err != nil {
		return glexport.Artifacts{}, err
	}
	return ExportWithAtlas(sc, host, atlas)
}

// ExportWithAtlas is like [Export] with an already loaded atlas.
func ExportWithAtlas(sc SceneConfig, host []byte, atlas *textsdf.Atlas) (a glexport.Artifacts, err error) {
	text := sc.Text
	var date glexport.Date
	if sc.Export.Date != "" {
		date, err = glexport.ParseDate(sc.Export.Date)
		if err != nil {
			return a, err
		}
		text = date.Display
	}
	param, err := sc.Parameter(date.Unix)
	if err != nil {
		return a, err
	}
	tc := sc.TextConfig(atlas)
	lcfg := sc.LayoutConfig()
	ec := sc.EngraveConfig()
	if !sc.Engrave.Flat && len(host) == 0 {
		return a, errors.New("ring export requires host scene source")
	}

	switch {
	case sc.Engrave.Flat:
		layout, err := textsdf.NewLayout(text, atlas, lcfg)
		if err != nil {
			return a, err
		}
		a, err = glexport.ExportFlat(layout, atlas, sc.Export.FlatDepth, tc)
		if err != nil {
			return a, err
		}
	case sc.Export.Variable:
		df, err := glexport.NewGlyphDispatchField(atlas, sc.Export.Positions, lcfg, tc.Field)
		if err != nil {
			return a, err
		}
		// Validates text against the dispatch set before anything is generated.
		_, err = df.IndicesFor(text)
		if err != nil {
			return a, err
		}
		df.ShiftY = sc.Export.ShiftY
		a, err = glexport.ExportVariableRing(host, df, atlas, ec, param, tc)
		if err != nil {
			return a, err
		}
	default:
		layout, err := textsdf.NewLayout(text, atlas, lcfg)
		if err != nil {
			return a, err
		}
		a, err = glexport.ExportRing(host, layout, atlas, ec, param, tc)
		if err != nil {
			return a, err
		}
	}
	if !sc.Engrave.Flat {
		rp := glexport.RingParams(sc.Export.Size, sc.Export.Resolution)
		a.Params.Size, a.Params.Resolution = rp.Size, rp.Resolution
	}
	if sc.Export.Date != "" {
		a.Params.SetDate(date)
	}
	a.Params.DisplayText = text
	return a, nil
}

// ExportName returns the artifact directory name of the configured export.
func (sc SceneConfig) ExportName() string {
	switch {
	case sc.Export.Name != "":
		return sc.Export.Name
	case sc.Engrave.Flat:
		return "text-" + sanitizeName(sc.Text)
	case sc.Export.Date != "":
		return "engraved-" + sc.Export.Date
	}
	return "engraved-" + sanitizeName(sc.Text)
}

// WriteExport runs [Export] reading the configured host file and writes the artifacts
// to their directory, which is returned.
func WriteExport(sc SceneConfig) (string, error) {
	var host []byte
	if !sc.Engrave.Flat {
		if sc.Export.Host == "" {
			return "", errors.New("no host scene configured")
		}
		var err error
		host, err = os.ReadFile(sc.Export.Host)
		if err != nil {
			return "", fmt.Errorf("reading host scene: %w", err)
		}
	}
	a, err := Export(sc, host)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(sc.Export.OutDir, sc.ExportName())
	err = glexport.WriteArtifacts(dir, a)
	if err != nil {
		return "", err
	}
	engrave.Logger().Info("export done", "dir", dir, "text", a.Params.DisplayText, "id", a.Params.ExportID)
	return dir, nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ', r == textsdf.MiddleDot:
			return '-'
		}
		return -1
	}, s)
}
