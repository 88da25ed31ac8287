package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/scene"
)

// shaderPath picks the runtime shader matching the scene's vertex layout.
func shaderPath(shaderDir string, skinned bool) string {
	name := "rigid"
	if skinned {
		name = "skinned"
	}
	return fmt.Sprintf("%s/%s.shd", shaderDir, name)
}

// materialRecord builds the .mat record for one material. When DDS
// conversion is configured the texture reference is re-pointed to the
// converted sidecar next to the original path; producing the sidecar
// itself is the texture tool's job, not ours.
func materialRecord(mt *scene.Material, shaderDir string, skinned, convertToDDS bool) *asset.Material {
	rec := &asset.Material{Shader: shaderPath(shaderDir, skinned)}
	if mt.Texture == "" {
		return rec
	}
	if convertToDDS {
		rec.Texture = ddsSidecar(mt.Texture)
	} else {
		rec.Texture = mt.Texture
	}
	return rec
}

// ddsSidecar maps a texture path to its converted .dds neighbor.
func ddsSidecar(texture string) string {
	ext := filepath.Ext(texture)
	return strings.TrimSuffix(texture, ext) + ".dds"
}

// copyFile copies src to dst, creating dst's directory if needed.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
