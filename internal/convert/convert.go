package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/embercraft/assetconv/pkg/scene"
)

// Conversion stages reported to the progress sink.
const (
	StageValidate   = "validate"
	StageSkeleton   = "skeleton"
	StageModel      = "model"
	StageMaterials  = "materials"
	StageAnimations = "animations"
	StageDone       = "done"
)

// ProgressFunc receives coarse checkpoints as the pipeline advances.
// It is called at stage boundaries only, never mid-encode, and carries
// no correctness obligation.
type ProgressFunc func(stage string, fraction float32)

// Options configures a Converter.
type Options struct {
	// Destination is the directory output files are written to.
	Destination string
	// ShaderDir is the shader directory referenced by material records.
	ShaderDir string
	// ImportMaterials enables the material pass.
	ImportMaterials bool
	// ImportAnimations enables animation clip output.
	ImportAnimations bool
	// ConvertTexturesToDDS re-points material texture references to
	// .dds sidecars instead of copying the source textures.
	ConvertTexturesToDDS bool
	// CopyTextures copies referenced source textures next to the
	// material files. Ignored when ConvertTexturesToDDS is set.
	CopyTextures bool
	// FallbackFPS replaces a clip's playback rate when the source
	// reports zero. Zero means DefaultFPS.
	FallbackFPS float32
	// Progress, when set, receives stage checkpoints.
	Progress ProgressFunc
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Artifact records the outcome of one output file.
type Artifact struct {
	Kind string // "model", "material" or "animation"
	Path string
	Err  error
}

// Result lists every artifact the conversion attempted. Partial success
// is an expected outcome: a failed material does not invalidate the
// model written alongside it.
type Result struct {
	Artifacts []Artifact
}

// Err combines the errors of all failed artifacts, or nil.
func (r *Result) Err() error {
	var err error
	for _, a := range r.Artifacts {
		if a.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s %s: %w", a.Kind, a.Path, a.Err))
		}
	}
	return err
}

// Converter runs the conversion pipeline. A Converter is stateless
// between calls; all derived data lives and dies within one Convert.
type Converter struct {
	opts Options
	log  *zap.Logger
}

// New creates a Converter with the given options.
func New(opts Options) *Converter {
	if opts.ShaderDir == "" {
		opts.ShaderDir = "shaders"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{opts: opts, log: log}
}

// Convert runs the full pipeline over a decoded scene. The scene is
// read-only; sourcePath names the decoded file and provides the model's
// base name and the texture lookup directory.
//
// Whole-scene failures (decode validation, a malformed hierarchy) abort
// immediately with an error. Per-artifact failures are collected in the
// Result and do not stop sibling outputs.
func (c *Converter) Convert(s *scene.Scene, sourcePath string) (*Result, error) {
	c.progress(StageValidate, 0)
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c.progress(StageSkeleton, 0.1)
	table, err := FlattenBoneNames(s.Root)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	res := &Result{}

	if err := os.MkdirAll(c.opts.Destination, 0755); err != nil {
		return nil, err
	}

	c.progress(StageModel, 0.2)
	modelPath := filepath.Join(c.opts.Destination, base+".msh")
	res.add("model", modelPath, c.writeModel(s, table, modelPath))

	if c.opts.ImportMaterials {
		c.progress(StageMaterials, 0.6)
		srcDir := filepath.Dir(sourcePath)
		for _, mt := range s.Materials {
			path := filepath.Join(c.opts.Destination, sanitizeName(mt.Name)+".mat")
			res.add("material", path, c.writeMaterial(mt, srcDir, Skinned(s), path))
		}
	}

	if c.opts.ImportAnimations {
		c.progress(StageAnimations, 0.8)
		for _, clip := range s.Animations {
			path := filepath.Join(c.opts.Destination, sanitizeName(clip.Name)+".ani")
			res.add("animation", path, c.writeAnimation(clip, table, path))
		}
	}

	c.progress(StageDone, 1)
	c.log.Info("conversion finished",
		zap.String("source", sourcePath),
		zap.Int("artifacts", len(res.Artifacts)),
		zap.Int("failed", res.failed()),
	)
	return res, nil
}

func (c *Converter) writeModel(s *scene.Scene, table *BoneTable, path string) error {
	skins, err := BindSkin(s.Meshes, table)
	if err != nil {
		return err
	}
	model, err := BuildModel(s, skins)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := model.Marshal(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.log.Info("wrote model",
		zap.String("path", path),
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("triangles", len(model.Indices)/3),
		zap.Int("nodes", len(model.Nodes)),
	)
	return nil
}

func (c *Converter) writeMaterial(mt *scene.Material, srcDir string, skinned bool, path string) error {
	rec := materialRecord(mt, c.opts.ShaderDir, skinned, c.opts.ConvertTexturesToDDS)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	// Without conversion the referenced texture keeps its original
	// relative path, so the source image travels with the asset.
	if mt.Texture != "" && c.opts.CopyTextures && !c.opts.ConvertTexturesToDDS {
		src := filepath.Join(srcDir, filepath.FromSlash(mt.Texture))
		dst := filepath.Join(c.opts.Destination, filepath.FromSlash(mt.Texture))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copying texture %s: %w", mt.Texture, err)
		}
	}

	c.log.Debug("wrote material", zap.String("path", path), zap.String("texture", mt.Texture))
	return nil
}

func (c *Converter) writeAnimation(clip *scene.Animation, table *BoneTable, path string) error {
	anim, err := ResampleClip(clip, table, c.opts.FallbackFPS)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := anim.Marshal(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.log.Info("wrote animation",
		zap.String("path", path),
		zap.Int32("frames", anim.FrameCount),
		zap.Int32("bones", anim.BoneCount),
		zap.Float32("fps", anim.FPS),
	)
	return nil
}

func (c *Converter) progress(stage string, fraction float32) {
	if c.opts.Progress != nil {
		c.opts.Progress(stage, fraction)
	}
}

func (r *Result) add(kind, path string, err error) {
	r.Artifacts = append(r.Artifacts, Artifact{Kind: kind, Path: path, Err: err})
}

func (r *Result) failed() int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// sanitizeName makes a scene-provided name safe as a file name.
func sanitizeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
