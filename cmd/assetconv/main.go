// assetconv converts glTF scene files into Ember engine asset files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/embercraft/assetconv/internal/config"
	"github.com/embercraft/assetconv/internal/convert"
	"github.com/embercraft/assetconv/internal/logger"
	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert":
		cmdConvert(args)
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`assetconv - Ember engine asset converter

Usage:
  assetconv <command> [options]

Commands:
  convert [options] <scene.gltf>  Convert a scene to engine assets
  info <file>                     Inspect a scene, model or animation file

Examples:
  assetconv convert -o assets/models character.gltf
  assetconv convert -no-materials -dds tavern.glb
  assetconv info assets/models/character.msh`)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	out := fs.String("o", "", "Output directory")
	shaderDir := fs.String("shaders", "", "Shader directory referenced by materials")
	noMaterials := fs.Bool("no-materials", false, "Skip material output")
	noAnimations := fs.Bool("no-animations", false, "Skip animation output")
	dds := fs.Bool("dds", false, "Reference .dds textures instead of copying sources")
	noCopy := fs.Bool("no-copy-textures", false, "Skip copying source textures to the output")
	level := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetconv convert [options] <scene.gltf>")
		os.Exit(1)
	}
	sourcePath := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *out != "" {
		cfg.Output.Destination = *out
	}
	if *shaderDir != "" {
		cfg.Output.ShaderDir = *shaderDir
	}
	if *dds {
		cfg.Textures.ConvertToDDS = true
	}
	if *noCopy {
		cfg.Textures.CopySources = false
	}
	if *level != "" {
		cfg.Logging.Level = *level
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	s, err := scene.LoadGLTF(sourcePath)
	if err != nil {
		log.Error("loading scene failed", zap.String("path", sourcePath), zap.Error(err))
		os.Exit(1)
	}

	conv := convert.New(convert.Options{
		Destination:          cfg.Output.Destination,
		ShaderDir:            cfg.Output.ShaderDir,
		ImportMaterials:      !*noMaterials,
		ImportAnimations:     !*noAnimations,
		ConvertTexturesToDDS: cfg.Textures.ConvertToDDS,
		CopyTextures:         cfg.Textures.CopySources,
		FallbackFPS:          cfg.Animation.DefaultFPS,
		Logger:               log,
		Progress: func(stage string, fraction float32) {
			log.Debug("progress", zap.String("stage", stage), zap.Float32("fraction", fraction))
		},
	})

	res, err := conv.Convert(s, sourcePath)
	if err != nil {
		log.Error("conversion failed", zap.String("path", sourcePath), zap.Error(err))
		os.Exit(1)
	}

	for _, a := range res.Artifacts {
		if a.Err != nil {
			fmt.Printf("FAILED  %-9s %s: %v\n", a.Kind, a.Path, a.Err)
		} else {
			fmt.Printf("wrote   %-9s %s\n", a.Kind, a.Path)
		}
	}
	if res.Err() != nil {
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetconv info <file>")
		os.Exit(1)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if model, err := asset.ParseModel(data); err == nil {
		printModelInfo(path, model)
		return
	} else if !errors.Is(err, asset.ErrBadMagic) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if anim, err := asset.ParseAnimation(data); err == nil {
		printAnimationInfo(path, anim)
		return
	} else if !errors.Is(err, asset.ErrBadMagic) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Neither engine magic matched; try it as a source scene.
	s, err := scene.LoadGLTF(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unrecognized file %s: %v\n", path, err)
		os.Exit(1)
	}
	printSceneInfo(path, s)
}

func printModelInfo(path string, m *asset.Model) {
	fmt.Printf("Model:      %s\n", path)
	fmt.Printf("Meshes:     %d\n", len(m.Meshes))
	fmt.Printf("Triangles:  %d\n", len(m.Indices)/3)
	fmt.Printf("Bones:      %d\n", len(m.Nodes))
	fmt.Printf("LODs:       %d\n", len(m.LODs))
	for _, mesh := range m.Meshes {
		fmt.Printf("  mesh %-20s material=%s triangles=%d stride=%d\n",
			mesh.Name, mesh.Material, mesh.TriangleCount, mesh.Stride())
	}
}

func printAnimationInfo(path string, a *asset.Animation) {
	fmt.Printf("Animation:  %s\n", path)
	fmt.Printf("FPS:        %g\n", a.FPS)
	fmt.Printf("Frames:     %d\n", a.FrameCount)
	fmt.Printf("Bones:      %d\n", a.BoneCount)
	if a.FPS > 0 {
		fmt.Printf("Duration:   %.2fs\n", float64(a.FrameCount)/float64(a.FPS))
	}
}

func printSceneInfo(path string, s *scene.Scene) {
	fmt.Printf("Scene:      %s\n", path)
	fmt.Printf("Meshes:     %d\n", len(s.Meshes))
	fmt.Printf("Vertices:   %d\n", s.VertexCount())
	fmt.Printf("Faces:      %d\n", s.FaceCount())
	fmt.Printf("Materials:  %d\n", len(s.Materials))
	fmt.Printf("Animations: %d\n", len(s.Animations))
	for _, clip := range s.Animations {
		fmt.Printf("  clip %-20s duration=%.1f ticks tps=%g channels=%d\n",
			clip.Name, clip.Duration, clip.TicksPerSecond, len(clip.Channels))
	}
}
