package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goksuguvendiren/optix-renderer/asset"
	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/material"
	"github.com/goksuguvendiren/optix-renderer/scene"
)

var logger = log.New("scene reader")

// Parse a scene document. The returned scene is fully populated but not
// materialized on any render device.
func Parse(r io.Reader) (*scene.Scene, error) {
	var doc jsonScene
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w %s: expected %s; got %s", ErrMalformedField, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, fmt.Errorf("reader: could not decode scene document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the scene document", ErrMalformedField)
	}

	sc := scene.NewScene()
	for _, step := range []func(*jsonScene, *scene.Scene) error{
		parseCamera,
		parseSettings,
		parsePrograms,
		parseLights,
		parseMaterials,
		parseGeometry,
	} {
		if err := step(&doc, sc); err != nil {
			return nil, err
		}
	}

	return sc, nil
}

// Read and parse a scene from a local file or an http(s) URL. Meshes
// referenced by the scene are loaded relative to the scene location.
func ReadScene(pathToScene string) (*scene.Scene, error) {
	start := time.Now()
	logger.Noticef("parsing scene from %q", pathToScene)

	res, err := asset.NewResource(pathToScene, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	sc, err := Parse(res)
	if err != nil {
		return nil, err
	}

	for index := range sc.Geometry.Meshes {
		if err = loadMesh(&sc.Geometry.Meshes[index], res); err != nil {
			return nil, fmt.Errorf("reader: Geometry.Meshes[%d]: %w", index, err)
		}
	}

	logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

func loadMesh(mesh *scene.TriangleMesh, sceneRes *asset.Resource) error {
	res, err := asset.NewResource(mesh.File, sceneRes)
	if err != nil {
		return err
	}
	defer res.Close()

	path, cleanup, err := asset.LocalFile(res)
	if err != nil {
		return err
	}
	defer cleanup()

	if err = mesh.Load(path); err != nil {
		return err
	}
	logger.Infof("loaded mesh %q (%d triangles)", mesh.File, len(mesh.Triangles))
	return nil
}

func parseCamera(doc *jsonScene, sc *scene.Scene) error {
	if doc.Camera == nil {
		return fmt.Errorf("%w Camera", ErrMissingField)
	}

	eye, err := decodeVec3(doc.Camera.Eye, "Camera.Eye", true)
	if err != nil {
		return err
	}
	lookAt, err := decodeVec3(doc.Camera.Lookat, "Camera.Lookat", true)
	if err != nil {
		return err
	}
	up, err := decodeVec3(doc.Camera.Up, "Camera.Up", true)
	if err != nil {
		return err
	}

	// The aspect ratio is fixed up by parseSettings once the plane size is known
	sc.AddCamera(scene.NewCamera(eye, lookAt, up, 1, 1))
	return nil
}

func parseSettings(doc *jsonScene, sc *scene.Scene) error {
	var err error
	settings := &sc.Settings

	if doc.Plane == nil {
		return fmt.Errorf("%w Plane", ErrMissingField)
	}
	if settings.Width, err = decodeUint32(doc.Plane.Width, "Plane.Width", true, 0); err != nil {
		return err
	}
	if settings.Height, err = decodeUint32(doc.Plane.Height, "Plane.Height", true, 0); err != nil {
		return err
	}
	if settings.Width == 0 || settings.Height == 0 {
		return fmt.Errorf("%w Plane: width and height must be positive", ErrMalformedField)
	}
	if settings.SPP, err = decodeUint32(doc.SPP, "SPP", true, 0); err != nil {
		return err
	}
	if settings.SPP == 0 {
		return fmt.Errorf("%w SPP: must be positive", ErrMalformedField)
	}
	if settings.BadColor, err = decodeVec3(doc.BadColor, "BadColor", true); err != nil {
		return err
	}
	if settings.BackgroundColor, err = decodeVec3(doc.BackgroundColor, "BackgroundColor", true); err != nil {
		return err
	}
	if settings.SceneEpsilon, err = decodeFloat32(doc.SceneEpsilon, "SceneEpsilon", false, scene.DefaultSceneEpsilon); err != nil {
		return err
	}
	if settings.RRBeginDepth, err = decodeUint32(doc.RRBeginDepth, "RRBeginDepth", false, scene.DefaultRRBeginDepth); err != nil {
		return err
	}

	sc.Camera().SetAspect(settings.Width, settings.Height)
	return nil
}

func parsePrograms(doc *jsonScene, sc *scene.Scene) error {
	var err error
	progs := &sc.Programs

	if progs.RayGenerationFile, err = decodeString(doc.RayGenerationProgramFile, "RayGenerationProgramFile", true); err != nil {
		return err
	}
	if progs.RayGeneration, err = decodeString(doc.RayGenerationProgram, "RayGenerationProgram", true); err != nil {
		return err
	}
	if progs.Exception, err = decodeString(doc.ExceptionProgram, "ExceptionProgram", true); err != nil {
		return err
	}
	if progs.MissFile, err = decodeString(doc.MissProgramFile, "MissProgramFile", true); err != nil {
		return err
	}
	if progs.Miss, err = decodeString(doc.MissProgram, "MissProgram", true); err != nil {
		return err
	}

	name, err := decodeString(doc.SampleName, "SampleName", false)
	if err != nil {
		return err
	}
	if name != "" {
		progs.SampleName = name
	}
	return nil
}

// Lights can either be an object with PointLights/AreaLights lists or an
// array of {"PointLight": ...} / {"AreaLight": ...} entries.
func parseLights(doc *jsonScene, sc *scene.Scene) error {
	if isAbsent(doc.Lights) {
		return nil
	}

	var lights jsonLights
	var entries []jsonLightEntry
	if err := json.Unmarshal(doc.Lights, &entries); err == nil {
		for index, entry := range entries {
			switch {
			case entry.PointLight != nil:
				lights.PointLights = append(lights.PointLights, *entry.PointLight)
			case entry.AreaLight != nil:
				lights.AreaLights = append(lights.AreaLights, *entry.AreaLight)
			default:
				return fmt.Errorf("%w Lights[%d]: expected a PointLight or AreaLight entry", ErrMalformedField, index)
			}
		}
	} else if err = json.Unmarshal(doc.Lights, &lights); err != nil {
		return fmt.Errorf("%w Lights: %s", ErrMalformedField, err)
	}

	for index, l := range lights.PointLights {
		path := fmt.Sprintf("Lights.PointLights[%d]", index)
		pos, err := decodeVec3(l.Position, path+".Position", true)
		if err != nil {
			return err
		}
		emission, err := decodeVec3(l.Emission, path+".Emission", true)
		if err != nil {
			return err
		}
		sc.AddPointLight(scene.PointLight{Position: pos, Emission: emission})
	}

	for index, l := range lights.AreaLights {
		path := fmt.Sprintf("Lights.AreaLights[%d]", index)
		corner, err := decodeVec3(l.Corner, path+".Corner", true)
		if err != nil {
			return err
		}
		v1, err := decodeVec3(l.V1, path+".V1", true)
		if err != nil {
			return err
		}
		v2, err := decodeVec3(l.V2, path+".V2", true)
		if err != nil {
			return err
		}
		emission, err := decodeVec3(l.Emission, path+".Emission", true)
		if err != nil {
			return err
		}
		light, err := scene.NewAreaLight(corner, v1, v2, emission)
		if err != nil {
			return fmt.Errorf("reader: %s: %w", path, err)
		}
		sc.AddAreaLight(light)
	}

	return nil
}

func parseMaterials(doc *jsonScene, sc *scene.Scene) error {
	for index, m := range doc.Materials {
		path := fmt.Sprintf("Materials[%d]", index)

		kind, err := decodeString(m.Type, path+".Type", true)
		if err != nil {
			return err
		}
		if !material.Supported(kind) {
			return fmt.Errorf("%w %q at %s", ErrUnsupportedMaterialType, kind, path)
		}

		desc := scene.MaterialDesc{Type: kind}
		if desc.Name, err = decodeString(m.Name, path+".Name", true); err != nil {
			return err
		}
		if desc.Source, err = decodeString(m.Source, path+".Source", true); err != nil {
			return err
		}
		if desc.ClosestHit, err = decodeString(m.ClosestHit, path+".ClosestHit", true); err != nil {
			return err
		}
		if desc.AnyHit, err = decodeString(m.AnyHit, path+".AnyHit", false); err != nil {
			return err
		}
		if desc.DiffuseColor, err = decodeVec3(m.DiffuseColor, path+".DiffuseColor", true); err != nil {
			return err
		}
		if desc.SpecularColor, err = decodeVec3(m.SpecularColor, path+".SpecularColor", false); err != nil {
			return err
		}
		if desc.Exponent, err = decodeFloat32(m.Exponent, path+".Exponent", false, 0); err != nil {
			return err
		}
		if desc.Emission, err = decodeVec3(m.Emission, path+".Emission", false); err != nil {
			return err
		}

		if err = sc.AddMaterial(desc); err != nil {
			return fmt.Errorf("reader: %s: %w", path, err)
		}
	}
	return nil
}

// Geometry material references are resolved when the scene is materialized.
func parseGeometry(doc *jsonScene, sc *scene.Scene) error {
	if doc.Geometry == nil {
		return nil
	}

	var err error
	for index, p := range doc.Geometry.Parallelograms {
		path := fmt.Sprintf("Geometry.Parallelograms[%d]", index)

		var prim scene.Parallelogram
		if prim.Anchor, err = decodeVec3(p.Anchor, path+".anchor", true); err != nil {
			return err
		}
		if prim.V1, err = decodeVec3(p.V1, path+".v1", true); err != nil {
			return err
		}
		if prim.V2, err = decodeVec3(p.V2, path+".v2", true); err != nil {
			return err
		}
		if prim.Material, err = decodeString(p.Material, path+".material", true); err != nil {
			return err
		}
		if prim.Color, err = decodeVec3(p.Color, path+".color", false); err != nil {
			return err
		}
		sc.AddParallelogram(prim)
	}

	for index, m := range doc.Geometry.Meshes {
		path := fmt.Sprintf("Geometry.Meshes[%d]", index)

		var mesh scene.TriangleMesh
		if mesh.File, err = decodeString(m.File, path+".file", true); err != nil {
			return err
		}
		if mesh.Material, err = decodeString(m.Material, path+".material", true); err != nil {
			return err
		}
		if mesh.Transform, err = decodeMat4(m.Transform, path+".transform"); err != nil {
			return err
		}
		sc.AddMesh(mesh)
	}

	return nil
}
