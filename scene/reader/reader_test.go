package reader

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goksuguvendiren/optix-renderer/types"
)

const minimalScene = `{
  "Camera": {"Eye": [278, 273, -900], "Lookat": [278, 273, 0], "Up": [0, 1, 0]},
  "Lights": {
    "AreaLights": [
      {"Corner": [343, 548.6, 227], "V1": [-130, 0, 0], "V2": [0, 0, 105], "Emission": [15, 15, 5]}
    ]
  },
  "Plane": {"Width": 512, "Height": 512},
  "SPP": 100,
  "BadColor": [1, 0, 1],
  "BackgroundColor": [0, 0, 0],
  "RayGenerationProgramFile": "pt.cu",
  "RayGenerationProgram": "pathtrace_camera",
  "ExceptionProgram": "exception",
  "MissProgramFile": "pt.cu",
  "MissProgram": "miss"
}`

func TestParseExampleScene(t *testing.T) {
	sc, err := Parse(strings.NewReader(minimalScene))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Cameras) != 1 {
		t.Fatalf("expected 1 camera; got %d", len(sc.Cameras))
	}
	if len(sc.AreaLights) != 1 {
		t.Fatalf("expected 1 area light; got %d", len(sc.AreaLights))
	}
	n := sc.AreaLights[0].Normal
	if abs(n[0]) > 1e-6 || abs(n[1]-1) > 1e-6 || abs(n[2]) > 1e-6 {
		t.Fatalf("expected area light normal [0, 1, 0]; got %v", n)
	}
	if sc.Settings.Width != 512 || sc.Settings.Height != 512 || sc.Settings.SPP != 100 {
		t.Fatalf("expected 512x512 @ 100 spp; got %dx%d @ %d spp", sc.Settings.Width, sc.Settings.Height, sc.Settings.SPP)
	}

	// Defaults
	if sc.Settings.SceneEpsilon != 1e-3 || sc.Settings.RRBeginDepth != 1 {
		t.Fatalf("expected default epsilon and rr depth; got %f, %d", sc.Settings.SceneEpsilon, sc.Settings.RRBeginDepth)
	}
	if sc.Programs.SampleName != "optixPathTracer" {
		t.Fatalf("expected default sample name; got %q", sc.Programs.SampleName)
	}
	if sc.Camera().Aspect != 1 {
		t.Fatalf("expected camera aspect 1; got %f", sc.Camera().Aspect)
	}

	if err = sc.Validate(); err != nil {
		t.Fatalf("expected parsed scene to be valid; got %v", err)
	}
}

func TestParseLightArrayLayout(t *testing.T) {
	doc := strings.Replace(minimalScene, `"Lights": {
    "AreaLights": [
      {"Corner": [343, 548.6, 227], "V1": [-130, 0, 0], "V2": [0, 0, 105], "Emission": [15, 15, 5]}
    ]
  }`, `"Lights": [
    {"PointLight": {"Position": [0, 500, 0], "Emission": [1, 1, 1]}},
    {"AreaLight": {"Corner": [343, 548.6, 227], "V1": [-130, 0, 0], "V2": [0, 0, 105], "Emission": [15, 15, 5]}}
  ]`, 1)

	sc, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.PointLights) != 1 || len(sc.AreaLights) != 1 {
		t.Fatalf("expected 1 point and 1 area light; got %d and %d", len(sc.PointLights), len(sc.AreaLights))
	}
	if sc.PointLights[0].Position != types.XYZ(0, 500, 0) {
		t.Fatalf("unexpected point light position %v", sc.PointLights[0].Position)
	}

	_, err = Parse(strings.NewReader(strings.Replace(doc, `"PointLight"`, `"SpotLight"`, 1)))
	if !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField for unknown light entry; got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		old, new string
		expErr   error
		expPath  string
	}
	specs := []spec{
		{`"Camera": {"Eye": [278, 273, -900], "Lookat": [278, 273, 0], "Up": [0, 1, 0]},`, ``, ErrMissingField, "Camera"},
		{`"Up": [0, 1, 0]`, `"Up": [0, 1]`, ErrMalformedField, "Camera.Up"},
		{`"Eye": [278, 273, -900]`, `"Eye": [278, "a", -900]`, ErrMalformedField, "Camera.Eye"},
		{`"Lookat": [278, 273, 0], `, ``, ErrMissingField, "Camera.Lookat"},
		{`"SPP": 100,`, ``, ErrMissingField, "SPP"},
		{`"SPP": 100,`, `"SPP": 0,`, ErrMalformedField, "SPP"},
		{`"SPP": 100,`, `"SPP": -1,`, ErrMalformedField, "SPP"},
		{`"Plane": {"Width": 512, "Height": 512},`, ``, ErrMissingField, "Plane"},
		{`"Height": 512`, `"Height": null`, ErrMissingField, "Plane.Height"},
		{`"BadColor": [1, 0, 1],`, ``, ErrMissingField, "BadColor"},
		{`"MissProgram": "miss"`, `"MissProgram": ""`, ErrMissingField, "MissProgram"},
		{`"V2": [0, 0, 105]`, `"V2": [1, 0, 0]`, nil, "Lights.AreaLights[0]"},
		{`"Camera": {`, `"Camera": 42, "Unused": {`, ErrMalformedField, "Camera"},
	}

	for index, s := range specs {
		doc := strings.Replace(minimalScene, s.old, s.new, 1)
		if doc == minimalScene {
			t.Fatalf("[spec %d] replacement did not modify the document", index)
		}

		sc, err := Parse(strings.NewReader(doc))
		if err == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
		if sc != nil {
			t.Fatalf("[spec %d] expected no scene to be returned on error", index)
		}
		if s.expErr != nil && !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
		if !strings.Contains(err.Error(), s.expPath) {
			t.Fatalf("[spec %d] expected error to mention %q; got %v", index, s.expPath, err)
		}
	}
}

func TestParseUnsupportedMaterialType(t *testing.T) {
	doc := strings.Replace(minimalScene, `"MissProgram": "miss"`, `"MissProgram": "miss",
  "Materials": [{"Type": "Lambert", "Name": "white", "Source": "pt.cu", "ClosestHit": "ch", "AnyHit": "ah", "DiffuseColor": [1, 1, 1]}]`, 1)

	_, err := Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrUnsupportedMaterialType) {
		t.Fatalf("expected ErrUnsupportedMaterialType; got %v", err)
	}
	if !strings.Contains(err.Error(), "Lambert") {
		t.Fatalf("expected error to mention the material type; got %v", err)
	}
}

func TestParseInvalidDocument(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{"Camera": `)); err == nil {
		t.Fatal("expected an error for a truncated document")
	}

	for _, trailer := range []string{`{}`, `x`, `]`} {
		_, err := Parse(strings.NewReader(minimalScene + "\n" + trailer))
		if !errors.Is(err, ErrMalformedField) {
			t.Fatalf("expected ErrMalformedField for trailing %q; got %v", trailer, err)
		}
	}

	if _, err := Parse(strings.NewReader(minimalScene + "\n\n")); err != nil {
		t.Fatalf("expected trailing whitespace to be accepted; got %v", err)
	}
}

func TestReadScene(t *testing.T) {
	sc, err := ReadScene("testdata/cornell.json")
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Materials) != 2 {
		t.Fatalf("expected 2 materials; got %d", len(sc.Materials))
	}
	if mat, _ := sc.Material("light"); !mat.IsEmissive() || mat.AnyHit != "" {
		t.Fatalf("expected material light to be emissive without an any hit program; got %+v", mat)
	}
	if len(sc.Geometry.Parallelograms) != 4 {
		t.Fatalf("expected 4 parallelograms; got %d", len(sc.Geometry.Parallelograms))
	}
	if c := sc.Geometry.Parallelograms[3].Color; c != types.XYZ(1, 1, 1) {
		t.Fatalf("expected parallelogram color [1, 1, 1]; got %v", c)
	}

	if len(sc.Geometry.Meshes) != 1 {
		t.Fatalf("expected 1 mesh; got %d", len(sc.Geometry.Meshes))
	}
	mesh := sc.Geometry.Meshes[0]
	if len(mesh.Triangles) != 1 {
		t.Fatalf("expected mesh to contain 1 triangle; got %d", len(mesh.Triangles))
	}
	// The row-major transform translates the mesh by 100 along X
	if mesh.BBox[0] != types.XYZ(100, 0, 0) || mesh.BBox[1] != types.XYZ(101, 1, 0) {
		t.Fatalf("unexpected mesh bbox %v", mesh.BBox)
	}
}

func TestReadRemoteScene(t *testing.T) {
	server := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	defer server.Close()

	sc, err := ReadScene(server.URL + "/cornell.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Geometry.Meshes) != 1 || len(sc.Geometry.Meshes[0].Triangles) != 1 {
		t.Fatal("expected remote mesh to be fetched relative to the scene URL")
	}
}

func TestReadSceneMissingMesh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cornell.json" {
			http.ServeFile(w, r, "testdata/cornell.json")
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := ReadScene(server.URL + "/cornell.json")
	if err == nil || !strings.Contains(err.Error(), "Geometry.Meshes[0]") {
		t.Fatalf("expected mesh load error; got %v", err)
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
