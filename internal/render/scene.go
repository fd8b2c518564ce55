package render

import "regexp"

// DefaultSceneName is used when no scene declaration can be detected in the
// submitted source. The renderer is still invoked with it; if the source
// truly declares nothing the renderer reports its own failure.
const DefaultSceneName = "Main"

// sourceStem is the basename (without extension) the source is written under
// inside the workspace. The renderer derives its output directory from it.
const sourceStem = "scene"

// sourceFileName is the file the submitted source is persisted to.
const sourceFileName = sourceStem + ".py"

// scenePattern matches a class declaration whose base class name mentions
// Scene, e.g. `class Alpha(Scene):` or `class Orbit(ThreeDScene):`.
var scenePattern = regexp.MustCompile(`class\s+([A-Za-z_]\w*)\s*\(\s*[\w.]*Scene\w*\s*\)`)

// DetectSceneName extracts the first declared scene name from source, or
// DefaultSceneName when none is detectable.
func DetectSceneName(source string) string {
	m := scenePattern.FindStringSubmatch(source)
	if m == nil {
		return DefaultSceneName
	}
	return m[1]
}
