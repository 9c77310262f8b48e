package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ortLibraryEnv overrides shared library discovery when set.
const ortLibraryEnv = "ONNXRUNTIME_LIB_PATH"

// locateSharedLibrary finds the ONNX Runtime shared library. The explicit
// path from configuration wins, then the environment override, then a sweep
// of the usual install locations. A miss is reported, not fatal: the caller
// degrades to mock inference.
func locateSharedLibrary(explicit string) (string, error) {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit, nil
		}
		return "", fmt.Errorf("configured onnxruntime library not found: %s", explicit)
	}

	if p := os.Getenv(ortLibraryEnv); p != "" {
		if fileExists(p) {
			return p, nil
		}
		return "", fmt.Errorf("%s points at missing file: %s", ortLibraryEnv, p)
	}

	pattern := libraryPattern()
	var tried []string
	for _, dir := range candidateDirs() {
		tried = append(tried, dir)
		if m := globFirst(dir, pattern); m != "" {
			return m, nil
		}
	}
	return "", fmt.Errorf("onnxruntime library %q not found in %v", pattern, tried)
}

func libraryPattern() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime*.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so*"
	}
}

func candidateDirs() []string {
	var dirs []string
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		dirs = append(dirs, filepath.Join(exeDir, "lib"), exeDir)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, "lib"), cwd)
	}
	if runtime.GOOS != "windows" {
		dirs = append(dirs, "/usr/local/lib", "/usr/lib")
	}
	return dirs
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func globFirst(dir, pattern string) string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
