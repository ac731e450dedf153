package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes a Manim script to dir/name and returns its path.
func WriteScript(t testing.TB, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// FakeManimScript is a shell body for a stub manim binary. It writes an .mp4
// named after the scene (argument 2) under the --media_dir layout the engine
// uses, so artifact discovery can be exercised end to end. "--version"
// prints a version banner.
const FakeManimScript = `if [ "$1" = "--version" ]; then
  echo "Manim Community v0.18.1"
  exit 0
fi
src="$1"
scene="$2"
media=""
for arg in "$@"; do
  case "$arg" in
    --media_dir=*) media="${arg#--media_dir=}" ;;
  esac
done
stem=$(basename "$src" .py)
mkdir -p "$media/videos/$stem/720p30"
printf 'mp4' > "$media/videos/$stem/720p30/$scene.mp4"
exit 0
`
