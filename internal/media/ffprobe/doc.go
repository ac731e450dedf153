// Package ffprobe wraps ffprobe JSON output for rendered artifacts.
//
// The render stage uses it to confirm that a located file is a real video
// container (at least one video stream) before reporting success.
package ffprobe
