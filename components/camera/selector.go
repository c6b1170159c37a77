package camera

import (
	"strconv"
	"strings"
)

// SelectorKind says what kind of source a selector string names.
type SelectorKind int

const (
	// SelectDevice is a local capture device.
	SelectDevice SelectorKind = iota
	// SelectStream is a video file path or a stream URL.
	SelectStream
	// SelectDirectory is a directory of still images.
	SelectDirectory
)

// DirPrefix marks a selector as a directory of images.
const DirPrefix = "dir:"

// Selector is a parsed source selector.
type Selector struct {
	Kind     SelectorKind
	DeviceID int
	Path     string
}

// ParseSelector interprets the source option. The empty string and "webcam" select device 0,
// a bare integer selects that device, "dir:<path>" a directory of images; anything else is
// handed to the capture backend as a file path or URL.
func ParseSelector(selector string) Selector {
	trimmed := strings.TrimSpace(selector)
	switch {
	case trimmed == "" || strings.EqualFold(trimmed, "webcam"):
		return Selector{Kind: SelectDevice}
	case strings.HasPrefix(trimmed, DirPrefix):
		return Selector{Kind: SelectDirectory, Path: strings.TrimPrefix(trimmed, DirPrefix)}
	}
	if id, err := strconv.Atoi(trimmed); err == nil && id >= 0 {
		return Selector{Kind: SelectDevice, DeviceID: id}
	}
	return Selector{Kind: SelectStream, Path: trimmed}
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectDevice:
		return "webcam:" + strconv.Itoa(s.DeviceID)
	case SelectDirectory:
		return DirPrefix + s.Path
	default:
		return s.Path
	}
}
