package privacy

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// TokenProbe reports whether the physical security token is present. The
// shipped implementation simulates the dongle with a marker file; a real
// device-polling implementation can replace it without touching gate logic.
type TokenProbe interface {
	Probe(ctx context.Context) (TokenState, error)
}

// FileProbe simulates the hardware token with a marker file: the token is
// present exactly when the file exists.
type FileProbe struct {
	// Path of the marker file standing in for the dongle.
	Path string
}

// Probe reports presence from the marker file. A missing file is a clean
// "absent"; any other stat failure is returned as an error, which the gate
// treats as absent anyway.
func (p FileProbe) Probe(ctx context.Context) (TokenState, error) {
	if err := ctx.Err(); err != nil {
		return TokenAbsent, err
	}
	_, err := os.Stat(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return TokenAbsent, nil
	}
	if err != nil {
		return TokenAbsent, err
	}
	return TokenPresent, nil
}

// StaticProbe returns a fixed state. Used in tests and as a stand-in when
// no token hardware is configured.
type StaticProbe struct {
	State TokenState
	Err   error
}

func (p StaticProbe) Probe(ctx context.Context) (TokenState, error) {
	return p.State, p.Err
}
