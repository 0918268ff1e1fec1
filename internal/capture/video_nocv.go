//go:build nocv

package capture

import "github.com/pkg/errors"

// OpenCamera is unavailable without OpenCV.
func OpenCamera(id int, opts Options) (Source, error) {
	return nil, errors.Wrapf(ErrNoOpenCV, "camera %d", id)
}

// OpenVideoFile is unavailable without OpenCV.
func OpenVideoFile(path string, opts Options) (Source, error) {
	return nil, errors.Wrapf(ErrNoOpenCV, "video %s", path)
}
