package media

import "github.com/h2non/bimg"

const (
	displayWidth = 1600
	thumbWidth   = 400
)

// Renditions converts an uploaded image into the two JPEGs we keep: a
// display-sized rendition and a thumbnail.
func Renditions(original []byte) (display, thumb []byte, err error) {
	display, err = bimg.NewImage(original).Process(bimg.Options{
		Width:   displayWidth,
		Type:    bimg.JPEG,
		Quality: 85,
	})
	if err != nil {
		return nil, nil, err
	}
	thumb, err = bimg.NewImage(original).Process(bimg.Options{
		Width:   thumbWidth,
		Type:    bimg.JPEG,
		Quality: 80,
	})
	if err != nil {
		return nil, nil, err
	}
	return display, thumb, nil
}
