// Package fetch resolves a product page to its image and stores it.
package fetch

import (
	"context"
	"errors"
	"fmt"

	errs "photofetch/pkg/errors"
	"photofetch/pkg/logger"
	"photofetch/pkg/render"
)

// ImageWriter persists image bytes under an identifier
type ImageWriter interface {
	SaveImage(id string, data []byte) (string, error)
}

// Result describes a stored image
type Result struct {
	ImageURL string
	Path     string
	Bytes    int
}

// Pipeline drives a renderer through page load, image lookup, image download
// and write for one record at a time
type Pipeline struct {
	renderer  render.Renderer
	writer    ImageWriter
	logger    logger.Logger
	pageOpts  render.NavigateOptions
	imageOpts render.NavigateOptions
}

// NewPipeline creates a pipeline over renderer and writer
func NewPipeline(renderer render.Renderer, writer ImageWriter, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		renderer:  renderer,
		writer:    writer,
		logger:    log.WithField("component", "fetch"),
		pageOpts:  render.PageLoad,
		imageOpts: render.ResourceLoad,
	}
}

// Fetch downloads the image of one product. id is the sanitized product
// number used as file name. Errors are classified as navigation,
// image_not_found, download or write errors; if ctx is cancelled its error
// is returned unclassified.
func (p *Pipeline) Fetch(ctx context.Context, id, photoURL string) (*Result, error) {
	page, err := p.renderer.Navigate(ctx, photoURL, p.pageOpts)
	if err != nil {
		return nil, p.classify(ctx, errs.Navigation(photoURL, err))
	}
	if !page.OK() {
		return nil, errs.Navigation(photoURL, statusError(page.Status))
	}

	src, err := p.renderer.FirstImageSource(ctx)
	if err != nil {
		return nil, p.classify(ctx, errs.New(errs.ErrorTypeImageNotFound, photoURL, "", err))
	}
	if src == "" {
		return nil, errs.ImageNotFound(photoURL)
	}

	p.logger.DebugWithFields("Image resolved", map[string]interface{}{
		"photo_url": photoURL,
		"image_url": src,
	})

	img, err := p.renderer.Navigate(ctx, src, p.imageOpts)
	if err != nil {
		return nil, p.classify(ctx, errs.Download(src, err))
	}
	if !img.OK() {
		return nil, errs.Download(src, statusError(img.Status))
	}
	if len(img.Body) == 0 {
		return nil, errs.Download(src, errors.New("empty response body"))
	}

	path, err := p.writer.SaveImage(id, img.Body)
	if err != nil {
		return nil, errs.Write(id+".jpg", err)
	}

	return &Result{ImageURL: src, Path: path, Bytes: len(img.Body)}, nil
}

// classify hands back the caller's cancellation instead of a record failure
func (p *Pipeline) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func statusError(status int) error {
	return fmt.Errorf("HTTP %d", status)
}
