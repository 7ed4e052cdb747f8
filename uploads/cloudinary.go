// Package uploads abstracts the image object store.
package uploads

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Result is a stored image: a public URL plus the path needed to manage it.
type Result struct {
	URL  string
	Path string
}

type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string) (*Result, error)
}

// Cloudinary uploads images to Cloudinary and returns the secure URL.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

var _ Uploader = (*Cloudinary)(nil)

// NewCloudinary builds an uploader from a cloudinary:// URL.
func NewCloudinary(url string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, folder string) (*Result, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       uuid.NewString(),
		Transformation: "c_limit,w_1200,q_auto",
	})
	if err != nil {
		return nil, err
	}
	return &Result{URL: resp.SecureURL, Path: resp.PublicID}, nil
}
